package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-avif/internal/container"
	"github.com/deploymenttheory/go-avif/internal/device"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Summarize an AVIF file",
	Long: `Summarize an AVIF container: brands, item count, primary item and
its dimensions and color configuration.

Examples:
  # Basic summary
  go-avif info photo.avif`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInfo(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(path string) error {
	f, err := openContainer(path)
	if err != nil {
		return err
	}

	// Nil only under a non-strict configuration.
	if ftyp := f.FileType(); ftyp != nil {
		fmt.Printf("Major brand:       %s (minor version %d)\n", ftyp.MajorBrand, ftyp.MinorVersion)
		if len(ftyp.CompatibleBrands) > 0 {
			fmt.Printf("Compatible brands:")
			for _, b := range ftyp.CompatibleBrands {
				fmt.Printf(" %s", b)
			}
			fmt.Println()
		}
	}

	items := f.Items()
	fmt.Printf("Items:             %d\n", len(items))

	primaryID, ok := f.PrimaryItemID()
	if !ok {
		return nil
	}
	fmt.Printf("Primary item:      %d\n", primaryID)
	if ispe, ok := f.SpatialExtents(primaryID); ok {
		fmt.Printf("Dimensions:        %dx%d\n", ispe.Width, ispe.Height)
	}
	if colr, ok := f.ColorInformation(primaryID); ok {
		fmt.Printf("Color type:        %s\n", colr.ColorType)
		if len(colr.ICCProfile) > 0 {
			fmt.Printf("ICC profile:       %d bytes\n", len(colr.ICCProfile))
		}
	}
	return nil
}

// openContainer parses path into a File under the loaded configuration,
// releasing the source once the tree is materialized.
func openContainer(path string) (*container.File, error) {
	src, err := device.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return container.ParseWith(src, container.ParseOptions{
		BufferSize: cfg.BufferSize,
		ChunkSize:  cfg.ChunkSize,
		Strict:     cfg.Strict,
	})
}
