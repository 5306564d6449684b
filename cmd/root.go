package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-avif/internal/device"
)

var (
	// Global output flags only
	verbose bool
	quiet   bool

	// Reader configuration, loaded before any command runs.
	cfg = &device.Config{Strict: true}
)

var rootCmd = &cobra.Command{
	Use:   "go-avif",
	Short: "AVIF container inspector and extractor",
	Long: `go-avif is a command-line tool for inspecting AVIF image containers:
the ISOBMFF box tree, the item tables, item properties and the
compressed payloads they point at.

It works on the container level only — it never decodes AV1 data.

Commands:
  info       Summarize a file (brands, primary item, dimensions)
  boxes      Dump the box tree
  items      List items with their properties and locations
  extract    Extract an item's payload or ICC profile to a file`,
	Version: "0.1.0-dev",

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := device.LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Only global output control flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
}
