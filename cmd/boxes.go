package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-avif/internal/box"
)

var boxesCmd = &cobra.Command{
	Use:   "boxes [file]",
	Short: "Dump the box tree",
	Long: `Dump the container's box tree with the encoded size of every box.

Examples:
  # Show the tree
  go-avif boxes photo.avif`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBoxes(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(boxesCmd)
}

func runBoxes(path string) error {
	f, err := openContainer(path)
	if err != nil {
		return err
	}
	for _, b := range f.Boxes {
		printBox(b, 0)
	}
	return nil
}

func printBox(b box.Box, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s (%d bytes)\n", indent, b.Type(), b.EncodedSize())
	for _, child := range boxChildren(b) {
		printBox(child, depth+1)
	}
}

func boxChildren(b box.Box) []box.Box {
	switch v := b.(type) {
	case *box.MetaBox:
		return v.Children
	case *box.ItemPropertiesBox:
		children := []box.Box{v.Container}
		for _, a := range v.Associations {
			children = append(children, a)
		}
		return children
	case *box.ItemPropertyContainerBox:
		return v.Properties
	case *box.ItemInfoBox:
		children := make([]box.Box, 0, len(v.Entries))
		for _, e := range v.Entries {
			children = append(children, e)
		}
		return children
	default:
		return nil
	}
}
