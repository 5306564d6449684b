package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items [file]",
	Short: "List items with their properties",
	Long: `List every item in the container with its type, name, associated
properties and payload size.

Examples:
  # List items
  go-avif items photo.avif`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runItems(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd)
}

func runItems(path string) error {
	f, err := openContainer(path)
	if err != nil {
		return err
	}
	primaryID, _ := f.PrimaryItemID()
	for _, entry := range f.Items() {
		marker := " "
		if entry.ItemID == primaryID {
			marker = "*"
		}
		fmt.Printf("%s item %d  type=%s", marker, entry.ItemID, entry.ItemType)
		if entry.Name != "" {
			fmt.Printf("  name=%q", entry.Name)
		}
		fmt.Println()

		for _, rp := range f.PropertiesForItem(entry.ItemID) {
			essential := ""
			if rp.Association.Essential {
				essential = " (essential)"
			}
			if rp.Property == nil {
				fmt.Printf("    property #%d unresolved%s\n", rp.Association.PropertyIndex, essential)
				continue
			}
			fmt.Printf("    property #%d %s%s\n", rp.Association.PropertyIndex, rp.Property.Type(), essential)
		}

		payload, err := f.ItemPayload(entry.ItemID)
		if err != nil {
			if verbose {
				fmt.Printf("    payload: %v\n", err)
			}
			continue
		}
		fmt.Printf("    payload %d bytes\n", len(payload))
	}
	return nil
}
