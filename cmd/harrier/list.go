package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/loader"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list <collection-file>",
	Short: "List every request in a collection, indented by folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loader.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		fmt.Printf("%s (%s)\n", c.Info.Name, c.Info.SchemaVersion)
		printItems(c.Items, 1)
		return nil
	},
}

func printItems(items []collection.Item, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		switch v := it.(type) {
		case *collection.Request:
			fmt.Printf("%s%-7s %s\n", indent, v.Method, v.Name)
		case *collection.Folder:
			fmt.Printf("%s%s/\n", indent, v.Name)
			printItems(v.Items, depth+1)
		}
	}
}
