// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvester/internal/feed"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories [field]",
	Short: "List arXiv categories by field",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := feed.Fields()
		if len(args) == 1 {
			if feed.CategoriesForField(args[0]) == nil {
				return fmt.Errorf("unknown field %q (known: %s)", args[0], strings.Join(fields, ", "))
			}
			fields = []string{strings.ToLower(args[0])}
		}

		out := cmd.OutOrStdout()
		for i, field := range fields {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s:\n", field)
			for _, c := range feed.CategoriesForField(field) {
				fmt.Fprintf(out, "  %-20s %s\n", c, feed.DescribeCategory(c))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
