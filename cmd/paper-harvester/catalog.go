// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvester/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the local index of fetched articles",
	Long: `Catalog holds every article record seen by scrape, search, and fetch
when catalog.enabled is set. Queries run locally without touching the API.`,
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Find catalogued articles containing all terms",
	Long: `Search matches each term against titles and abstracts (case-insensitive)
and returns articles containing every term, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog()
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("catalog is disabled (set catalog.enabled)")
		}
		defer store.Close()

		category, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")
		recs, err := store.Search(cmd.Context(), catalog.Filter{Terms: args, Category: category, Limit: limit})
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return printRecords(cmd.OutOrStdout(), recs, jsonOutput)
	},
}

var catalogCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of catalogued articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog()
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("catalog is disabled (set catalog.enabled)")
		}
		defer store.Close()

		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d articles in %s\n", n, cfg.Catalog.Path)
		return nil
	},
}

func init() {
	catalogSearchCmd.Flags().String("category", "", "only articles tagged with this category")
	catalogSearchCmd.Flags().Int("limit", 20, "maximum number of results")
	catalogSearchCmd.Flags().Bool("json", false, "output results as JSON")

	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogCountCmd)

	rootCmd.AddCommand(catalogCmd)
}
