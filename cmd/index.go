package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexMaxPages int

var indexCmd = &cobra.Command{
	Use:   "index <url>",
	Short: "Crawl a website and rebuild the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().IntVarP(&indexMaxPages, "max-pages", "n", 0, "maximum pages to crawl (default from config)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	maxPages := indexMaxPages
	if maxPages == 0 {
		maxPages = a.cfg.Crawler.MaxPages
	}

	chunks, err := a.engine.Indexing(cmd.Context(), args[0], maxPages)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %s\n", chunks, args[0])
	return nil
}
