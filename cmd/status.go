package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"siteqa/pkg/vectorstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is currently indexed",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	out := cmd.OutOrStdout()
	meta, err := a.engine.Summary(cmd.Context())
	if errors.Is(err, vectorstore.ErrNoIndex) {
		fmt.Fprintln(out, "No index. Run `siteqa index <url>` first.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Source:     %s\n", meta.SourceURL)
	fmt.Fprintf(out, "Crawl ID:   %s\n", meta.CrawlID)
	fmt.Fprintf(out, "Pages:      %d\n", meta.PageCount)
	fmt.Fprintf(out, "Chunks:     %d\n", meta.ChunkCount)
	fmt.Fprintf(out, "Dimension:  %d\n", meta.Dimension)
	fmt.Fprintf(out, "Indexed at: %s\n", meta.IndexedAt.Local().Format(time.RFC1123))
	return nil
}
