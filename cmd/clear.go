package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the index files",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	removed, err := a.engine.ClearIndex(cmd.Context())
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear.")
		return nil
	}
	for _, p := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", p)
	}
	return nil
}
