package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "siteqa",
	Short:        "Index a website and answer questions about it",
	SilenceUsage: true,
	Long: `siteqa crawls a website, embeds its text into a local vector index and
answers natural-language questions grounded on the indexed pages.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "siteqa.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
