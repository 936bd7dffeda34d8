package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"siteqa/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========
	// API Server
	// =========
	server := api.NewServer(a.engine, a.metrics, a.logger, api.Options{
		Addr:            a.cfg.Server.Addr,
		DefaultMaxPages: a.cfg.Crawler.MaxPages,
		ReadTimeout:     a.cfg.Server.ReadTimeout(),
		WriteTimeout:    a.cfg.Server.WriteTimeout(),
	})
	return server.Start(ctx)
}
