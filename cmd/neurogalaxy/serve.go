package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server.

The server communicates via stdio and exposes the process_notes, add_notes,
get_nodes, clear_notes and galaxy_health tools.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	srv := globalServer

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; ok {
			_ = srv.Stop()
			os.Exit(0)
		}
	}()

	return srv.Start()
}
