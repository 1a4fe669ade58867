// Package main is a headless observer client for the warlock arena server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	catDir    string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "warlock-client",
	Short: "Headless warlock arena observer",
	Long:  `Warlock-client connects to a warlock server over websocket and mirrors the replicated cast state.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "ws://localhost:7777/ws", "Server websocket URL")
	rootCmd.PersistentFlags().StringVar(&catDir, "catalog", "", "Catalog directory, must match the server's")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	rootCmd.AddCommand(observeCmd)
}
