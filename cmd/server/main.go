// Package main is the entry point for the warlock arena authority server.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "warlock",
	Short: "Warlock arena cast authority",
	Long:  `Warlock runs the server-authoritative ability and cast simulation and replicates it to websocket observers.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnv()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
}

// loadEnv reads ../.env, falling back to .env in the working directory.
func loadEnv() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
			return
		}
		log.Println("✅ Loaded environment from .env")
		return
	}
	log.Println("✅ Loaded environment from ../.env")
}
