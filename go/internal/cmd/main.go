package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	siteConfigPath string
	jsonOutput     bool
)

var rootCmd = &cobra.Command{
	Use:           "igacmun",
	Short:         "IGACMUN conference site",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&siteConfigPath, "site-config", "", "site content YAML (defaults to the embedded document)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(revealsCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
