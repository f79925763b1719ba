package main

import (
	"fmt"

	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a site content file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := siteConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		content, err := siteconfig.Load(path)
		if err != nil {
			return err
		}
		name := path
		if name == "" {
			name = "embedded site config"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d committees, %d forms, %d schedule days)\n",
			name, len(content.Committees), len(content.Forms), len(content.Schedule))
		return nil
	},
}
