// Command codesuggest is the inline suggestion host for the Neovim plugin.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "codesuggest",
	Short: "Inline code suggestions for Neovim",
	Long: `codesuggest decides when an inline suggestion is worth fetching, reuses
earlier suggestions while you type through them, and records what happened
to every suggestion it showed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "codesuggest.yml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to export before loading config (default .env if present)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
