// Command vaultsearchd drives the vault search engine from the command
// line: a one-shot index pass, a one-shot query, a long-running watch
// loop, or a combined serve mode exposing the health/metrics endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var configPath string
var vaultDir string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vaultsearchd",
	Short:   "vaultsearchd indexes and searches a local markdown vault",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a vaultsearch config file")
	rootCmd.PersistentFlags().StringVarP(&vaultDir, "vault", "d", ".", "path to the vault's root directory")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}
