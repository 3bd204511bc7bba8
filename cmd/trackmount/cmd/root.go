package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "trackmount",
	Short: "Seekable HTTP access to a remote audio track catalog",
	Long: `trackmount opens tracks from a remote catalog, picks the best
available encoding, decrypts the stream when key material exists and serves
chunked, seekable reads over HTTP.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "path to config file")
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
