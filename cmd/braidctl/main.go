package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/braidhq/braiddb/pkg/client"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "braidctl",
	Short:   "braidctl - a command-line client for braidd",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "base URL of the braidd server")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(watchCmd)
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	return client.NewClient(server)
}
