package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "kennel",
		Short:        "Epoch-protected dog list with periodic eviction",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(makeServeCmd(), makeShowCmd(), makeStoreCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
