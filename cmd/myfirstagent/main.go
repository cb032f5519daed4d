package main

import (
	"os"

	"myfirstagent/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:           "myfirstagent",
		Short:         "A greeting agent that answers Google Cloud questions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
