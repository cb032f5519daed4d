package main

import (
	"fmt"
	"io"
	"os"

	"myfirstagent/internal/config"

	"github.com/spf13/cobra"
)

var setupForce bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeDefaultConfig(config.Path(), setupForce, cmd.OutOrStdout())
	},
}

func init() {
	setupCmd.Flags().BoolVarP(&setupForce, "force", "f", false, "overwrite an existing config file")
}

func writeDefaultConfig(path string, force bool, out io.Writer) error {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "config already exists at %s (use --force to overwrite)\n", path)
		return nil
	}
	if err := config.Default().Write(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "wrote %s\nset GOOGLE_API_KEY in the environment or a .env file before running chat\n", path)
	return nil
}
