package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/liaison/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default liaison.json in the current directory",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, "liaison.json")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("liaison.json already exists at %s", path)
	}

	cfg := config.GenerateDefault()
	if err := cfg.SaveToFile(path); err != nil {
		return fmt.Errorf("failed to save default config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}
