package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse retained jobs interactively (TUI)",
	Long:  "Split-pane view of retained jobs (to apply / applied) with a detail view; updates are written back to the store.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	// No logger here: any log output while the alt screen is up corrupts the display.
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if !isTerminal(os.Stdout) {
		return fmt.Errorf("review needs an interactive terminal; use `jobwatch list` instead")
	}

	s, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return review.Run(s)
}
