package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/model"
)

var (
	markApplied   bool
	markUnapplied bool
	markResult    string
)

var markCmd = &cobra.Command{
	Use:   "mark <job_id>",
	Short: "Update the application status of a retained job",
	Args:  cobra.ExactArgs(1),
	RunE:  runMark,
}

func init() {
	markCmd.Flags().BoolVar(&markApplied, "applied", false, "mark the job as applied")
	markCmd.Flags().BoolVar(&markUnapplied, "unapplied", false, "clear the applied flag")
	markCmd.Flags().StringVar(&markResult, "result", "", "set the application result (no_response, accepted, rejected)")
	markCmd.MarkFlagsMutuallyExclusive("applied", "unapplied")
	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	if !markApplied && !markUnapplied && markResult == "" {
		return fmt.Errorf("nothing to do: pass --applied, --unapplied or --result")
	}
	if markResult != "" && !validResult(markResult) {
		return fmt.Errorf("invalid --result %q", markResult)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	s, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	id := args[0]
	if markApplied || markUnapplied {
		if err := s.SetApplied(id, markApplied); err != nil {
			return fmt.Errorf("mark %s: %w", id, err)
		}
	}
	if markResult != "" {
		if err := s.SetApplicationResult(id, markResult); err != nil {
			return fmt.Errorf("mark %s: %w", id, err)
		}
	}
	fmt.Printf("Updated %s\n", id)
	return nil
}

func validResult(s string) bool {
	switch s {
	case model.ResultNoResponse, model.ResultAccepted, model.ResultRejected:
		return true
	}
	return false
}
