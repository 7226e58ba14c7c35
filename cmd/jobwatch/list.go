package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/markup"
	"github.com/amishk599/jobwatch/internal/model"
)

var listPending bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print retained jobs as a table",
	Long:  "Reads the result store and prints every retained job, newest first.",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listPending, "pending", false, "only show jobs not applied to yet")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	results, err := s.List()
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	rows := resultRows(results, listPending)
	if len(rows) == 0 {
		fmt.Println("No retained jobs.")
		return nil
	}
	fmt.Println(renderTable(
		[]string{"Analyzed", "Company", "Title", "Location", "Applied", "Result", "Job ID"},
		rows,
		nil,
	))
	fmt.Printf("\nTotal: %d jobs\n", len(rows))
	return nil
}

func resultRows(results []model.AnalysisResult, pendingOnly bool) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if pendingOnly && r.Applied {
			continue
		}
		applied := "no"
		if r.Applied {
			applied = "yes"
		}
		rows = append(rows, []string{
			r.AnalyzedAt.Local().Format("2006-01-02 15:04"),
			markup.Truncate(r.Company, 24),
			markup.Truncate(r.Title, 48),
			markup.Truncate(r.Location, 24),
			applied,
			r.ApplicationResult,
			r.JobID,
		})
	}
	return rows
}
