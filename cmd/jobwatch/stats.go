package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the analyzed/retained counters",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	snap, err := stats.Read(cfg.Store.StatsPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	updated := "never"
	if snap.LastUpdated != nil {
		updated = snap.LastUpdated.Local().Format("2006-01-02 15:04:05")
	}
	rate := "-"
	if snap.TotalAnalyzed > 0 {
		rate = fmt.Sprintf("%.1f%%", 100*float64(snap.Retained)/float64(snap.TotalAnalyzed))
	}

	fmt.Println(renderTable(
		[]string{"Analyzed", "Retained", "Retain rate", "Last updated"},
		[][]string{{strconv.Itoa(snap.TotalAnalyzed), strconv.Itoa(snap.Retained), rate, updated}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}
