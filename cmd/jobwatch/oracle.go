package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/model"
)

var oracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Oracle subcommands",
}

var oracleTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Classify a sample posting",
	Long:  "Sends a built-in sample posting through the configured oracle and prints the parsed verdict.",
	RunE:  runOracleTest,
}

func init() {
	rootCmd.AddCommand(oracleCmd)
	oracleCmd.AddCommand(oracleTestCmd)
}

func sampleCapture() model.JobCapture {
	return model.JobCapture{
		ID:       "0000000000",
		Title:    "Senior Backend Engineer (Go)",
		Company:  "Example Corp",
		Location: "Remote",
		DescriptionHTML: "<p>We are looking for a backend engineer to build and run " +
			"high-throughput services in Go on PostgreSQL and Kubernetes.</p>" +
			"<ul><li>5+ years of backend experience</li><li>Go in production</li></ul>",
		Link:       "https://www.linkedin.com/jobs/view/0000000000/",
		CapturedAt: time.Now().UTC(),
	}
}

func runOracleTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	classifier, err := setupClassifier(cfg, logger)
	if err != nil {
		logger.Error("failed to set up oracle", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	v, err := classifier.Classify(context.Background(), sampleCapture())
	if err != nil {
		logger.Error("oracle test failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Retain:     %v\n", v.Retain)
	fmt.Printf("First line: %s\n", v.Analysis.FirstLine)
	if v.Analysis.Parsed != nil {
		parsed, _ := json.MarshalIndent(v.Analysis.Parsed, "", "  ")
		fmt.Printf("Parsed:\n%s\n", parsed)
	} else {
		fmt.Printf("Raw output:\n%s\n", v.Analysis.RawOutput)
	}
	fmt.Printf("Took:       %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
