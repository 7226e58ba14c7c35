package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials stored in the OS keychain",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a secret read from stdin (names: oracle)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	if _, err := secrets.Account(args[0]); err != nil {
		return err
	}
	if isTerminal(os.Stdin) {
		fmt.Fprintf(os.Stderr, "Enter %s secret: ", args[0])
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read secret: %w", err)
	}
	if err := secrets.Set(args[0], strings.TrimSpace(line)); err != nil {
		return err
	}
	fmt.Printf("Stored %s in the keychain\n", args[0])
	return nil
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
