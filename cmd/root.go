package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errTestsFailed is returned by run when at least one server failed. The
// summary has already been printed, so Execute only sets the exit code.
var errTestsFailed = errors.New("one or more servers failed")

// configFile is an explicit configuration file replacing the layered lookup.
var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcpe2e",
	Short: "End-to-end conformance tests for remotely deployed MCP servers",
	Long: `mcpe2e deploys every declared MCP server into an isolated workspace,
waits for it to become ready, performs the MCP handshake, calls the tools
declared in its test fixture and validates the replies. Workspaces are
deleted afterwards unless --skip-cleanup is given.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed runs, invalid configuration)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpe2e version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Errors are printed by Execute.
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (default: ~/.config/mcpe2e/config.yaml layered with ./.mcpe2e/config.yaml)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newVersionCmd())
}
