// Package main implements the lexgate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lexgate/internal/browser"
	"lexgate/internal/config"
	"lexgate/internal/gateway"
	"lexgate/internal/logging"
	"lexgate/internal/provider"
	"lexgate/internal/session"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lexgate",
	Short: "Authenticated legal research gateway",
	Long: `lexgate drives a shared headless Chrome through provider login and search
for Westlaw, Lexis, Law360 and Bloomberg Law, and returns normalized case results.

Provider credentials are supplied per request and never written to disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		opts := cfg.Logging.Options()
		if verbose {
			opts.Level = "debug"
		}
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lexgate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Name, cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lexgate.yaml", "Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	initSearchFlags()

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stack is the wired search pipeline shared by serve and search.
type stack struct {
	browsers     *browser.Manager
	orchestrator *gateway.Orchestrator
}

func newStack(cfg *config.Config) *stack {
	browsers := browser.NewManager(browser.NewRodLauncher(cfg.Browser), cfg.Browser)
	registry := provider.NewDefaultRegistry(browsers, session.NewCache(), provider.TimingFromConfig(cfg))
	return &stack{
		browsers:     browsers,
		orchestrator: gateway.New(registry),
	}
}
