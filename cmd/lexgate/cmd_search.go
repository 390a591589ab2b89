package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lexgate/internal/gateway"
	"lexgate/internal/logging"
	"lexgate/internal/types"
)

var (
	searchSource     string
	searchUsername   string
	searchMaxResults int
)

// searchCmd runs one search without the HTTP layer. Useful for re-checking
// selectors after a provider changes its markup.
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a single provider search and print JSON",
	Long: `Runs one search through the same pipeline as POST /search and prints the
response (or the failure with its hint) as JSON.

The provider secret is read from LEXGATE_PROVIDER_SECRET.

Example:
  LEXGATE_PROVIDER_SECRET=... lexgate search --source westlaw --username alice "armed robbery"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func initSearchFlags() {
	searchCmd.Flags().StringVarP(&searchSource, "source", "s", "", "Provider: westlaw, lexis, law360, bloomberglaw")
	searchCmd.Flags().StringVarP(&searchUsername, "username", "u", "", "Provider username")
	searchCmd.Flags().IntVarP(&searchMaxResults, "max", "n", 15, "Maximum results")
	_ = searchCmd.MarkFlagRequired("source")
	_ = searchCmd.MarkFlagRequired("username")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := newStack(cfg)
	defer func() {
		if err := st.browsers.Shutdown(context.Background()); err != nil {
			logging.BootWarn("browser shutdown: %v", err)
		}
	}()

	req := types.SearchRequest{
		Query:  strings.Join(args, " "),
		Source: types.Source(searchSource),
		Credentials: types.Credentials{
			Username: searchUsername,
			Secret:   os.Getenv("LEXGATE_PROVIDER_SECRET"),
		},
		MaxResults: searchMaxResults,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	resp, err := st.orchestrator.HandleSearch(ctx, req)
	if err != nil {
		f := gateway.Describe(err, req.Source)
		_ = enc.Encode(f)
		var te *types.Error
		if errors.As(err, &te) {
			return fmt.Errorf("%s: %s", te.Kind, f.Message)
		}
		return err
	}
	return enc.Encode(resp)
}
