package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/antflydb/vaultsearch/query"
)

var queryLimit int

var queryCmd = &cobra.Command{
	Use:   "query [raw query]",
	Short: "Run a cold index pass, then evaluate a single query and print results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 20, "maximum number of results")
}

func runQuery(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	if err := e.indexer.IndexCold(ctx); err != nil {
		return fmt.Errorf("index vault: %w", err)
	}
	e.indexer.WaitForBodyPass()

	raw := strings.Join(args, " ")
	parsed, parseErrs := query.ParseWithErrors(raw, e.settings.QuerySettings())
	for _, pe := range parseErrs {
		fmt.Printf("warning: %s\n", pe.Message)
	}

	results, err := e.provider.Query(ctx, parsed, queryLimit, time.Now())
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	for i, r := range results {
		fmt.Printf("%d. %s (score %.3f)\n", i+1, r.ID, r.Score)
	}
	if len(results) == 0 {
		fmt.Println("no results")
	}
	return nil
}
