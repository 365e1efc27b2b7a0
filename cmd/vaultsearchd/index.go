package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run a cold index pass over the vault and persist the file cache",
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.indexer.IndexCold(ctx); err != nil {
		return fmt.Errorf("index vault: %w", err)
	}
	e.indexer.WaitForBodyPass()

	fmt.Printf("indexed %d documents from %s\n", e.provider.Len(), vaultDir)

	if err := e.saveCache(); err != nil {
		return fmt.Errorf("save file cache: %w", err)
	}
	return nil
}
