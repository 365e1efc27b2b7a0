package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/antflydb/vaultsearch/fsdoc"
	"github.com/antflydb/vaultsearch/libaf/logging"
	"github.com/antflydb/vaultsearch/watch"
)

var watchLogStyle string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index the vault, then watch it for changes until interrupted",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchLogStyle, "log-style", "terminal", "terminal, json, logfmt, or noop")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(&logging.Config{Style: logging.Style(watchLogStyle), Level: logging.LevelInfo})
	defer logger.Sync()

	e, err := newEngineWithLogger(logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := e.indexer.IndexCold(ctx); err != nil {
		return fmt.Errorf("index vault: %w", err)
	}
	fmt.Printf("indexed %d documents from %s, watching for changes\n", e.provider.Len(), vaultDir)

	w, err := fsdoc.NewWatcher(e.source)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	coalescer := watch.New(e.indexer, 500*time.Millisecond)
	coalescer.SetLogger(logger)
	w.Run(ctx, coalescer.Handle)

	e.indexer.WaitForBodyPass()
	return e.saveCache()
}
