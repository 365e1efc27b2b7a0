package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antflydb/vaultsearch/document"
	"github.com/antflydb/vaultsearch/fsdoc"
	"github.com/antflydb/vaultsearch/libaf/healthserver"
	"github.com/antflydb/vaultsearch/libaf/logging"
	"github.com/antflydb/vaultsearch/query"
	"github.com/antflydb/vaultsearch/watch"
)

var (
	serveLogStyle string
	servePort     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Index, watch, and expose /healthz /readyz /metrics for the vault",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveLogStyle, "log-style", "terminal", "terminal, json, logfmt, or noop")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "health/metrics server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(&logging.Config{Style: logging.Style(serveLogStyle), Level: logging.LevelInfo})
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
	logger.Info(fmt.Sprintf("indexed %d documents from %s", e.provider.Len(), vaultDir))

	w, err := fsdoc.NewWatcher(e.source)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	coalescer := watch.New(e.indexer, 500*time.Millisecond)
	coalescer.SetLogger(logger)

	ready := false
	healthserver.Start(logger, servePort, func() healthserver.Status {
		return healthserver.Status{Ready: ready, Docs: e.provider.Len(), Terms: e.provider.TermCount()}
	})
	metrics := healthserver.NewMetrics(healthserver.Sampler{
		TotalDocs:        func() float64 { return float64(e.provider.Len()) },
		PostingsTerms:    func() float64 { return float64(e.provider.TermCount()) },
		CoalescerPending: func() float64 { return float64(coalescer.Pending()) },
	})
	http.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		e.handleQuery(w, r)
		metrics.QueryLatency.Observe(time.Since(start).Seconds())
	})
	ready = true

	w.Run(ctx, coalescer.Handle)

	e.indexer.WaitForBodyPass()
	return e.saveCache()
}

// queryResponse is the JSON body handleQuery writes: the ranked results
// plus any non-fatal parse errors the raw query string produced.
type queryResponse struct {
	Results []document.Result `json:"results"`
	Errors  []query.Error     `json:"errors,omitempty"`
}

// handleQuery serves GET /query?q=<raw>&limit=<n>, running the raw string
// through the same parser and provider the CLI's query command uses.
func (e *engine) handleQuery(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	parsed, parseErrs := query.ParseWithErrors(raw, e.settings.QuerySettings())
	results, err := e.provider.Query(r.Context(), parsed, limit, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(queryResponse{Results: results, Errors: parseErrs}); err != nil {
		e.logger.Error("failed to write query response", zap.Error(err))
	}
}
