package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/antflydb/vaultsearch/config"
	"github.com/antflydb/vaultsearch/fsdoc"
	"github.com/antflydb/vaultsearch/index"
	"github.com/antflydb/vaultsearch/vault"
)

const cacheFilename = ".vaultsearch-cache.json"

// engine bundles the pieces a subcommand needs, built once from the
// persistent --vault/--config flags.
type engine struct {
	settings  config.Settings
	provider  *index.Provider
	source    *fsdoc.Source
	indexer   *vault.Indexer
	cachePath string
	logger    *zap.Logger
}

func newEngine() (*engine, error) {
	return newEngineWithLogger(zap.NewNop())
}

func newEngineWithLogger(logger *zap.Logger) (*engine, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	provider := index.New(settings.IndexConfig())
	provider.SetLogger(logger)
	source := fsdoc.NewSource(fsdoc.Config{
		BaseDir:         vaultDir,
		ExcludePatterns: settings.SearchExcludeFolders,
	})
	indexer := vault.New(provider, source, settings.VaultConfig())
	indexer.SetLogger(logger)

	e := &engine{
		settings:  settings,
		provider:  provider,
		source:    source,
		indexer:   indexer,
		cachePath: filepath.Join(vaultDir, cacheFilename),
		logger:    logger,
	}
	e.loadCache()
	return e, nil
}

func (e *engine) loadCache() {
	data, err := os.ReadFile(e.cachePath)
	if err != nil {
		return
	}
	_ = e.indexer.LoadCache(data)
}

func (e *engine) saveCache() error {
	blob, err := e.indexer.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(e.cachePath, blob, 0o644)
}
