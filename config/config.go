// Package config loads the engine's settings from layered sources:
// built-in defaults, an optional config file, and environment overrides.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/antflydb/vaultsearch/index"
	"github.com/antflydb/vaultsearch/query"
	"github.com/antflydb/vaultsearch/scoring"
	"github.com/antflydb/vaultsearch/vault"
)

// Settings is the engine's full settings table, flattened into one
// struct so the rest of the engine can be constructed from a single
// value.
type Settings struct {
	CommandsEnablePrefix bool   `mapstructure:"commands_enable_prefix"`
	CommandsPrefixChar   string `mapstructure:"commands_prefix_char"`

	SearchPreserveDiacritics bool     `mapstructure:"search_preserve_diacritics"`
	SearchRegexCandidateK    int      `mapstructure:"search_regex_candidate_k"`
	SearchIncludeCodeBlocks  bool     `mapstructure:"search_include_code_blocks"`
	SearchExcludeFolders     []string `mapstructure:"search_exclude_folders"`

	WeightTitle         float64 `mapstructure:"weight_title"`
	WeightHeadings      float64 `mapstructure:"weight_headings"`
	WeightPath          float64 `mapstructure:"weight_path"`
	WeightTags          float64 `mapstructure:"weight_tags"`
	WeightSymbols       float64 `mapstructure:"weight_symbols"`
	WeightBody          float64 `mapstructure:"weight_body"`
	WeightRecency       float64 `mapstructure:"weight_recency"`
	RecencyHalfLifeDays float64 `mapstructure:"recency_half_life_days"`

	IndexerMaxBodyBytes int `mapstructure:"indexer_max_body_bytes"`
	IndexerMaxDocs      int `mapstructure:"indexer_max_docs"`
}

// Defaults returns the engine's default settings table.
func Defaults() Settings {
	return Settings{
		CommandsEnablePrefix: true,
		CommandsPrefixChar:   ">",

		SearchPreserveDiacritics: true,
		SearchRegexCandidateK:    300,
		SearchIncludeCodeBlocks:  false,

		WeightTitle:         4,
		WeightHeadings:      2,
		WeightPath:          1.5,
		WeightTags:          1.5,
		WeightSymbols:       1.5,
		WeightBody:          1,
		WeightRecency:       0.5,
		RecencyHalfLifeDays: 30,

		IndexerMaxBodyBytes: 2 << 20,
		IndexerMaxDocs:      50000,
	}
}

// Load layers a config file (if present) and VAULTSEARCH_-prefixed
// environment variables over Defaults().
func Load(configPath string) (Settings, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix("VAULTSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return Settings{}, err
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("commands_enable_prefix", d.CommandsEnablePrefix)
	v.SetDefault("commands_prefix_char", d.CommandsPrefixChar)
	v.SetDefault("search_preserve_diacritics", d.SearchPreserveDiacritics)
	v.SetDefault("search_regex_candidate_k", d.SearchRegexCandidateK)
	v.SetDefault("search_include_code_blocks", d.SearchIncludeCodeBlocks)
	v.SetDefault("search_exclude_folders", d.SearchExcludeFolders)
	v.SetDefault("weight_title", d.WeightTitle)
	v.SetDefault("weight_headings", d.WeightHeadings)
	v.SetDefault("weight_path", d.WeightPath)
	v.SetDefault("weight_tags", d.WeightTags)
	v.SetDefault("weight_symbols", d.WeightSymbols)
	v.SetDefault("weight_body", d.WeightBody)
	v.SetDefault("weight_recency", d.WeightRecency)
	v.SetDefault("recency_half_life_days", d.RecencyHalfLifeDays)
	v.SetDefault("indexer_max_body_bytes", d.IndexerMaxBodyBytes)
	v.SetDefault("indexer_max_docs", d.IndexerMaxDocs)
}

// QuerySettings adapts to query.Settings.
func (s Settings) QuerySettings() query.Settings {
	prefixChar := rune(0)
	if len(s.CommandsPrefixChar) > 0 {
		prefixChar = []rune(s.CommandsPrefixChar)[0]
	}
	return query.Settings{
		CommandsEnablePrefix: s.CommandsEnablePrefix,
		CommandsPrefixChar:   prefixChar,
		PreserveDiacritics:   s.SearchPreserveDiacritics,
	}
}

// ScoringConfig adapts to scoring.Config.
func (s Settings) ScoringConfig() scoring.Config {
	return scoring.Config{
		WeightTitle:        s.WeightTitle,
		WeightHeadings:     s.WeightHeadings,
		WeightPath:         s.WeightPath,
		WeightTags:         s.WeightTags,
		WeightSymbols:      s.WeightSymbols,
		WeightBody:         s.WeightBody,
		WeightRecency:      s.WeightRecency,
		PhraseBonus:        scoring.DefaultConfig().PhraseBonus,
		HalfLifeDays:       s.RecencyHalfLifeDays,
		PreserveDiacritics: s.SearchPreserveDiacritics,
	}
}

// IndexConfig adapts to index.Config.
func (s Settings) IndexConfig() index.Config {
	return index.Config{
		MaxDocs:            s.IndexerMaxDocs,
		MaxBodyBytes:       s.IndexerMaxBodyBytes,
		RegexCandidateK:    s.SearchRegexCandidateK,
		Scorer:             s.ScoringConfig(),
		PreserveDiacritics: s.SearchPreserveDiacritics,
	}
}

// VaultConfig adapts to vault.Config.
func (s Settings) VaultConfig() vault.Config {
	cfg := vault.DefaultConfig()
	cfg.ExcludeFolderPrefixes = s.SearchExcludeFolders
	cfg.IncludeCodeBlocks = s.SearchIncludeCodeBlocks
	cfg.PreserveDiacritics = s.SearchPreserveDiacritics
	return cfg
}
