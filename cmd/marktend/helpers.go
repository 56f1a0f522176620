package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/undergrove/marktend/internal/classify"
	"github.com/undergrove/marktend/internal/common"
	"github.com/undergrove/marktend/internal/config"
	"github.com/undergrove/marktend/internal/engine"
	"github.com/undergrove/marktend/internal/history"
	"github.com/undergrove/marktend/internal/notify"
	"github.com/undergrove/marktend/internal/rules"
	"github.com/undergrove/marktend/internal/service"
	"github.com/undergrove/marktend/internal/storage"
	"github.com/undergrove/marktend/internal/tracker"
)

// initStorage opens the bookmark database and runs migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open bookmark database at %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// initHistory returns the history source when an export file is available,
// nil otherwise. A nil source disables history analysis.
func initHistory() service.HistorySource {
	path := viper.GetString("history.export_path")
	if path == "" {
		path = config.DefaultHistoryExportPath()
	}
	path = config.ExpandPath(path)

	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return history.NewFileSource(path)
}

// initRules builds the preference-rule evaluator from config keyword lists.
func initRules() service.RuleEvaluator {
	return &rules.KeywordEvaluator{
		ExcludeKeywords: viper.GetStringSlice("rules.exclude_keywords"),
		IncludeKeywords: viper.GetStringSlice("rules.include_keywords"),
	}
}

// initTracker assembles the candidate tracker over the given store.
func initTracker(store service.Storage) *tracker.Tracker {
	return tracker.New(store, classify.NewDefault(), initRules(), notify.New())
}

// initEngine assembles the job engine with every optional capability wired
// from configuration.
func initEngine(store service.Storage) *engine.Engine {
	cfg := engine.DefaultConfig()
	if size := viper.GetInt("engine.chunk_size"); size > 0 {
		cfg.ChunkSize = size
	}
	if size := viper.GetInt("engine.history_chunk_size"); size > 0 {
		cfg.HistoryChunkSize = size
	}

	return engine.New(store, classify.NewDefault(), initRules(), initHistory(), initTracker(store), cfg)
}
