package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgermill/classiflow/internal/cache"
	"github.com/ledgermill/classiflow/internal/common"
	"github.com/ledgermill/classiflow/internal/engine"
	"github.com/ledgermill/classiflow/internal/llm"
	"github.com/ledgermill/classiflow/internal/model"
	ofxparser "github.com/ledgermill/classiflow/internal/ofx"
	"github.com/ledgermill/classiflow/internal/reference"
	"github.com/ledgermill/classiflow/internal/storage"
)

// services bundles everything a command needs.
type services struct {
	store   *reference.Store
	engine  *engine.Engine
	storage *storage.SQLiteStorage
}

// close persists the pattern store and closes the database.
func (s *services) close(ctx context.Context) {
	if s.storage == nil {
		return
	}
	if err := s.storage.SaveSnapshot(ctx, s.store.Dump()); err != nil {
		slog.Warn("failed to persist pattern store", "error", err)
	}
	if err := s.storage.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

// buildServices wires the pattern store, cache, classifier, engine, and
// SQLite persistence from configuration.
func buildServices(ctx context.Context) (*services, error) {
	store := reference.NewStore()

	db, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	// A persisted snapshot carries learned patterns; keep the seeds when
	// none exists yet.
	if snap, loadErr := db.LoadSnapshot(ctx); loadErr == nil && len(snap.MerchantPatterns) > 0 {
		if err := store.Load(snap); err != nil {
			slog.Warn("failed to load persisted patterns, using seeds", "error", err)
		}
	}

	classifier, err := llm.NewClient(llm.Config{
		Provider:          viper.GetString("classifier.provider"),
		APIKey:            viper.GetString("classifier.api_key"),
		Model:             viper.GetString("classifier.model"),
		Temperature:       viper.GetFloat64("classifier.temperature"),
		MaxTokens:         viper.GetInt("classifier.max_tokens"),
		RequestsPerMinute: viper.GetInt("classifier.requests_per_minute"),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	if classifier == nil {
		slog.Warn("no classifier configured, unmatched transactions get fallback results")
	}

	eng := engine.New(engine.Config{
		Store:         store,
		Cache:         cache.NewResultCache(viper.GetInt("cache.max_size"), viper.GetDuration("cache.ttl")),
		Classifier:    classifier,
		Logger:        slog.Default(),
		MaxConcurrent: viper.GetInt("engine.max_concurrent_batches"),
		Retry: common.RetryOptions{
			MaxAttempts:  viper.GetInt("classifier.max_attempts"),
			InitialDelay: viper.GetDuration("classifier.initial_delay"),
		},
	})

	return &services{store: store, engine: eng, storage: db}, nil
}

func databasePath() string {
	if path := viper.GetString("database.path"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "classiflow.db"
	}
	return filepath.Join(home, ".local", "share", "classiflow", "classiflow.db")
}

// loadTransactions reads transactions from a JSON array or an OFX/QFX file,
// chosen by extension.
func loadTransactions(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return ofxparser.NewParser().ParseFile(f)
	default:
		var txns []model.Transaction
		if err := json.NewDecoder(f).Decode(&txns); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		for i := range txns {
			if txns[i].ID == "" {
				txns[i].ID = fmt.Sprintf("txn-%d", i+1)
			}
			if txns[i].Date.IsZero() {
				txns[i].Date = time.Now()
			}
		}
		return txns, nil
	}
}

// profileFromConfig reads the user profile sent with classifier requests.
func profileFromConfig() model.UserProfile {
	return model.UserProfile{
		BusinessType:    viper.GetString("profile.business_type"),
		Industry:        viper.GetString("profile.industry"),
		CountryCode:     viper.GetString("profile.country_code"),
		Profession:      viper.GetString("profile.profession"),
		FreeTextContext: viper.GetString("profile.context"),
	}
}

// writeJSON writes v to path, or stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
