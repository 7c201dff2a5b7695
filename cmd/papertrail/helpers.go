package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/paper-trail/internal/classify"
	"github.com/Veraticus/paper-trail/internal/config"
	"github.com/Veraticus/paper-trail/internal/engine"
	"github.com/Veraticus/paper-trail/internal/extract"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider"
	"github.com/Veraticus/paper-trail/internal/provider/gmail"
	"github.com/Veraticus/paper-trail/internal/provider/imap"
	"github.com/Veraticus/paper-trail/internal/service"
	"github.com/Veraticus/paper-trail/internal/storage"
	"github.com/Veraticus/paper-trail/internal/vision"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		var err error
		dbPath, err = config.DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// gmailConfig reads the Gmail OAuth client settings from config.
func gmailConfig() gmail.Config {
	return gmail.Config{
		ClientID:     viper.GetString("gmail.client_id"),
		ClientSecret: viper.GetString("gmail.client_secret"),
		RedirectURL:  callbackURL(),
		StateSecret:  viper.GetString("gmail.state_secret"),
	}
}

func callbackURL() string {
	url := viper.GetString("gmail.redirect_url")
	if url == "" {
		url = "http://localhost:8171/callback"
	}
	return url
}

// buildRegistry wires every known provider adapter.
func buildRegistry() *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register(model.ProviderGmail, func() (provider.Adapter, error) {
		return gmail.New(gmailConfig())
	})
	registry.Register(model.ProviderIMAP, func() (provider.Adapter, error) {
		return imap.New(), nil
	})
	return registry
}

// buildEngine assembles the sync engine from config. The vision extractor is
// optional; without it only body-text extraction runs.
func buildEngine(store service.Storage) *engine.Engine {
	var visionClient vision.Extractor
	if endpoint := viper.GetString("extraction.endpoint"); endpoint != "" {
		client, err := vision.NewClient(vision.Config{
			Endpoint: endpoint,
			APIKey:   viper.GetString("extraction.api_key"),
			Timeout:  viper.GetDuration("extraction.timeout"),
		})
		if err == nil {
			visionClient = client
		}
	}

	cfg := engine.DefaultConfig()
	if workers := viper.GetInt("sync.workers"); workers > 0 {
		cfg.Workers = workers
	}
	if query := viper.GetString("sync.query"); query != "" {
		cfg.Query = query
	}

	return engine.NewWithConfig(store, buildRegistry(), classify.New(), extract.New(visionClient), cfg)
}

// currentUser returns the configured user id; single-user setups keep the
// default.
func currentUser() string {
	if user := viper.GetString("user"); user != "" {
		return user
	}
	return "default"
}

// formatTime renders an optional timestamp for table output.
func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
