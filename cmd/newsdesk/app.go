package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/RobinCoderZhao/newsdesk/internal/config"
	"github.com/RobinCoderZhao/newsdesk/internal/news"
	"github.com/RobinCoderZhao/newsdesk/internal/news/aggregator"
	"github.com/RobinCoderZhao/newsdesk/internal/news/prefs"
	"github.com/RobinCoderZhao/newsdesk/internal/news/sources"
	"github.com/RobinCoderZhao/newsdesk/pkg/logctx"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// app bundles the wired dependencies shared by the commands.
type app struct {
	cfg         config.Config
	logger      *slog.Logger
	db          *storage.DB
	settings    prefs.KV
	preferences *prefs.Store
	aggregator  *aggregator.Aggregator
}

// newApp loads config and wires the adapters and aggregator. The settings
// database is only opened when withStorage is set, so a plain search works
// without a writable data directory.
func newApp(configPath string, withStorage bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(logctx.NewHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	if withStorage {
		db, err := storage.Open(cfg.Storage)
		if err != nil {
			return nil, err
		}
		kv, err := prefs.NewSQLKV(context.Background(), db)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.settings = kv
	} else {
		a.settings = prefs.NewMemoryKV()
	}
	a.preferences = prefs.NewStore(a.settings)

	opts := sources.Options{
		Client: &http.Client{Timeout: cfg.HTTPTimeout},
		Logger: logger,
	}
	adapters := []sources.Adapter{
		sources.NewNewsAPISource(cfg.Providers.NewsAPI, opts),
		sources.NewNYTSource(cfg.Providers.NYT, opts),
		sources.NewGuardianSource(cfg.Providers.Guardian, opts),
	}
	a.aggregator = aggregator.New(a.preferences, adapters, aggregator.WithLogger(logger))

	return a, nil
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func printArticles(w io.Writer, articles []news.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles found.")
		return
	}
	for i, art := range articles {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, art.Source.DisplayName(), art.Title)
		fmt.Fprintf(w, "   %s · %s\n", art.Author, art.PublishedAt)
		fmt.Fprintf(w, "   %s\n", art.URL)
		if desc := summarize(art.Description, 200); desc != "" {
			fmt.Fprintf(w, "   %s\n", desc)
		}
		fmt.Fprintln(w)
	}
}

// summarize flattens s to one line and truncates it to n runes.
func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func joinLabels[T any](values []T, label func(T) string) string {
	if len(values) == 0 {
		return "(none)"
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = label(v)
	}
	return strings.Join(out, ", ")
}
