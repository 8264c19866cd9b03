// Package aggregator fans a news query out to every selected provider and
// merges whatever comes back.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
	"github.com/RobinCoderZhao/newsdesk/internal/news/prefs"
	"github.com/RobinCoderZhao/newsdesk/internal/news/sources"
	"github.com/RobinCoderZhao/newsdesk/pkg/logctx"
)

// ErrFetchNews wraps failures that happen outside the per-provider calls.
var ErrFetchNews = errors.New("failed to fetch news")

// Aggregator merges articles from a fixed set of adapters.
type Aggregator struct {
	adapters map[news.Source]sources.Adapter
	prefs    prefs.Reader
	logger   *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for dropped requests.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New creates an Aggregator. Adapters are keyed by their Source; a later
// adapter for the same source replaces an earlier one.
func New(preferences prefs.Reader, adapters []sources.Adapter, opts ...Option) *Aggregator {
	a := &Aggregator{
		adapters: make(map[news.Source]sources.Adapter, len(adapters)),
		prefs:    preferences,
		logger:   slog.Default(),
	}
	for _, ad := range adapters {
		a.adapters[ad.Source()] = ad
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logctx.Logger(a.logger)
	return a
}

// WithPreferences returns a copy of a that reads personalization from r.
func (a *Aggregator) WithPreferences(r prefs.Reader) *Aggregator {
	cp := *a
	cp.prefs = r
	return &cp
}

// request is one provider call in dispatch order. An empty category means
// no category filter.
type request struct {
	source   news.Source
	category news.Category
}

// GetNews resolves the sources and categories for q, queries them all
// concurrently and concatenates the successful results in dispatch order.
// Individual provider failures are logged and dropped.
func (a *Aggregator) GetNews(ctx context.Context, q news.Query) (articles []news.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFetchNews, r)
		}
	}()

	plan, err := a.plan(ctx, q)
	if err != nil {
		a.logger.ErrorContext(ctx, "error fetching news", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFetchNews, err)
	}

	results := a.dispatch(ctx, q, plan)

	articles = make([]news.Article, 0)
	for _, r := range results {
		articles = append(articles, r...)
	}
	a.logger.DebugContext(ctx, "aggregated news", "requests", len(plan), "articles", len(articles))
	return articles, nil
}

// plan expands q into the ordered list of provider requests.
func (a *Aggregator) plan(ctx context.Context, q news.Query) ([]request, error) {
	var (
		srcs []news.Source
		cats []news.Category
	)

	if q.Personalized {
		p, err := a.loadPreferences(ctx)
		if err != nil {
			return nil, err
		}
		srcs, cats = p.PreferredSources, p.PreferredCategories
	} else {
		srcs = q.Sources
		if len(srcs) == 0 {
			srcs = news.AllSources
		}
		cats = q.Categories
	}

	if len(cats) == 0 && !q.Personalized {
		plan := make([]request, 0, len(srcs))
		for _, s := range srcs {
			plan = append(plan, request{source: s})
		}
		return plan, nil
	}

	plan := make([]request, 0, len(srcs)*len(cats))
	for _, s := range srcs {
		for _, c := range cats {
			plan = append(plan, request{source: s, category: c})
		}
	}
	return plan, nil
}

func (a *Aggregator) loadPreferences(ctx context.Context) (news.Preferences, error) {
	if a.prefs == nil {
		return news.Preferences{}, nil
	}
	p, err := a.prefs.Load(ctx)
	if errors.Is(err, prefs.ErrMalformedPreferences) {
		a.logger.WarnContext(ctx, "error parsing personalized settings, using empty selection", "error", err)
		return news.Preferences{}, nil
	}
	if err != nil {
		return news.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return p, nil
}

// dispatch runs every request concurrently and waits for all of them to
// settle. Slot i holds the articles of plan[i], or nil if it failed.
func (a *Aggregator) dispatch(ctx context.Context, q news.Query, plan []request) [][]news.Article {
	results := make([][]news.Article, len(plan))

	var g errgroup.Group
	for i, req := range plan {
		adapter, ok := a.adapters[req.source]
		if !ok {
			a.logger.DebugContext(ctx, "no adapter for source, skipping", "source", req.source)
			continue
		}
		g.Go(func() error {
			results[i] = a.fetch(ctx, adapter, q, req)
			return nil
		})
	}
	// Tasks never return errors; Wait is only a barrier.
	_ = g.Wait()

	return results
}

func (a *Aggregator) fetch(ctx context.Context, adapter sources.Adapter, q news.Query, req request) (articles []news.Article) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "news source panicked", "source", req.source, "category", req.category, "panic", r)
			articles = nil
		}
	}()

	articles, err := adapter.FetchArticles(ctx, q.Query, q.Date, req.category)
	if err != nil {
		a.logger.WarnContext(ctx, "dropping failed news source", "source", req.source, "category", req.category, "error", err)
		return nil
	}
	return articles
}
