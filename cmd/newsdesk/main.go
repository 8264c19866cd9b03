// Newsdesk searches NewsAPI, The New York Times and The Guardian in parallel
// and keeps the reader's preferred sources and categories.
//
// Usage:
//
//	newsdesk search climate --date 2024-03-01 --category technology
//	newsdesk prefs set --source nyt --category politics
//	newsdesk serve --addr :8080
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/newsdesk/internal/api"
	"github.com/RobinCoderZhao/newsdesk/internal/news"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "newsdesk",
		Short:         "Multi-source news aggregator",
		Long:          "newsdesk queries NewsAPI, The New York Times and The Guardian in parallel and merges the results into one feed.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./newsdesk.yaml, then the XDG config dir)")

	rootCmd.AddCommand(searchCmd(&configPath))
	rootCmd.AddCommand(prefsCmd(&configPath))
	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func searchCmd(configPath *string) *cobra.Command {
	var (
		date         string
		categories   []string
		srcs         []string
		personalized bool
		outputJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search all providers and print the merged feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(args, date, categories, srcs, personalized)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), *configPath, q, outputJSON)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "only articles published on this day (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "category filter, repeatable (business, entertainment, sports, politics, technology, any)")
	cmd.Flags().StringSliceVar(&srcs, "source", nil, "source filter, repeatable (newsOrg, nyt, guardian)")
	cmd.Flags().BoolVar(&personalized, "personalized", false, "use stored preferences instead of filters")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON")
	return cmd
}

func prefsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferred sources and categories",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print stored preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrefsShow(cmd.Context(), *configPath)
		},
	}

	var (
		srcs       []string
		categories []string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace stored preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPreferences(srcs, categories)
			if err != nil {
				return err
			}
			return runPrefsSet(cmd.Context(), *configPath, p)
		},
	}
	set.Flags().StringSliceVar(&srcs, "source", nil, "preferred source, repeatable")
	set.Flags().StringSliceVar(&categories, "category", nil, "preferred category, repeatable")

	cmd.AddCommand(show, set)
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func tokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := api.GenerateToken(a.cfg.Server.JWTSecret, subject, ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id the token is issued to (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 7*24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsdesk %s\n", version)
		},
	}
}

func runSearch(ctx context.Context, configPath string, q news.Query, outputJSON bool) error {
	a, err := newApp(configPath, q.Personalized)
	if err != nil {
		return err
	}
	defer a.Close()

	articles, err := a.aggregator.GetNews(ctx, q)
	if err != nil {
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(articles)
	}
	printArticles(os.Stdout, articles)
	return nil
}

func runPrefsShow(ctx context.Context, configPath string) error {
	a, err := newApp(configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.preferences.Load(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	fmt.Printf("Sources:    %s\n", joinLabels(p.PreferredSources, news.Source.DisplayName))
	fmt.Printf("Categories: %s\n", joinLabels(p.PreferredCategories, news.Category.DisplayName))
	return nil
}

func runPrefsSet(ctx context.Context, configPath string, p news.Preferences) error {
	a, err := newApp(configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.preferences.Save(ctx, p); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	fmt.Println("Preferences saved.")
	return nil
}

func runServe(configPath, addr string) error {
	a, err := newApp(configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	server := api.NewServer(a.aggregator, a.settings, api.Options{
		JWTSecret:     a.cfg.Server.JWTSecret,
		AllowedOrigin: a.cfg.Server.AllowedOrigin,
		Logger:        a.logger,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting REST API server", "addr", addr, "auth", a.cfg.Server.JWTSecret != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}
	a.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func buildQuery(args []string, date string, categories, srcs []string, personalized bool) (news.Query, error) {
	q := news.Query{
		Query:        strings.TrimSpace(strings.Join(args, " ")),
		Personalized: personalized,
	}
	if q.Query == "" {
		q.Query = "any"
	}

	d, err := news.ParseDate(date)
	if err != nil {
		return q, err
	}
	q.Date = d

	for _, c := range categories {
		cat, err := news.ParseCategory(c)
		if err != nil {
			return q, err
		}
		q.Categories = append(q.Categories, cat)
	}
	for _, s := range srcs {
		src, err := news.ParseSource(s)
		if err != nil {
			return q, err
		}
		q.Sources = append(q.Sources, src)
	}
	return q, nil
}

func buildPreferences(srcs, categories []string) (news.Preferences, error) {
	var p news.Preferences
	for _, s := range srcs {
		src, err := news.ParseSource(s)
		if err != nil {
			return p, err
		}
		p.PreferredSources = append(p.PreferredSources, src)
	}
	for _, c := range categories {
		cat, err := news.ParseCategory(c)
		if err != nil {
			return p, err
		}
		p.PreferredCategories = append(p.PreferredCategories, cat)
	}
	return p, nil
}
