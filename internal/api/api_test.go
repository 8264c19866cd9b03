package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
	"github.com/RobinCoderZhao/newsdesk/internal/news/aggregator"
	"github.com/RobinCoderZhao/newsdesk/internal/news/prefs"
	"github.com/RobinCoderZhao/newsdesk/internal/news/sources"
)

type stubAdapter struct {
	source news.Source
	err    error

	mu   sync.Mutex
	seen []string
}

func (s *stubAdapter) Source() news.Source { return s.source }

func (s *stubAdapter) FetchArticles(_ context.Context, query string, _ time.Time, category news.Category) ([]news.Article, error) {
	term := query
	if category != "" {
		term = string(category)
	}
	s.mu.Lock()
	s.seen = append(s.seen, term)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []news.Article{{Title: string(s.source) + ":" + term, Author: news.UnknownAuthor, Source: s.source}}, nil
}

type testEnv struct {
	server   *httptest.Server
	settings *prefs.MemoryKV
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	return newTestEnvWithLog(t, secret, io.Discard)
}

func newTestEnvWithLog(t *testing.T, secret string, logOut io.Writer) *testEnv {
	t.Helper()
	adapters := []sources.Adapter{
		&stubAdapter{source: news.NewsOrg},
		&stubAdapter{source: news.NYT},
		&stubAdapter{source: news.Guardian, err: errors.New("down")},
	}
	settings := prefs.NewMemoryKV()
	logger := slog.New(slog.NewTextHandler(logOut, nil))
	agg := aggregator.New(prefs.NewStore(settings), adapters, aggregator.WithLogger(logger))
	srv := NewServer(agg, settings, Options{JWTSecret: secret, AllowedOrigin: "http://localhost:5173", Logger: logger})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, settings: settings}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	return e.doWithHeader(t, method, path, token, body, nil)
}

func (e *testEnv) doWithHeader(t *testing.T, method, path, token, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func articleTitles(articles []news.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Title
	}
	return out
}

func TestNews_DefaultQueryAndPartialFailure(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/news", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}

	got := articleTitles(decode[newsResponse](t, resp).Articles)
	want := []string{"newsOrg:any", "nyt:any"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNews_Filters(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/news?q=climate&date=2024-03-01&category=technology&category=sports&source=nyt&source=reuters", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := articleTitles(decode[newsResponse](t, resp).Articles)
	want := []string{"nyt:technology", "nyt:sports"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNews_EmptyResultIsArray(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/news?source=guardian", "", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"articles":[]`) {
		t.Fatalf("expected empty articles array, got %s", body)
	}
}

func TestNews_BadParams(t *testing.T) {
	env := newTestEnv(t, "")
	for _, path := range []string{"/api/news?date=01-03-2024", "/api/news?personalized=maybe"} {
		if resp := env.do(t, http.MethodGet, path, "", ""); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
}

func TestPreferences_RoundTripAndPersonalizedFeed(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodGet, "/api/news?personalized=true", "", "")
	if got := decode[newsResponse](t, resp).Articles; len(got) != 0 {
		t.Fatalf("expected empty personalized feed, got %v", articleTitles(got))
	}

	resp = env.do(t, http.MethodPut, "/api/preferences", "", `{"preferredSources":["nyt","guardian"],"preferredCategories":["politics"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/preferences", "", "")
	p := decode[news.Preferences](t, resp)
	if len(p.PreferredSources) != 2 || p.PreferredCategories[0] != news.Politics {
		t.Fatalf("unexpected preferences: %+v", p)
	}

	resp = env.do(t, http.MethodGet, "/api/news?personalized=true&q=ignored", "", "")
	got := articleTitles(decode[newsResponse](t, resp).Articles)
	if strings.Join(got, ",") != "nyt:politics" {
		t.Fatalf("expected [nyt:politics], got %v", got)
	}
}

func TestPreferences_Validation(t *testing.T) {
	env := newTestEnv(t, "")
	cases := []string{
		`{"preferredSources":["reuters"]}`,
		`{"preferredCategories":["weather"]}`,
		`not json`,
	}
	for _, body := range cases {
		if resp := env.do(t, http.MethodPut, "/api/preferences", "", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestPreferences_MalformedReadsAsEmpty(t *testing.T) {
	env := newTestEnv(t, "")
	env.settings.Set(context.Background(), prefs.KeySources, "{broken")

	resp := env.do(t, http.MethodGet, "/api/preferences", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	p := decode[news.Preferences](t, resp)
	if p.PreferredSources == nil || len(p.PreferredSources) != 0 {
		t.Fatalf("expected empty lists, got %+v", p)
	}
}

func TestAuth_ScopesPreferencesPerSubject(t *testing.T) {
	const secret = "test-secret"
	env := newTestEnv(t, secret)

	if resp := env.do(t, http.MethodGet, "/api/preferences", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/news?personalized=true", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for personalized feed without token, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/preferences", "garbage", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/news", "", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected public feed to stay open, got %d", resp.StatusCode)
	}

	alice, err := GenerateToken(secret, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	bob, _ := GenerateToken(secret, "bob", time.Hour)

	resp := env.do(t, http.MethodPut, "/api/preferences", alice, `{"preferredSources":["nyt"],"preferredCategories":["business"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok, _ := env.settings.Get(context.Background(), "user:alice:"+prefs.KeySources); !ok {
		t.Fatal("expected preferences under alice's namespace")
	}

	resp = env.do(t, http.MethodGet, "/api/news?personalized=true", alice, "")
	if got := articleTitles(decode[newsResponse](t, resp).Articles); strings.Join(got, ",") != "nyt:business" {
		t.Fatalf("expected alice's feed, got %v", got)
	}

	resp = env.do(t, http.MethodGet, "/api/news?personalized=true", bob, "")
	if got := decode[newsResponse](t, resp).Articles; len(got) != 0 {
		t.Fatalf("expected bob's feed to be empty, got %v", articleTitles(got))
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	const secret = "test-secret"
	env := newTestEnv(t, secret)

	token, err := GenerateToken(secret, "alice", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if resp := env.do(t, http.MethodGet, "/api/preferences", token, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", resp.StatusCode)
	}
}

func TestGenerateToken_RequiresSecretAndSubject(t *testing.T) {
	if _, err := GenerateToken("", "alice", time.Hour); err == nil {
		t.Fatal("expected error without secret")
	}
	if _, err := GenerateToken("s", "", time.Hour); err == nil {
		t.Fatal("expected error without subject")
	}
}

func TestOptionLists(t *testing.T) {
	env := newTestEnv(t, "")

	srcs := decode[[]option](t, env.do(t, http.MethodGet, "/api/sources", "", ""))
	if len(srcs) != 3 || srcs[1].Label != "New York Times" {
		t.Fatalf("unexpected sources: %+v", srcs)
	}

	cats := decode[[]option](t, env.do(t, http.MethodGet, "/api/categories", "", ""))
	if len(cats) != len(news.Categories) || cats[0].Label != "Business" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodOptions, "/api/preferences", "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allowed origin: %q", got)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestIDInDownstreamLogs(t *testing.T) {
	logs := &syncBuffer{}
	env := newTestEnvWithLog(t, "", logs)

	resp := env.doWithHeader(t, http.MethodGet, "/api/news?source=guardian", "", "", http.Header{"X-Request-Id": {"req-42"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	var dropped string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, "dropping failed news source") {
			dropped = line
		}
	}
	if dropped == "" {
		t.Fatalf("expected a dropped source warning, got logs:\n%s", logs.String())
	}
	if !strings.Contains(dropped, "request_id=req-42") {
		t.Fatalf("expected request id on aggregator log line, got %q", dropped)
	}
}
