// Package news defines the canonical article model shared by the source
// adapters, the aggregator and the presentation layers.
package news

import (
	"fmt"
	"strings"
	"time"
)

// UnknownAuthor is the author recorded when a provider omits one.
const UnknownAuthor = "Unknown"

// DateLayout is the calendar-date layout accepted by ParseDate.
const DateLayout = "2006-01-02"

// Article is the normalized article record produced by every adapter.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"` // ISO-8601, as reported by the provider
	Author      string `json:"author"`
	Source      Source `json:"source,omitempty"`
}

// Category is a topical filter understood by every provider.
type Category string

const (
	Business      Category = "business"
	Entertainment Category = "entertainment"
	Sports        Category = "sports"
	Politics      Category = "politics"
	Technology    Category = "technology"
	Any           Category = "any"
)

// Categories lists every category in display order.
var Categories = []Category{Business, Entertainment, Sports, Politics, Technology, Any}

// Source identifies which provider adapter serves a request.
type Source string

const (
	NewsOrg  Source = "newsOrg"
	NYT      Source = "nyt"
	Guardian Source = "guardian"
)

// AllSources is the fixed set queried when no source filter is given.
var AllSources = []Source{NewsOrg, NYT, Guardian}

// Query is one aggregation request. A zero Date means no date filter and
// empty Sources/Categories mean "not provided".
type Query struct {
	Query        string
	Date         time.Time
	Categories   []Category
	Sources      []Source
	Personalized bool
}

// Preferences is the persisted personalization snapshot.
type Preferences struct {
	PreferredSources    []Source   `json:"preferredSources"`
	PreferredCategories []Category `json:"preferredCategories"`
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DisplayName returns the label shown to users.
func (c Category) DisplayName() string { return capitalize(string(c)) }

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// DisplayName returns the provider's human-readable name.
func (s Source) DisplayName() string {
	switch s {
	case NYT:
		return "New York Times"
	case NewsOrg:
		return "News Org"
	case Guardian:
		return "The Guardian"
	default:
		return capitalize(string(s))
	}
}

// ParseSource converts a wire value into a Source.
func ParseSource(v string) (Source, error) {
	s := Source(strings.TrimSpace(v))
	if !s.Valid() {
		return "", fmt.Errorf("unknown source %q", v)
	}
	return s, nil
}

// ParseCategory converts a wire value into a Category.
func ParseCategory(v string) (Category, error) {
	c := Category(strings.TrimSpace(v))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", v)
	}
	return c, nil
}

// ParseDate parses a YYYY-MM-DD calendar date. An empty string yields the
// zero time.
func ParseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", v)
	}
	return d, nil
}

func capitalize(v string) string {
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + strings.ToLower(v[1:])
}
