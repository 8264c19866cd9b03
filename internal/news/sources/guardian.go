package sources

import (
	"context"
	"net/url"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
	"github.com/RobinCoderZhao/newsdesk/pkg/htmltext"
)

// GuardianSource fetches articles from The Guardian Content API.
type GuardianSource struct {
	client
}

// NewGuardianSource creates a Guardian adapter.
func NewGuardianSource(cfg Config, opts Options) *GuardianSource {
	return &GuardianSource{client: newClient(news.Guardian, cfg, opts)}
}

func (g *GuardianSource) Source() news.Source { return news.Guardian }

type guardianResponse struct {
	Response struct {
		Status      string           `json:"status"`
		Total       int              `json:"total"`
		StartIndex  int              `json:"startIndex"`
		PageSize    int              `json:"pageSize"`
		CurrentPage int              `json:"currentPage"`
		Pages       int              `json:"pages"`
		Results     []guardianResult `json:"results"`
	} `json:"response"`
}

type guardianResult struct {
	ID                 string `json:"id"`
	WebPublicationDate string `json:"webPublicationDate"`
	WebTitle           string `json:"webTitle"`
	WebURL             string `json:"webUrl"`
	Fields             struct {
		Body string `json:"body"`
	} `json:"fields"`
	SectionName string `json:"sectionName"`
	Type        string `json:"type"`
	PillarName  string `json:"pillarName"`
}

func (g *GuardianSource) FetchArticles(ctx context.Context, query string, date time.Time, category news.Category) ([]news.Article, error) {
	if err := g.checkConfig(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("api-key", g.cfg.APIKey)
	params.Set("q", searchTerm(query, category))
	params.Set("show-fields", "body")
	if !date.IsZero() {
		day := date.Format("2006-01-02")
		params.Set("from-date", day)
		params.Set("to-date", day)
	}

	var resp guardianResponse
	if err := g.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}

	articles := make([]news.Article, 0, len(resp.Response.Results))
	for _, r := range resp.Response.Results {
		articles = append(articles, news.Article{
			Title:       r.WebTitle,
			Description: htmltext.ToText(r.Fields.Body),
			URL:         r.WebURL,
			PublishedAt: r.WebPublicationDate,
			Author:      news.UnknownAuthor,
			Source:      news.Guardian,
		})
	}
	return articles, nil
}
