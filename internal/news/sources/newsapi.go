package sources

import (
	"context"
	"net/url"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
)

// removedTitle marks NewsAPI articles that were taken down upstream.
const removedTitle = "[Removed]"

// NewsAPISource fetches articles from the NewsAPI.org "everything" endpoint.
type NewsAPISource struct {
	client
}

// NewNewsAPISource creates a NewsAPI adapter.
func NewNewsAPISource(cfg Config, opts Options) *NewsAPISource {
	return &NewsAPISource{client: newClient(news.NewsOrg, cfg, opts)}
}

func (n *NewsAPISource) Source() news.Source { return news.NewsOrg }

type newsAPIResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     string  `json:"content"`
}

func (n *NewsAPISource) FetchArticles(ctx context.Context, query string, date time.Time, category news.Category) ([]news.Article, error) {
	if err := n.checkConfig(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("apiKey", n.cfg.APIKey)
	params.Set("q", searchTerm(query, category))
	if !date.IsZero() {
		day := date.UTC().Format("2006-01-02")
		params.Set("from", day)
		params.Set("to", day)
	}

	var resp newsAPIResponse
	if err := n.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}
	return n.convert(resp.Articles), nil
}

func (n *NewsAPISource) convert(items []newsAPIArticle) []news.Article {
	articles := make([]news.Article, 0, len(items))
	for _, item := range items {
		if item.Title == removedTitle {
			continue
		}
		articles = append(articles, news.Article{
			Title:       item.Title,
			Description: deref(item.Description, ""),
			URL:         item.URL,
			PublishedAt: item.PublishedAt,
			Author:      deref(item.Author, news.UnknownAuthor),
			Source:      news.NewsOrg,
		})
	}
	return articles
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
