package sources

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
)

// NYTSource fetches articles from the New York Times Article Search API.
type NYTSource struct {
	client
}

// NewNYTSource creates a New York Times adapter.
func NewNYTSource(cfg Config, opts Options) *NYTSource {
	return &NYTSource{client: newClient(news.NYT, cfg, opts)}
}

func (n *NYTSource) Source() news.Source { return news.NYT }

type nytResponse struct {
	Status    string `json:"status"`
	Copyright string `json:"copyright"`
	Response  struct {
		Docs []nytArticle `json:"docs"`
		Meta struct {
			Hits   int `json:"hits"`
			Offset int `json:"offset"`
			Time   int `json:"time"`
		} `json:"meta"`
	} `json:"response"`
}

type nytArticle struct {
	WebURL   string `json:"web_url"`
	Snippet  string `json:"snippet"`
	Headline struct {
		Main string `json:"main"`
	} `json:"headline"`
	PubDate     string     `json:"pub_date"`
	NewsDesk    string     `json:"news_desk"`
	SectionName string     `json:"section_name"`
	Byline      *nytByline `json:"byline"`
	WordCount   int        `json:"word_count"`
	URI         string     `json:"uri"`
}

type nytByline struct {
	Original string `json:"original"`
	Person   []struct {
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
	} `json:"person"`
}

func (n *NYTSource) FetchArticles(ctx context.Context, query string, date time.Time, category news.Category) ([]news.Article, error) {
	if err := n.checkConfig(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("api-key", n.cfg.APIKey)
	params.Set("q", searchTerm(query, category))
	if !date.IsZero() {
		day := date.Format("20060102")
		params.Set("begin_date", day)
		params.Set("end_date", day)
	}

	var resp nytResponse
	if err := n.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}

	articles := make([]news.Article, 0, len(resp.Response.Docs))
	for _, doc := range resp.Response.Docs {
		articles = append(articles, news.Article{
			Title:       doc.Headline.Main,
			Description: doc.Snippet,
			URL:         doc.WebURL,
			PublishedAt: doc.PubDate,
			Author:      doc.Byline.author(),
			Source:      news.NYT,
		})
	}
	return articles, nil
}

// author joins the first credited person's names.
func (b *nytByline) author() string {
	if b == nil || len(b.Person) == 0 {
		return news.UnknownAuthor
	}
	p := b.Person[0]
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return news.UnknownAuthor
	}
	return name
}
