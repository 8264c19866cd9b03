package api

import (
	"net/http"
	"strconv"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
)

// defaultQuery is searched when the client sends no q parameter.
const defaultQuery = "any"

type newsResponse struct {
	Articles []news.Article `json:"articles"`
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *Server) handleNews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseNewsQuery(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		agg := s.aggregator
		if q.Personalized {
			subject := ""
			if s.authEnabled() {
				subject, err = s.authenticate(r)
				if err != nil {
					s.rejectAuth(w, r, err)
					return
				}
			}
			agg = agg.WithPreferences(s.preferencesFor(subject))
		}

		articles, err := agg.GetNews(r.Context(), q)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to fetch news", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch news")
			return
		}

		respondJSON(w, http.StatusOK, newsResponse{Articles: articles})
	}
}

// parseNewsQuery reads the feed filters from the URL. Source and category
// values are passed through unvalidated; unknown sources yield nothing.
func parseNewsQuery(r *http.Request) (news.Query, error) {
	params := r.URL.Query()

	q := news.Query{Query: params.Get("q")}
	if q.Query == "" {
		q.Query = defaultQuery
	}

	date, err := news.ParseDate(params.Get("date"))
	if err != nil {
		return news.Query{}, err
	}
	q.Date = date

	for _, c := range params["category"] {
		if c != "" {
			q.Categories = append(q.Categories, news.Category(c))
		}
	}
	for _, src := range params["source"] {
		if src != "" {
			q.Sources = append(q.Sources, news.Source(src))
		}
	}

	if v := params.Get("personalized"); v != "" {
		p, err := strconv.ParseBool(v)
		if err != nil {
			return news.Query{}, err
		}
		q.Personalized = p
	}
	return q, nil
}

func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := make([]option, 0, len(news.AllSources))
		for _, src := range news.AllSources {
			opts = append(opts, option{Value: string(src), Label: src.DisplayName()})
		}
		respondJSON(w, http.StatusOK, opts)
	}
}

func (s *Server) handleListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := make([]option, 0, len(news.Categories))
		for _, c := range news.Categories {
			opts = append(opts, option{Value: string(c), Label: c.DisplayName()})
		}
		respondJSON(w, http.StatusOK, opts)
	}
}
