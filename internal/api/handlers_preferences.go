package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
	"github.com/RobinCoderZhao/newsdesk/internal/news/prefs"
)

func (s *Server) handleGetPreferences() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.preferencesFor(getSubject(r)).Load(r.Context())
		if errors.Is(err, prefs.ErrMalformedPreferences) {
			s.logger.WarnContext(r.Context(), "stored preferences are malformed", "error", err)
			p, err = news.Preferences{}, nil
		}
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to load preferences", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to load preferences")
			return
		}

		respondJSON(w, http.StatusOK, news.Preferences{
			PreferredSources:    orEmpty(p.PreferredSources),
			PreferredCategories: orEmpty(p.PreferredCategories),
		})
	}
}

func (s *Server) handlePutPreferences() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req news.Preferences
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		for _, src := range req.PreferredSources {
			if !src.Valid() {
				respondError(w, http.StatusBadRequest, "unknown source: "+string(src))
				return
			}
		}
		for _, c := range req.PreferredCategories {
			if !c.Valid() {
				respondError(w, http.StatusBadRequest, "unknown category: "+string(c))
				return
			}
		}

		if err := s.preferencesFor(getSubject(r)).Save(r.Context(), req); err != nil {
			s.logger.ErrorContext(r.Context(), "failed to save preferences", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to save preferences")
			return
		}

		respondJSON(w, http.StatusOK, news.Preferences{
			PreferredSources:    orEmpty(req.PreferredSources),
			PreferredCategories: orEmpty(req.PreferredCategories),
		})
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
