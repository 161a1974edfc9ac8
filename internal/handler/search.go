package handler

import (
	"context"
	"net/http"

	"sadaka/internal/search"
	"sadaka/pkg/errors"
)

type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

type SearchHandler struct {
	searcher Searcher
	logger   Logger
}

func NewSearchHandler(searcher Searcher, log Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: log}
}

// Search serves GET /search?q=&type=funds|campaigns. type defaults to funds.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := search.Scope(q.Get("type"))
	if scope == "" {
		scope = search.ScopeFunds
	}

	res, err := h.searcher.Search(r.Context(), search.Query{
		Text:        q.Get("q"),
		Scope:       scope,
		CountryCode: q.Get("country_code"),
		Category:    q.Get("category"),
		Status:      q.Get("status"),
		Page:        pageFromQuery(r),
	})
	if errors.Is(err, errors.ErrSearchUnavailable) {
		respondError(w, http.StatusServiceUnavailable, errors.MessageOf(err))
		return
	}
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
