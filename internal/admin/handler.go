// Package admin serves a read-only HTTP view of the page file for operators.
package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/logger"
)

// PageReader is the read side of the page store.
type PageReader interface {
	NumPages() int
	Locate(term string) int
	ReadPage(page int) (index.Page, error)
}

// Ranker orders postings for a query.
type Ranker interface {
	Order(queryWords []string, candidates index.Page, indexing bool) index.Page
}

type Handler struct {
	pages  PageReader
	ranker Ranker
	logger *slog.Logger
}

func New(pages PageReader, ranker Ranker) *Handler {
	return &Handler{
		pages:  pages,
		ranker: ranker,
		logger: slog.Default().With("component", "admin-handler"),
	}
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/pages/{page}", h.Page)
	mux.HandleFunc("GET /api/v1/retrieve", h.Retrieve)
}

type postingView struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Extract string  `json:"extract"`
	Score   float64 `json:"score"`
	Term    string  `json:"term,omitempty"`
	State   string  `json:"state,omitempty"`
}

type pageResponse struct {
	Page     int           `json:"page"`
	Term     string        `json:"term,omitempty"`
	Count    int           `json:"count"`
	Postings []postingView `json:"postings"`
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("page")
	page, err := strconv.Atoi(raw)
	if err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "page %q is not a number", raw))
		return
	}
	postings, err := h.pages.ReadPage(page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pageResponse{
		Page:     page,
		Count:    len(postings),
		Postings: views(postings),
	})
}

// Retrieve returns the postings filed under term, ranked as a live query
// would rank them. With all=true it returns the whole page unranked.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'term' is required"))
		return
	}
	page := h.pages.Locate(term)
	postings, err := h.pages.ReadPage(page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); !all {
		matched := make(index.Page, 0, len(postings))
		for _, p := range postings {
			if p.Term == term {
				matched = append(matched, p)
			}
		}
		postings = h.ranker.Order(strings.Fields(term), matched, false)
	}
	logger.FromContext(r.Context()).Debug("term retrieved",
		"term", term,
		"page", page,
		"returned", len(postings),
	)
	h.writeJSON(w, http.StatusOK, pageResponse{
		Page:     page,
		Term:     term,
		Count:    len(postings),
		Postings: views(postings),
	})
}

func views(page index.Page) []postingView {
	out := make([]postingView, len(page))
	for i, p := range page {
		out[i] = postingView{
			Title:   p.Title,
			URL:     p.URL,
			Extract: p.Extract,
			Score:   p.Score,
			Term:    p.Term,
		}
		if p.Curated() {
			out[i].State = p.State.String()
		}
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := gojson.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
