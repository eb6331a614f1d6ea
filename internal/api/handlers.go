package api

import (
	"cmp"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// Loader is the read side of a record store.
type Loader interface {
	Load(ctx context.Context) ([]model.Record, error)
}

// Handler answers record queries from a Loader.
type Handler struct {
	store Loader
}

func NewHandler(store Loader) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListRecords returns stored records ordered by rank. Optional query
// parameters: kind (anime, manga) and limit.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var kind model.MediaType
	if raw := q.Get("kind"); raw != "" {
		k, err := model.ParseMediaType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = k
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.store.Load(r.Context())
	if err != nil {
		zap.L().Error("api: load records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load records")
		return
	}

	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if kind != "" && rec.Kind != kind {
			continue
		}
		out = append(out, rec)
	}
	slices.SortStableFunc(out, func(a, b model.Record) int {
		return cmp.Compare(a.Rank, b.Rank)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	writeJSON(w, http.StatusOK, out)
}

// GetRecord returns the record whose identity key is {id}. Ids repeat across
// media types, so an id held by several kinds needs the kind query parameter.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	var kind model.MediaType
	if raw := r.URL.Query().Get("kind"); raw != "" {
		if kind, err = model.ParseMediaType(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	records, err := h.store.Load(r.Context())
	if err != nil {
		zap.L().Error("api: load records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load records")
		return
	}

	var matches []model.Record
	for _, rec := range records {
		if rec.ID == id && (kind == "" || rec.Kind == kind) {
			matches = append(matches, rec)
		}
	}

	switch len(matches) {
	case 0:
		writeError(w, http.StatusNotFound, "record not found")
	case 1:
		writeJSON(w, http.StatusOK, matches[0])
	default:
		writeError(w, http.StatusConflict, "id is held by several media types; pass kind")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
