package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"EstateScanner/internal/domain"
	"EstateScanner/internal/usecase"
)

// SearchService runs the full search pipeline for a filter.
type SearchService interface {
	Search(ctx context.Context, f domain.SearchFilter) (usecase.SearchResult, error)
}

// ListingStore serves stored rows without triggering a crawl.
type ListingStore interface {
	Query(ctx context.Context, f domain.SearchFilter) ([]domain.Listing, error)
}

// Handler exposes the HTTP boundary of the scanner.
type Handler struct {
	search SearchService
	store  ListingStore
	logger *slog.Logger
}

// NewHandler wires the pipeline and the read-only store.
func NewHandler(search SearchService, store ListingStore, logger *slog.Logger) *Handler {
	return &Handler{search: search, store: store, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/search", h.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/listings", h.handleListings).Methods(http.MethodGet)
}

// handleSearch accepts the structured filter as JSON and runs the pipeline:
// history check, crawl when needed, normalize, score, and respond with the
// matching rows.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var filter domain.SearchFilter
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&filter); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid filter: "+err.Error())
		return
	}

	result, err := h.search.Search(r.Context(), filter)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// handleListings serves stored rows filtered by query parameters, never
// crawling.
func (h *Handler) handleListings(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listings, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("listing query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(listings),
		"listings": listings,
	})
}

func filterFromQuery(values url.Values) (domain.SearchFilter, error) {
	filter := domain.SearchFilter{
		PropertyType: values.Get("type"),
		Location:     values.Get("location"),
		Sort:         values.Get("sort"),
	}

	var err error
	if filter.MinPrice, err = queryNumber(values, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryNumber(values, "max_price"); err != nil {
		return filter, err
	}
	if filter.MinSize, err = queryNumber(values, "min_size"); err != nil {
		return filter, err
	}
	if filter.MaxSize, err = queryNumber(values, "max_size"); err != nil {
		return filter, err
	}
	if filter.MinRooms, err = queryNumber(values, "min_rooms"); err != nil {
		return filter, err
	}
	if filter.MaxRooms, err = queryNumber(values, "max_rooms"); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryNumber(values url.Values, key string) (*float64, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &badParamError{key: key, value: raw}
	}
	return &v, nil
}

type badParamError struct {
	key   string
	value string
}

func (e *badParamError) Error() string {
	return "invalid " + e.key + ": " + e.value
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
