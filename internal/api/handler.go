package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stacksIndexer/internal/model"
	"stacksIndexer/internal/query"
)

// Querier is the read side consumed by the HTTP surface.
type Querier interface {
	ListEvents(ctx context.Context, params query.ListParams) (query.EventPage, error)
	GetEvent(ctx context.Context, txID string) (model.Event, error)
	GetContract(ctx context.Context, contractID string) (query.Contract, error)
	Stats(ctx context.Context) (query.Stats, error)
	EventCounts(ctx context.Context, r query.Range) ([]query.Bucket, error)
	TopContracts(ctx context.Context) ([]query.ContractStats, error)
}

// HandlerFunc is an http handler that reports failures as errors.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

type handler struct {
	q      Querier
	logger *zap.Logger
}

// wrap turns an error-returning handler into an http.HandlerFunc.
func (h *handler) wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) || svcErr.Category == CategoryGeneralError {
				h.logger.Error("request failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
			}
			writeError(w, err)
		}
	}
}

func (h *handler) banner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<h1>stacks event indexer</h1>"))
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) error {
	return h.writeJSON(w, map[string]string{"status": "ok"})
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	page, err := h.q.ListEvents(r.Context(), query.ListParams{
		Page:       intParam(q.Get("page")),
		Limit:      intParam(q.Get("limit")),
		ContractID: q.Get("contractId"),
		EventName:  q.Get("eventName"),
		Filter:     q.Get("filter"),
	})
	if err != nil {
		return fromQuery(err, "list events", "Event not found")
	}
	return h.writeJSON(w, page)
}

func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) error {
	event, err := h.q.GetEvent(r.Context(), chi.URLParam(r, "txId"))
	if err != nil {
		return fromQuery(err, "get event", "Event not found")
	}
	return h.writeJSON(w, event)
}

func (h *handler) getContract(w http.ResponseWriter, r *http.Request) error {
	contract, err := h.q.GetContract(r.Context(), chi.URLParam(r, "contractId"))
	if err != nil {
		return fromQuery(err, "get contract", "Contract not found")
	}
	return h.writeJSON(w, contract)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.q.Stats(r.Context())
	if err != nil {
		return GeneralError(err, "stats")
	}
	return h.writeJSON(w, stats)
}

func (h *handler) eventCounts(w http.ResponseWriter, r *http.Request) error {
	buckets, err := h.q.EventCounts(r.Context(), query.ParseRange(r.URL.Query().Get("range")))
	if err != nil {
		return GeneralError(err, "event counts")
	}
	return h.writeJSON(w, buckets)
}

func (h *handler) topContracts(w http.ResponseWriter, r *http.Request) error {
	contracts, err := h.q.TopContracts(r.Context())
	if err != nil {
		return GeneralError(err, "top contracts")
	}
	return h.writeJSON(w, contracts)
}

func (h *handler) writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
	return nil
}

// intParam parses a query value leniently; anything unparsable is 0.
func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
