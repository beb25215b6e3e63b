// Package api serves read-only JSON queries over the stored aggregates.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/observability"
	"dex-daydata/internal/storage"
	chstore "dex-daydata/internal/storage/clickhouse"
)

// Cache serves the latest JSON of one aggregate record.
// Get returns storage.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, kind domain.AggregateKind, id string) (json.RawMessage, error)
}

// History lists every stored version of one aggregate record, oldest first.
type History interface {
	History(ctx context.Context, kind domain.AggregateKind, id string) ([]chstore.SnapshotRow, error)
}

// Options contains configuration for creating a Server.
type Options struct {
	Stores  *storage.Stores
	Cache   Cache        // optional
	History History      // optional
	Stream  http.Handler // optional, served on GET /aggregates/stream
	Backend string       // database label for query metrics, default "store"
	Logger  logrus.FieldLogger
}

// Server routes query requests to the aggregate stores.
type Server struct {
	stores  *storage.Stores
	cache   Cache
	history History
	backend string
	logger  logrus.FieldLogger
	mux     *http.ServeMux
}

// New creates a Server with all routes registered.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	backend := opts.Backend
	if backend == "" {
		backend = "store"
	}

	s := &Server{
		stores:  opts.Stores,
		cache:   opts.Cache,
		history: opts.History,
		backend: backend,
		logger:  logger.WithField("component", "api"),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /dex/days", s.handleDexDays)
	s.mux.HandleFunc("GET /pairs/{address}/days", s.handlePairDays)
	s.mux.HandleFunc("GET /pairs/{address}/hours", s.handlePairHours)
	s.mux.HandleFunc("GET /tokens/{address}/days", s.handleTokenDays)
	s.mux.HandleFunc("GET /users/{address}/days", s.handleUserDays)
	s.mux.HandleFunc("GET /aggregates/{kind}/{id}", s.handleAggregate)
	s.mux.HandleFunc("GET /aggregates/{kind}/{id}/history", s.handleHistory)
	if opts.Stream != nil {
		s.mux.Handle("GET /aggregates/stream", opts.Stream)
	}
	return s
}

// Handle registers an extra handler, e.g. /metrics.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// ServeHTTP counts every response by route pattern and status.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	observability.RecordAPIRequest(route, rec.status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket handlers take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// ListResponse wraps range query results.
type ListResponse[T any] struct {
	Items []*T `json:"items"`
	Count int  `json:"count"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleDexDays(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items, err := query(r.Context(), s, "dex_days_range", func(ctx context.Context) ([]*domain.DexDayData, error) {
		return s.stores.DexDays.GetByTimeRange(ctx, from, to)
	})
	writeList(s, w, items, err)
}

func (s *Server) handlePairDays(w http.ResponseWriter, r *http.Request) {
	addr, from, to, ok := s.entityRange(w, r)
	if !ok {
		return
	}
	items, err := query(r.Context(), s, "pair_days_range", func(ctx context.Context) ([]*domain.PairDayData, error) {
		return s.stores.PairDays.GetByTimeRange(ctx, addr, from, to)
	})
	writeList(s, w, items, err)
}

func (s *Server) handlePairHours(w http.ResponseWriter, r *http.Request) {
	addr, from, to, ok := s.entityRange(w, r)
	if !ok {
		return
	}
	items, err := query(r.Context(), s, "pair_hours_range", func(ctx context.Context) ([]*domain.PairHourData, error) {
		return s.stores.PairHours.GetByTimeRange(ctx, addr, from, to)
	})
	writeList(s, w, items, err)
}

func (s *Server) handleTokenDays(w http.ResponseWriter, r *http.Request) {
	addr, from, to, ok := s.entityRange(w, r)
	if !ok {
		return
	}
	items, err := query(r.Context(), s, "token_days_range", func(ctx context.Context) ([]*domain.TokenDayData, error) {
		return s.stores.TokenDays.GetByTimeRange(ctx, addr, from, to)
	})
	writeList(s, w, items, err)
}

func (s *Server) handleUserDays(w http.ResponseWriter, r *http.Request) {
	addr, from, to, ok := s.entityRange(w, r)
	if !ok {
		return
	}
	items, err := query(r.Context(), s, "user_pair_days_range", func(ctx context.Context) ([]*domain.UserPairDayData, error) {
		return s.stores.UserPairDays.GetByTimeRange(ctx, addr, from, to)
	})
	writeList(s, w, items, err)
}

// handleAggregate serves one record by kind and composite id, from the
// cache when it has it.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	kind := domain.AggregateKind(r.PathValue("kind"))
	id := strings.ToLower(r.PathValue("id"))
	ctx := r.Context()

	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", errUnknownKind, kind))
		return
	}

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, kind, id)
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.Write(raw)
			return
		case !errors.Is(err, storage.ErrNotFound):
			s.logger.WithError(err).Warn("Cache lookup failed, falling back to store")
		}
	}

	record, err := query(ctx, s, "get_"+string(kind), func(ctx context.Context) (any, error) {
		return s.getRecord(ctx, kind, id)
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, record)
}

// HistoryEntry is one stored version of an aggregate record.
type HistoryEntry struct {
	Version uint64          `json:"version"`
	Created bool            `json:"created"`
	Record  json.RawMessage `json:"record"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	kind := domain.AggregateKind(r.PathValue("kind"))
	id := strings.ToLower(r.PathValue("id"))

	if s.history == nil {
		writeError(w, http.StatusNotImplemented, errors.New("snapshot history is not configured"))
		return
	}
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", errUnknownKind, kind))
		return
	}

	start := time.Now()
	rows, err := s.history.History(r.Context(), kind, id)
	observability.RecordDBQuery("clickhouse", "history", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("no history for %s %s", kind, id))
		return
	}

	entries := make([]*HistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = &HistoryEntry{
			Version: row.Version,
			Created: row.Created,
			Record:  json.RawMessage(row.Payload),
		}
	}
	writeJSON(w, http.StatusOK, ListResponse[HistoryEntry]{Items: entries, Count: len(entries)})
}

var errUnknownKind = errors.New("unknown aggregate kind")

func (s *Server) getRecord(ctx context.Context, kind domain.AggregateKind, id string) (any, error) {
	switch kind {
	case domain.AggregateDexDay:
		return s.stores.DexDays.Get(ctx, id)
	case domain.AggregatePairDay:
		return s.stores.PairDays.Get(ctx, id)
	case domain.AggregatePairHour:
		return s.stores.PairHours.Get(ctx, id)
	case domain.AggregateUserPairDay:
		return s.stores.UserPairDays.Get(ctx, id)
	case domain.AggregateTokenDay:
		return s.stores.TokenDays.Get(ctx, id)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownKind, kind)
}

// query runs fn and records its duration under operation.
func query[T any](ctx context.Context, s *Server, operation string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := fn(ctx)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, errUnknownKind) {
		observability.RecordDBQuery(s.backend, operation, time.Since(start).Seconds(), nil)
	} else {
		observability.RecordDBQuery(s.backend, operation, time.Since(start).Seconds(), err)
	}
	return v, err
}

// entityRange parses the address path value and the from/to range,
// writing a 400 and returning false on bad input.
func (s *Server) entityRange(w http.ResponseWriter, r *http.Request) (string, int64, int64, bool) {
	addr := r.PathValue("address")
	if !common.IsHexAddress(addr) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%q is not an address", addr))
		return "", 0, 0, false
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", 0, 0, false
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), from, to, true
}

// parseRange reads the inclusive from/to unix second bounds. Both are optional.
func parseRange(r *http.Request) (int64, int64, error) {
	from, err := parseBound(r, "from", 0)
	if err != nil {
		return 0, 0, err
	}
	to, err := parseBound(r, "to", math.MaxInt64)
	if err != nil {
		return 0, 0, err
	}
	if from > to {
		return 0, 0, fmt.Errorf("from %d is after to %d", from, to)
	}
	return from, to, nil
}

func parseBound(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative unix timestamp", name)
	}
	return v, nil
}

func writeList[T any](s *Server, w http.ResponseWriter, items []*T, err error) {
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if items == nil {
		items = []*T{}
	}
	writeJSON(w, http.StatusOK, ListResponse[T]{Items: items, Count: len(items)})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, errUnknownKind):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.WithError(err).Error("Store query failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
