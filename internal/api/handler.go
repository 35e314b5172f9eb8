package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/temba-api/internal/api/serializers"
	"github.com/phrazzld/temba-api/internal/api/shared"
	"github.com/phrazzld/temba-api/internal/config"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
	"github.com/phrazzld/temba-api/internal/platform/logger"
	"github.com/phrazzld/temba-api/internal/store"
)

// Handler serves the v2 resource endpoints. It expects the auth middleware
// to have put a principal on every request context.
type Handler struct {
	stores   *store.Stores
	tx       store.TxManager
	emitter  events.EventEmitter
	logger   *slog.Logger
	pageSize int
	maxBody  int64
}

// NewHandler creates a Handler. Events emitted by write serializers go to
// emitter once their transaction has committed.
func NewHandler(
	stores *store.Stores,
	tx store.TxManager,
	emitter events.EventEmitter,
	cfg config.APIConfig,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if tx == nil {
		tx = store.NoTx
	}
	if emitter == nil {
		emitter = events.NewInMemoryEventEmitter(log)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 250
	}
	maxBody := int64(cfg.MaxBodyBytes)
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handler{
		stores:   stores,
		tx:       tx,
		emitter:  emitter,
		logger:   log.With(slog.String("component", "api")),
		pageSize: pageSize,
		maxBody:  maxBody,
	}
}

// Register mounts every resource on r, a GET for each and a POST for the
// writable ones.
func (h *Handler) Register(r chi.Router) {
	for _, res := range h.resources() {
		r.Get("/"+res.name+".json", res.list)
		r.Get("/"+res.name, res.list)
		if res.writable {
			post := h.writeRoute(res.name)
			r.Post("/"+res.name+".json", post)
			r.Post("/"+res.name, post)
		}
	}
}

// requestContext builds the serializer context of an authenticated request.
func (h *Handler) requestContext(r *http.Request) (*serializers.Context, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return &serializers.Context{Org: p.Org, User: p.User, LookupValues: map[string]string{}}, true
}

func (h *Handler) deps() serializers.Deps {
	return serializers.Deps{Stores: h.stores, Events: h.emitter}
}

func (h *Handler) loggerFor(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, h.logger)
}

// lister describes how one resource is listed.
type lister[T any, R any] struct {
	accepts filter
	list    func(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]T, error)
	read    func(rc *serializers.Context, obj T) R
	id      func(obj T) int64

	// prepare adds request specific state to the serializer context.
	prepare func(ctx context.Context, r *http.Request, rc *serializers.Context) error
}

// listHandler pages through a resource newest first. One row more than
// the page size is fetched to learn whether another page exists.
func listHandler[T any, R any](h *Handler, l lister[T, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, ok := h.requestContext(r)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		opts, err := parseListOptions(r.URL.Query(), l.accepts)
		if err != nil {
			HandleAPIError(w, r, err)
			return
		}
		opts.Limit = h.pageSize + 1

		if l.prepare != nil {
			if err := l.prepare(r.Context(), r, rc); err != nil {
				HandleAPIError(w, r, err)
				return
			}
		}

		items, err := l.list(r.Context(), rc.Org.ID, opts)
		if err != nil {
			HandleAPIError(w, r, fmt.Errorf("listing: %w", err))
			return
		}

		page := Page[R]{Results: make([]R, 0, min(len(items), h.pageSize))}
		if len(items) > h.pageSize {
			items = items[:h.pageSize]
			page.Next = nextURL(r, l.id(items[len(items)-1]))
		}
		for _, item := range items {
			page.Results = append(page.Results, l.read(rc, item))
		}
		shared.RespondWithJSON(w, r, http.StatusOK, page)
	}
}

// writeSerializer is implemented by every write serializer.
type writeSerializer[M any] interface {
	Validate(ctx context.Context, body []byte) error
	Save(ctx context.Context) (M, error)
}

// writer describes how one resource is created and updated.
type writer[M any, R any] struct {
	// find loads the instance named by the lookup values. It reports false
	// when the request should create a new instance. Nil means the resource
	// can only be created.
	find func(ctx context.Context, rc *serializers.Context) (M, bool, error)

	serializer func(deps serializers.Deps, rc *serializers.Context, instance M) writeSerializer[M]
	read       func(rc *serializers.Context, obj M) R

	// prepare adds request specific state to the serializer context.
	prepare func(ctx context.Context, rc *serializers.Context) error
}

// writeHandler validates and saves a request body in one transaction.
// Events emitted while saving are held until the commit and dropped if the
// transaction rolls back.
func writeHandler[M any, R any](h *Handler, wr writer[M, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, ok := h.requestContext(r)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		rc.LookupValues = lookupValues(r)

		body, err := shared.ReadBody(w, r, h.maxBody)
		if err != nil {
			HandleAPIError(w, r, err)
			return
		}

		ctx, batch := events.WithBatch(r.Context())
		var (
			saved   M
			updated bool
		)
		err = h.tx.RunInTx(ctx, func(ctx context.Context) error {
			var instance M
			if wr.find != nil {
				var err error
				if instance, updated, err = wr.find(ctx, rc); err != nil {
					return err
				}
			}
			if wr.prepare != nil {
				if err := wr.prepare(ctx, rc); err != nil {
					return err
				}
			}

			s := wr.serializer(h.deps(), rc, instance)
			if err := s.Validate(ctx, body); err != nil {
				return err
			}
			var err error
			saved, err = s.Save(ctx)
			return err
		})
		if err != nil {
			batch.Discard()
			HandleAPIError(w, r, err)
			return
		}

		if err := batch.Flush(r.Context(), h.emitter); err != nil {
			h.loggerFor(r.Context()).Error("failed to dispatch events after commit", "error", err)
		}

		status := http.StatusCreated
		if updated {
			status = http.StatusOK
		}
		shared.RespondWithJSON(w, r, status, wr.read(rc, saved))
	}
}
