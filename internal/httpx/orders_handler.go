package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pizzabox/order-core/internal/logger"
	"github.com/pizzabox/order-core/internal/orders"
)

type OrderService interface {
	Submit(ctx context.Context, req orders.SubmitRequest) (*orders.Order, error)
	Order(ctx context.Context, id string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status, actor orders.Actor) (*orders.Order, error)
	AssignPartner(ctx context.Context, orderID, partnerID string, actor orders.Actor) (*orders.Order, error)
	Activate(ctx context.Context, orderID string, actor orders.Actor) (*orders.Order, error)
	EnsureInvoiceNumber(ctx context.Context, orderID string) (*orders.Order, error)
}

// Idempotency is satisfied by redisx.Idempotency.
type Idempotency interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, orderID string) error
}

// StatusCache is satisfied by redisx.StatusCache. The service writes a fresh
// copy after each change; the read path only fills misses.
type StatusCache interface {
	Get(ctx context.Context, orderID string) ([]byte, bool, error)
	Put(ctx context.Context, orderID string, version int64, b []byte) error
}

type OrdersHandler struct {
	Service OrderService
	// Idempotency and Cache are optional.
	Idempotency Idempotency
	Cache       StatusCache
	// Production hides internal error detail from responses.
	Production bool
}

const HeaderIdempotencyKey = "Idempotency-Key"

const maxOrderRequestBody = 64 * 1024

type SubmitResp struct {
	Order      *orders.Order `json:"order"`
	Idempotent bool          `json:"idempotent"`
}

type statusReq struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

type assignReq struct {
	PartnerID string `json:"partner_id"`
	Actor     string `json:"actor"`
}

type actorReq struct {
	Actor string `json:"actor"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.submit)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Post("/orders/{id}/assign", h.assignPartner)
	r.Post("/orders/{id}/activate", h.activate)
	r.Post("/orders/{id}/invoice", h.ensureInvoice)
}

// decodeBody reads one JSON value of at most maxOrderRequestBody bytes.
// It writes the error response itself and reports whether decoding worked.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxOrderRequestBody)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: &orders.Rejection{Code: "BODY_TOO_LARGE", Message: "request body too large"}})
			return false
		}
		badRequest(w, "invalid json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error *orders.Rejection `json:"error"`
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: &orders.Rejection{Code: "INVALID_REQUEST", Message: msg}})
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, orders.ErrEligibility), errors.Is(kind, orders.ErrCatalog), errors.Is(kind, orders.ErrCoupon):
		return http.StatusUnprocessableEntity
	case errors.Is(kind, orders.ErrPayment):
		return http.StatusPaymentRequired
	case errors.Is(kind, orders.ErrOutOfStock), errors.Is(kind, orders.ErrTransition):
		return http.StatusConflict
	case errors.Is(kind, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, orders.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *OrdersHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := orders.AsRejection(err); ok {
		writeJSON(w, statusFor(rej.Kind), errorBody{Error: rej})
		return
	}
	logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
	msg := "Something went wrong, please try again"
	if !h.Production {
		msg = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: &orders.Rejection{Code: "INTERNAL", Message: msg}})
}

func parseActor(s string, def orders.Actor) (orders.Actor, bool) {
	if s == "" {
		return def, true
	}
	return orders.ParseActor(strings.ToUpper(s))
}

func (h *OrdersHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req orders.SubmitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	log := logger.FromContext(ctx)

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key != "" && h.Idempotency != nil {
		// Redis is a shortcut only; on error fall through and submit.
		id, ok, err := h.Idempotency.Lookup(ctx, key)
		if err != nil {
			log.Warn("idempotency lookup", zap.Error(err))
		} else if ok {
			o, err := h.Service.Order(ctx, id)
			if err == nil {
				writeJSON(w, http.StatusOK, SubmitResp{Order: o, Idempotent: true})
				return
			}
			log.Warn("idempotent replay", zap.String("order_id", id), zap.Error(err))
		}
	}

	o, err := h.Service.Submit(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if key != "" && h.Idempotency != nil {
		if err := h.Idempotency.Remember(ctx, key, o.ID); err != nil {
			log.Warn("idempotency remember", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, SubmitResp{Order: o})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		if b, ok, err := h.Cache.Get(ctx, id); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(b)
			return
		}
	}

	o, err := h.Service.Order(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Put(ctx, id, o.CacheVersion(), b); err != nil {
			logger.FromContext(ctx).Warn("cache order", zap.String("order_id", id), zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if !decodeBody(w, r, &req) {
		return
	}
	to, ok := orders.ParseStatus(strings.ToUpper(req.Status))
	if !ok {
		badRequest(w, "unknown status")
		return
	}
	actor, ok := parseActor(req.Actor, orders.ActorKitchen)
	if !ok {
		badRequest(w, "unknown actor")
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*orders.Order, error) {
		return h.Service.UpdateStatus(ctx, id, to, actor)
	})
}

func (h *OrdersHandler) assignPartner(w http.ResponseWriter, r *http.Request) {
	var req assignReq
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PartnerID == "" {
		badRequest(w, "partner_id is required")
		return
	}
	actor, ok := parseActor(req.Actor, orders.ActorKitchen)
	if !ok {
		badRequest(w, "unknown actor")
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*orders.Order, error) {
		return h.Service.AssignPartner(ctx, id, req.PartnerID, actor)
	})
}

func (h *OrdersHandler) activate(w http.ResponseWriter, r *http.Request) {
	var req actorReq
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	actor, ok := parseActor(req.Actor, orders.ActorAdmin)
	if !ok {
		badRequest(w, "unknown actor")
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*orders.Order, error) {
		return h.Service.Activate(ctx, id, actor)
	})
}

func (h *OrdersHandler) ensureInvoice(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.EnsureInvoiceNumber)
}

// mutate runs fn for the {id} in the path. The service refreshes the cached copy.
func (h *OrdersHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*orders.Order, error)) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := fn(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
