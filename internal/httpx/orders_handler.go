package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
)

type PlaceOrderReq struct {
	ExternalID string             `json:"external_id"`
	Items      []orders.LineInput `json:"items"`
}

type UpdateStatusReq struct {
	Status orders.Status `json:"status"`
}

type OrdersHandler struct {
	Placer         *orders.Placer
	Store          orders.Store
	Producer       *kafkax.Producer // order.placed
	ProducerReject *kafkax.Producer // order.rejected
	ProducerStatus *kafkax.Producer // order.status.changed
	Redis          *redis.Client
	Logger         *zap.Logger
	Service        string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Patch("/orders/{id}/status", h.updateStatus)
}

// ownerFromRequest reads the identity the gateway already authenticated.
func ownerFromRequest(r *http.Request) (orders.Owner, bool) {
	o := orders.Owner{
		ID:    r.Header.Get("X-User-Id"),
		Name:  r.Header.Get("X-User-Name"),
		Email: r.Header.Get("X-User-Email"),
	}
	return o, o.ID != ""
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing identity")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Placer.PlaceOrder(ctx, owner, req.ExternalID, req.Items)
	if err != nil {
		var pe *orders.PlacementError
		if errors.As(err, &pe) {
			h.publishRejected(owner, pe, r.Header.Get("X-Request-Id"))
			writePlacementError(w, pe)
			return
		}
		h.Logger.Error("place order failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// cache status so reads stay cheap until the consumer takes over
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, order.Status), redisx.TTLStatusCache).Err()
	}

	h.publish(h.Producer, orders.EventOrderPlaced, order.ID, r.Header.Get("X-Request-Id"),
		orders.OrderPlacedPayload{
			OrderID:    order.ID,
			ExternalID: order.ExternalID,
			UserID:     order.Owner.ID,
			Lines:      order.Lines,
			TotalCents: order.TotalCents,
		})

	writeJSON(w, http.StatusCreated, order)
}

func writePlacementError(w http.ResponseWriter, pe *orders.PlacementError) {
	switch pe.Kind {
	case orders.FailProductNotFound:
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": pe.Error(), "product_id": pe.ProductID, "line": pe.Line,
		})
	case orders.FailEmptyOrder, orders.FailInvalidQuantity, orders.FailInsufficientStock:
		body := map[string]any{"error": pe.Error()}
		if pe.ProductID != "" {
			body["product_id"] = pe.ProductID
			body["line"] = pe.Line
		}
		writeJSON(w, http.StatusBadRequest, body)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Store.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		h.Logger.Error("get order failed", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// getOrderStatus serves from the Redis cache when warm, DB otherwise.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	order, err := h.Store.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	body := fmt.Sprintf(`{"status":%q}`, order.Status)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.Filter{
		Page:  atoiDefault(r.URL.Query().Get("page"), 1),
		Limit: atoiDefault(r.URL.Query().Get("limit"), 10),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st := orders.Status(s)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		f.Status = st
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.ListOrders(ctx, f)
	if err != nil {
		h.Logger.Error("list orders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": len(list), "data": list})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	current, err := h.Store.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !orders.CanTransition(current.Status, req.Status) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("cannot transition from %s to %s", current.Status, req.Status))
		return
	}

	updated, err := h.Store.UpdateStatus(ctx, orderID, req.Status)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		h.Logger.Error("update status failed", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, updated.Status), redisx.TTLStatusCache).Err()
	}
	h.publish(h.ProducerStatus, orders.EventOrderStatusChanged, orderID, r.Header.Get("X-Request-Id"),
		orders.OrderStatusChangedPayload{OrderID: orderID, Status: updated.Status})

	writeJSON(w, http.StatusOK, updated)
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, orderID, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishRejected(owner orders.Owner, pe *orders.PlacementError, traceID string) {
	if h.ProducerReject == nil {
		return
	}
	h.publish(h.ProducerReject, orders.EventOrderRejected, "", traceID,
		orders.OrderRejectedPayload{
			Reason:    string(pe.Kind),
			ProductID: pe.ProductID,
			Line:      pe.Line,
			UserID:    owner.ID,
		})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
