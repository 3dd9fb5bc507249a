package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inkforge/studio-fulfillment/internal/fulfillment"
	"github.com/inkforge/studio-fulfillment/internal/orders"
	"github.com/inkforge/studio-fulfillment/internal/redisx"
)

type Fulfiller interface {
	Fulfill(ctx context.Context, orderID string) (*fulfillment.Report, error)
}

type StatusReader interface {
	GetStatus(ctx context.Context, orderID string) (orders.Status, error)
}

type FulfillmentHandler struct {
	Orchestrator Fulfiller
	Orders       StatusReader
	Redis        *redis.Client
	Logger       *zap.Logger
}

func (h *FulfillmentHandler) Register(r *chi.Mux) {
	r.Post("/orders/{id}/fulfill", h.fulfill)
	r.Get("/orders/{id}", h.getOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *FulfillmentHandler) fulfill(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "id"))
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	rep, err := h.Orchestrator.Fulfill(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found", "order_id": orderID})
		return
	}
	if err != nil {
		h.Logger.Error("fulfillment aborted", zap.String("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "order could not be loaded", "order_id": orderID})
		return
	}
	// Partial producer failure is still a 200: the report carries it.
	writeJSON(w, http.StatusOK, rep)
}

func (h *FulfillmentHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "id"))
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	status, err := h.Orders.GetStatus(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	body := map[string]any{"status": status}
	if h.Redis != nil {
		b, _ := json.Marshal(body)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, body)
}
