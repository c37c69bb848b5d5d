// Package api serves the loopback HTTP API used by the register UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kassir-pos/possync/internal/checkout"
	"github.com/kassir-pos/possync/internal/engine"
	"github.com/kassir-pos/possync/internal/possync"
	"github.com/kassir-pos/possync/internal/refdata"
	"github.com/kassir-pos/possync/internal/sale"
)

// Service is the part of *possync.Service exposed over HTTP.
type Service interface {
	Enqueue(ctx context.Context, data sale.SaleData) (string, error)
	EnqueueAndSync(ctx context.Context, data sale.SaleData) (string, error)
	RunSync(ctx context.Context) (engine.Result, error)
	Status(ctx context.Context) (possync.Status, error)
	Queue(ctx context.Context) ([]possync.QueueEntry, error)
	Refresh(ctx context.Context) (refdata.Summary, error)
	Products(ctx context.Context) ([]sale.Product, error)
	PaymentMethods(ctx context.Context) ([]sale.PaymentMethod, error)
}

// RequestTimeout bounds every request, including a sync run.
const RequestTimeout = 60 * time.Second

// Handler holds the HTTP handlers.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// New creates a Handler. A nil logger selects slog.Default().
func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Router returns the chi router with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	r.Post("/sales", h.CreateSale)
	r.Post("/sync", h.Sync)
	r.Get("/status", h.GetStatus)
	r.Get("/queue", h.ListQueue)

	r.Post("/refresh", h.Refresh)
	r.Get("/products", h.ListProducts)
	r.Get("/payment-methods", h.ListPaymentMethods)
	return r
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CreateSaleResponse is the body of a successful POST /sales.
type CreateSaleResponse struct {
	LocalID string `json:"local_id"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a sale.Error to a status code.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *sale.Error
	if !errors.As(err, &se) {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch {
	case sale.IsInvalidSale(err):
		status = http.StatusBadRequest
	case sale.IsNetworkError(err), sale.IsRemoteRejection(err):
		status = http.StatusBadGateway
		h.logger.Warn("backend call failed", "path", r.URL.Path, "code", se.Code, "error", err)
	case sale.IsStorageError(err):
		h.logger.Error("local storage failure", "path", r.URL.Path, "error", err)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "code", se.Code, "error", err)
	}
	writeError(w, status, string(se.Code), se.Error())
}

// CreateSale enqueues a sale. With ?sync=1 a sync run starts in the
// background once the sale is saved.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var order checkout.Order
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, string(sale.ErrCodeInvalidSale), "invalid JSON body: "+err.Error())
		return
	}

	enqueue := h.svc.Enqueue
	if r.URL.Query().Get("sync") == "1" {
		enqueue = h.svc.EnqueueAndSync
	}

	localID, err := enqueue(r.Context(), order.SaleData())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateSaleResponse{LocalID: localID})
}

// Sync runs one sync pass and reports its counts.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RunSync(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetStatus reports connectivity and queue depth.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListQueue returns every intent still stored locally.
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Queue(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.svc.PaymentMethods(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, methods)
}
