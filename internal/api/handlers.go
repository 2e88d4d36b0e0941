package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/example/ec-inventory/internal/api/middleware"
	"github.com/example/ec-inventory/internal/command"
	"github.com/example/ec-inventory/internal/domain/inventory"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/query"
	"go.uber.org/zap"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.With(zap.String("component", "api")),
	}
}

// Variant Handlers

func (h *Handlers) ListVariants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.ListFilter{
		TrackedOnly: q.Get("tracked") == "true",
		Prefix:      q.Get("prefix"),
	}
	if raw := q.Get("low_stock"); raw != "" {
		threshold, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "low_stock must be an integer")
			return
		}
		filter.LowStock = &threshold
	}

	respondJSON(w, http.StatusOK, h.queryHandler.ListVariants(filter))
}

func (h *Handlers) GetVariant(w http.ResponseWriter, r *http.Request) {
	variant, ok := h.queryHandler.GetVariant(r.PathValue("code"))
	if !ok {
		respondError(w, http.StatusNotFound, "variant not found")
		return
	}
	respondJSON(w, http.StatusOK, variant)
}

func (h *Handlers) RegisterVariant(w http.ResponseWriter, r *http.Request) {
	var cmd command.RegisterVariant
	if !decode(w, r, &cmd) {
		return
	}

	variant, err := h.cmdHandler.RegisterVariant(r.Context(), cmd)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	h.logger.Info("variant registered",
		zap.String("variant", variant.Code),
		zap.String("subject", middleware.Subject(r.Context())),
	)
	respondJSON(w, http.StatusCreated, variant)
}

func (h *Handlers) RestockVariant(w http.ResponseWriter, r *http.Request) {
	var cmd command.RestockVariant
	if !decode(w, r, &cmd) {
		return
	}
	cmd.Code = r.PathValue("code")

	variant, err := h.cmdHandler.RestockVariant(r.Context(), cmd)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, variant)
}

func (h *Handlers) SetTracking(w http.ResponseWriter, r *http.Request) {
	var cmd command.SetTracking
	if !decode(w, r, &cmd) {
		return
	}
	cmd.Code = r.PathValue("code")

	variant, err := h.cmdHandler.SetTracking(r.Context(), cmd)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, variant)
}

// Order Handlers

func (h *Handlers) HoldOrder(w http.ResponseWriter, r *http.Request) {
	cmd, ok := decodeOrder(w, r)
	if !ok {
		return
	}
	result, err := h.cmdHandler.HoldOrder(r.Context(), command.HoldOrder(cmd))
	h.respondOrder(w, r, result, err)
}

func (h *Handlers) SellOrder(w http.ResponseWriter, r *http.Request) {
	cmd, ok := decodeOrder(w, r)
	if !ok {
		return
	}
	result, err := h.cmdHandler.SellOrder(r.Context(), command.SellOrder(cmd))
	h.respondOrder(w, r, result, err)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	cmd, ok := decodeOrder(w, r)
	if !ok {
		return
	}
	result, err := h.cmdHandler.CancelOrder(r.Context(), command.CancelOrder(cmd))
	h.respondOrder(w, r, result, err)
}

func (h *Handlers) respondOrder(w http.ResponseWriter, r *http.Request, result *inventory.OrderResult, err error) {
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func decodeOrder(w http.ResponseWriter, r *http.Request) (command.OrderCommand, bool) {
	var cmd command.OrderCommand
	if !decode(w, r, &cmd) {
		return cmd, false
	}
	cmd.OrderID = r.PathValue("id")
	return cmd, true
}

// Helper functions

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// respondDomainError maps service errors onto HTTP statuses.
func (h *Handlers) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidArgument):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, inventory.ErrVariantNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrVariantExists), errors.Is(err, store.ErrVersionConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
