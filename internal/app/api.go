package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/whimsicalfrog/stock/internal/domain"
	"github.com/whimsicalfrog/stock/internal/service/gateway"
)

// apiHandler — JSON HTTP API над gateway и проекциями.
// Все мутации стока проходят через gateway; каталожные операции
// (создание товара, добавление вариантов) идут напрямую в хранилище.
type apiHandler struct {
	store       domain.StockStore
	gateway     *gateway.Gateway
	projections *gateway.Projections
	logger      *log.Entry
}

func newAPIHandler(store domain.StockStore, gw *gateway.Gateway, projections *gateway.Projections, logger *log.Entry) http.Handler {
	h := &apiHandler{
		store:       store,
		gateway:     gw,
		projections: projections,
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/items", h.createItem)
	mux.HandleFunc("DELETE /v1/items/{sku}", h.deleteItem)
	mux.HandleFunc("GET /v1/items/{sku}", h.itemBreakdown)
	mux.HandleFunc("POST /v1/items/{sku}/colors", h.addColorVariant)
	mux.HandleFunc("POST /v1/items/{sku}/sizes", h.addSizeVariant)
	mux.HandleFunc("GET /v1/items/{sku}/stock", h.aggregateStock)
	mux.HandleFunc("GET /v1/items/{sku}/stock/{dimension}", h.variantBreakdown)
	mux.HandleFunc("POST /v1/items/{sku}/stock", h.applyMutation)
	mux.HandleFunc("POST /v1/items/{sku}/variants/{dimension}/{id}/active", h.setVariantActive)
	mux.HandleFunc("GET /v1/items/{sku}/movements", h.movements)
	return mux
}

type createItemRequest struct {
	SKU       string `json:"sku"`
	Aggregate int    `json:"aggregate"`
}

type variantPayload struct {
	ID     int64  `json:"id"`
	Name   string `json:"name,omitempty"`
	Code   string `json:"code,omitempty"`
	Stock  int    `json:"stock"`
	Active bool   `json:"active"`
}

type variantStockPayload struct {
	ID    int64 `json:"id"`
	Stock int   `json:"stock"`
}

type movementPayload struct {
	ID           string `json:"id"`
	Dimension    string `json:"dimension"`
	VariantID    int64  `json:"variant_id,omitempty"`
	Delta        int    `json:"delta"`
	OldAggregate int    `json:"old_aggregate"`
	NewAggregate int    `json:"new_aggregate"`
	Source       string `json:"source"`
	CreatedAt    string `json:"created_at"`
}

func colorPayloads(colors []domain.ColorVariant) []variantPayload {
	out := make([]variantPayload, 0, len(colors))
	for _, c := range colors {
		out = append(out, variantPayload{ID: c.ID, Name: c.Name, Stock: c.Stock, Active: c.Active})
	}
	return out
}

func sizePayloads(sizes []domain.SizeVariant) []variantPayload {
	out := make([]variantPayload, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, variantPayload{ID: s.ID, Code: s.Code, Stock: s.Stock, Active: s.Active})
	}
	return out
}

func variantStockPayloads(stocks []domain.VariantStock) []variantStockPayload {
	out := make([]variantStockPayload, 0, len(stocks))
	for _, v := range stocks {
		out = append(out, variantStockPayload{ID: v.ID, Stock: v.Stock})
	}
	return out
}

func (h *apiHandler) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.store.CreateItem(r.Context(), domain.Item{SKU: req.SKU, Aggregate: req.Aggregate})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"sku": req.SKU})
}

func (h *apiHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteItem(r.Context(), r.PathValue("sku")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) itemBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.projections.ItemBreakdown(r.Context(), r.PathValue("sku"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"sku":           breakdown.Item.SKU,
		"aggregate":     breakdown.Item.Aggregate,
		"tracking_mode": breakdown.Mode,
		"colors":        colorPayloads(breakdown.Colors),
		"sizes":         sizePayloads(breakdown.Sizes),
	})
}

type addVariantRequest struct {
	Name   string `json:"name,omitempty"`
	Code   string `json:"code,omitempty"`
	Stock  int    `json:"stock"`
	Active bool   `json:"active"`
}

func (h *apiHandler) addColorVariant(w http.ResponseWriter, r *http.Request) {
	var req addVariantRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.store.AddColorVariant(r.Context(), domain.ColorVariant{
		SKU:    r.PathValue("sku"),
		Name:   req.Name,
		Stock:  req.Stock,
		Active: req.Active,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *apiHandler) addSizeVariant(w http.ResponseWriter, r *http.Request) {
	var req addVariantRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.store.AddSizeVariant(r.Context(), domain.SizeVariant{
		SKU:    r.PathValue("sku"),
		Code:   req.Code,
		Stock:  req.Stock,
		Active: req.Active,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *apiHandler) aggregateStock(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")
	aggregate, err := h.projections.AggregateStock(r.Context(), sku)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sku": sku, "aggregate": aggregate})
}

func (h *apiHandler) variantBreakdown(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.projections.VariantBreakdown(
		r.Context(),
		r.PathValue("sku"),
		domain.Dimension(r.PathValue("dimension")),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"variants": variantStockPayloads(stocks)})
}

type mutationRequest struct {
	Dimension string `json:"dimension"`
	VariantID int64  `json:"variant_id,omitempty"`
	Op        string `json:"op"`
	Value     int    `json:"value"`
	Source    string `json:"source"`
}

func (h *apiHandler) applyMutation(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.gateway.Apply(r.Context(), domain.MutationIntent{
		SKU:       r.PathValue("sku"),
		Dimension: domain.Dimension(req.Dimension),
		VariantID: req.VariantID,
		Op:        domain.Op(req.Op),
		Value:     req.Value,
		Source:    req.Source,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeMutationResult(w, result)
}

type activationRequest struct {
	Active bool   `json:"active"`
	Source string `json:"source"`
}

func (h *apiHandler) setVariantActive(w http.ResponseWriter, r *http.Request) {
	var req activationRequest
	if !h.decode(w, r, &req) {
		return
	}

	variantID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variant id"})
		return
	}

	sku := r.PathValue("sku")
	var result gateway.Result
	switch domain.Dimension(r.PathValue("dimension")) {
	case domain.DimensionColor:
		result, err = h.gateway.SetColorActive(r.Context(), sku, variantID, req.Active, req.Source)
	case domain.DimensionSize:
		result, err = h.gateway.SetSizeActive(r.Context(), sku, variantID, req.Active, req.Source)
	default:
		h.writeError(w, domain.ErrUnknownDimension)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeMutationResult(w, result)
}

func (h *apiHandler) movements(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	movements, err := h.projections.Movements(r.Context(), r.PathValue("sku"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload := make([]movementPayload, 0, len(movements))
	for _, m := range movements {
		payload = append(payload, movementPayload{
			ID:           m.ID,
			Dimension:    string(m.Dimension),
			VariantID:    m.VariantID,
			Delta:        m.Delta,
			OldAggregate: m.OldAggregate,
			NewAggregate: m.NewAggregate,
			Source:       m.Source,
			CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"movements": payload})
}

func (h *apiHandler) writeMutationResult(w http.ResponseWriter, result gateway.Result) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"sku":       result.SKU,
		"aggregate": result.Aggregate,
		"colors":    variantStockPayloads(result.Colors),
		"sizes":     variantStockPayloads(result.Sizes),
	})
}

func (h *apiHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *apiHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsConflict(err) || errors.Is(err, domain.ErrItemExists):
		status = http.StatusConflict
	case domain.IsReconciliation(err):
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("stock api request failed")
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Warn("failed to encode response")
	}
}
