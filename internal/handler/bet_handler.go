package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aposta-be/internal/domain"
	"aposta-be/internal/service"
	"aposta-be/pkg/errors"
	"aposta-be/pkg/logger"
)

// BetHandler exposes the bet and day operations over HTTP. All validation
// lives in the ledger; this layer only decodes requests and translates the
// error taxonomy to status codes.
type BetHandler struct {
	service *service.BetService
	log     *logger.Logger
}

func NewBetHandler(service *service.BetService, log *logger.Logger) *BetHandler {
	return &BetHandler{service: service, log: log}
}

// RegisterRoutes mounts the bet routes on the given router
func (h *BetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/bets", func(r chi.Router) {
		r.Get("/", h.ListBets)
		r.Post("/", h.CreateBet)

		r.Route("/{betID}", func(r chi.Router) {
			r.Get("/", h.GetBet)
			r.Delete("/", h.DeleteBet)
			r.Get("/summary", h.GetSummary)

			r.Post("/days", h.RegisterDay)
			r.Put("/days/{date}", h.EditDay)
			r.Delete("/days/{date}", h.DeleteDay)
		})
	})
}

// ListBets handles GET /api/bets
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	bets, err := h.service.ListBets(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bets)
}

// GetBet handles GET /api/bets/{betID}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.betID(w, r)
	if !ok {
		return
	}

	bet, err := h.service.GetBet(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bet)
}

// CreateBet handles POST /api/bets
func (h *BetHandler) CreateBet(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errors.NewValidationError(errors.CodeValidation, "invalid request body", nil))
		return
	}

	bet, err := h.service.CreateBet(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, bet)
}

// DeleteBet handles DELETE /api/bets/{betID}
func (h *BetHandler) DeleteBet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.betID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBet(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RegisterDay handles POST /api/bets/{betID}/days
func (h *BetHandler) RegisterDay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.betID(w, r)
	if !ok {
		return
	}

	var req domain.RegisterDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errors.NewValidationError(errors.CodeValidation, "invalid request body", nil))
		return
	}

	bet, err := h.service.RegisterDay(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bet)
}

// EditDay handles PUT /api/bets/{betID}/days/{date}
func (h *BetHandler) EditDay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.betID(w, r)
	if !ok {
		return
	}

	var req struct {
		Attendance map[string]bool `json:"attendance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errors.NewValidationError(errors.CodeValidation, "invalid request body", nil))
		return
	}

	bet, err := h.service.EditDay(r.Context(), id, chi.URLParam(r, "date"), req.Attendance)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bet)
}

// DeleteDay handles DELETE /api/bets/{betID}/days/{date}
func (h *BetHandler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.betID(w, r)
	if !ok {
		return
	}

	bet, err := h.service.DeleteDay(r.Context(), id, chi.URLParam(r, "date"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bet)
}

// GetSummary handles GET /api/bets/{betID}/summary
func (h *BetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.betID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, summary)
}

// Helper methods

func (h *BetHandler) betID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "betID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, errors.NewValidationError(errors.CodeValidation, "bet id must be a positive integer", nil))
		return 0, false
	}
	return id, true
}

func (h *BetHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Error("Failed to encode response")
	}
}

func (h *BetHandler) respondError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.log.WithError(appErr).Error("Request failed")
	} else {
		h.log.WithError(appErr).Debug("Request rejected")
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Code = appErr.Code
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	h.respondJSON(w, appErr.StatusCode, response)
}
