package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/common"
)

// Haptic: подсказка клиенту, какой тактильный отклик показать.
type Haptic string

const (
	HapticSuccess Haptic = "success"
	HapticError   Haptic = "error"
	HapticWarning Haptic = "warning"
)

type envelope struct {
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Haptic Haptic `json:"haptic,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Ошибка кодирования JSON ответа")
	}
}

// writeData отвечает 200 с данными и тактильной подсказкой.
func writeData(w http.ResponseWriter, haptic Haptic, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Haptic: haptic})
}

// writeError переводит ошибку сервиса в HTTP-статус.
// Текст внутренних ошибок наружу не отдаётся.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, haptic := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("Ошибка обработки запроса")
		msg = "внутренняя ошибка, попробуйте позже"
	}
	writeJSON(w, status, envelope{Error: msg, Haptic: haptic})
}

// statusFor: соответствие ошибок и кодов ответа.
func statusFor(err error) (int, Haptic) {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, HapticError
	case errors.Is(err, common.ErrUserBanned), errors.Is(err, common.ErrNotAdmin):
		return http.StatusForbidden, HapticError
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, HapticError
	case common.IsValidation(err):
		return http.StatusUnprocessableEntity, HapticError
	case errors.Is(err, common.ErrInsufficientBalance):
		return http.StatusPaymentRequired, HapticError
	case errors.Is(err, common.ErrRoundInProgress),
		errors.Is(err, common.ErrInvalidAction),
		errors.Is(err, common.ErrNoActiveRound),
		errors.Is(err, common.ErrBonusAlreadyClaimed),
		errors.Is(err, common.ErrTicketAlreadyClaimed),
		errors.Is(err, common.ErrReferralAlreadyActivated):
		return http.StatusConflict, HapticWarning
	case errors.Is(err, common.ErrPaymentNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrReferralCodeNotFound):
		return http.StatusNotFound, HapticError
	case errors.Is(err, common.ErrLedgerUnavailable),
		errors.Is(err, common.ErrCasinoDisabled),
		errors.Is(err, common.ErrFeatureDisabled):
		return http.StatusServiceUnavailable, HapticWarning
	}
	return http.StatusInternalServerError, HapticError
}
