package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/coachboard/internal/convert"
	"github.com/and161185/coachboard/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, convert.ErrorBody{Error: convert.ErrorDetail{Code: code, Message: msg}})
}

// errorStatus maps domain sentinels onto HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	}
	return http.StatusInternalServerError, "internal"
}

// fail writes err as an error envelope. Internal errors are logged, not echoed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", withRequest(r, zap.Error(err))...)
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}
