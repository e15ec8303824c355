package server

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/global"
	errs "github.com/ctfer-io/covalic/pkg/errors"
)

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
}

// statusFromError normalizes errors into an HTTP status and the body
// returned to clients. Internal errors details are never returned.
func statusFromError(err error) (int, errorBody) {
	if _, ok := err.(*errs.ErrInternal); ok {
		return http.StatusInternalServerError, errorBody{Message: errs.ErrInternalNoSub.Error(), Type: "internal"}
	}

	var (
		verr  *errs.ErrValidation
		nferr *errs.ErrNotFound
		aerr  *errs.ErrAccess
		rerr  *errs.ErrRest
		serr  *errs.ErrScoring
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Message: verr.Error(), Type: "validation", Field: verr.Field}
	case errors.As(err, &nferr):
		return http.StatusBadRequest, errorBody{Message: nferr.Error(), Type: "rest"}
	case errors.As(err, &aerr):
		return http.StatusForbidden, errorBody{Message: aerr.Error(), Type: "access"}
	case errors.As(err, &rerr):
		code := rerr.Code
		if code == 0 {
			code = http.StatusBadRequest
		}
		return code, errorBody{Message: rerr.Error(), Type: "rest"}
	case errors.As(err, &serr):
		return http.StatusInternalServerError, errorBody{Message: serr.Error(), Type: "scoring"}
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Message: errs.ErrUnauthenticated.Error(), Type: "access"}
	case errors.Is(err, errs.ErrLockUnavailable):
		return http.StatusConflict, errorBody{Message: errs.ErrLockUnavailable.Error(), Type: "rest"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Message: err.Error(), Type: "rest"}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorBody{Message: err.Error(), Type: "rest"}
	}
	return http.StatusInternalServerError, errorBody{Message: errs.ErrInternalNoSub.Error(), Type: "internal"}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code, body := statusFromError(err)
	if code >= http.StatusInternalServerError && body.Type != "scoring" {
		global.Log().Error(ctx, "internal error", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
