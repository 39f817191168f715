package http

import (
	"errors"
	"net/http"

	"github.com/tallyvault/tallyvault/internal/engine"
	"github.com/tallyvault/tallyvault/internal/rotation"
	"github.com/tallyvault/tallyvault/internal/service"
	"github.com/tallyvault/tallyvault/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrDeviceRevoked:           http.StatusForbidden,

	engine.ErrEmptyEdit:       http.StatusBadRequest,
	engine.ErrCompanyMismatch: http.StatusForbidden,
	engine.ErrNoActiveEpoch:   http.StatusServiceUnavailable,

	rotation.ErrRotationInProgress:   http.StatusConflict,
	rotation.ErrNoRotationInProgress: http.StatusConflict,
	rotation.ErrRewrapIncomplete:     http.StatusConflict,
	rotation.ErrNoActiveEpoch:        http.StatusServiceUnavailable,

	store.ErrEntityNotFound:      http.StatusNotFound,
	store.ErrDeviceNotFound:      http.StatusNotFound,
	store.ErrDeviceAlreadyExists: http.StatusConflict,
	store.ErrEpochNotFound:       http.StatusNotFound,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
