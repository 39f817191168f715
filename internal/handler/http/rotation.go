package http

import (
	"net/http"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/utils"
	"github.com/tallyvault/tallyvault/models"
)

func (h *Handler) startRotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	status, err := h.services.RotationService.StartRotation(ctx)
	if err != nil {
		log.Err(err).Str("func", "*Handler.startRotation").Msg("error starting key rotation")
		http.Error(w, "error starting key rotation", statusFromError(err))
		return
	}

	utils.WriteJSON(w, status, http.StatusAccepted)
}

// getEpochs serves the company's epoch set with KEK-wrapped key material so
// devices can adopt the hub's epochs before their first push. The material
// only opens for replicas deriving the same company KEK.
func (h *Handler) getEpochs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	records, err := h.services.RotationService.Epochs(ctx)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getEpochs").Msg("error listing key epochs")
		http.Error(w, "error listing key epochs", statusFromError(err))
		return
	}

	utils.WriteJSON(w, models.EpochsResponse{Epochs: records, Length: len(records)}, http.StatusOK)
}

func (h *Handler) getRotationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	status, err := h.services.RotationService.Status(ctx)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getRotationStatus").Msg("error getting rotation status")
		http.Error(w, "error getting rotation status", statusFromError(err))
		return
	}

	utils.WriteJSON(w, status, http.StatusOK)
}
