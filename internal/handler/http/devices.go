package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/utils"
	"github.com/tallyvault/tallyvault/models"
)

func (h *Handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var request models.DeviceRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Str("func", "*Handler.registerDevice").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	device, token, err := h.services.DeviceService.RegisterDevice(ctx, request.DeviceID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.registerDevice").Msg("error registering device")
		http.Error(w, "error registering device", statusFromError(err))
		return
	}

	response := models.DeviceRegistrationResponse{
		Device: device,
		Token:  token.SignedString,
	}

	utils.WriteJSON(w, response, http.StatusCreated)
}

func (h *Handler) revokeDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	deviceID := chi.URLParam(r, "id")
	if deviceID == "" {
		log.Error().Str("func", "*Handler.revokeDevice").Msg("no device ID was given")
		http.Error(w, "no device ID was given", http.StatusBadRequest)
		return
	}

	status, err := h.services.DeviceService.RevokeDevice(ctx, deviceID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.revokeDevice").Msg("error revoking device")
		http.Error(w, "error revoking device", statusFromError(err))
		return
	}

	utils.WriteJSON(w, status, http.StatusOK)
}
