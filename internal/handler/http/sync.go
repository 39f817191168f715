package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/utils"
	"github.com/tallyvault/tallyvault/models"
)

func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	deviceID, found := utils.GetDeviceIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.ingestBatch").Msg("no device ID was given")
		http.Error(w, "no device ID was given", http.StatusBadRequest)
		return
	}

	var batch models.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		log.Err(err).Str("func", "*Handler.ingestBatch").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	// The authenticated identity wins over whatever the payload claims.
	batch.DeviceID = deviceID

	result, err := h.services.SyncService.IngestBatch(ctx, batch)
	if err != nil {
		log.Err(err).Str("func", "*Handler.ingestBatch").Msg("error ingesting entity batch")
		http.Error(w, "error ingesting entity batch", statusFromError(err))
		return
	}

	utils.WriteJSON(w, result, http.StatusOK)
}

func (h *Handler) getConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Err(err).Str("func", "*Handler.getConflicts").Msg("invalid `since` query parameter")
			http.Error(w, "invalid `since` query parameter, want RFC 3339", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	conflicts, err := h.services.SyncService.Conflicts(ctx, since)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getConflicts").Msg("error getting conflict history")
		http.Error(w, "error getting conflict history", statusFromError(err))
		return
	}

	response := models.ConflictsResponse{
		Conflicts: conflicts,
		Length:    len(conflicts),
	}

	utils.WriteJSON(w, response, http.StatusOK)
}
