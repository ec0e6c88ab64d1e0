package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/posterarr/posterarr/internal/controllers"
	"github.com/sirupsen/logrus"
)

// DownloadHandler runs the download-and-apply workflow
type DownloadHandler struct {
	downloadCtrl *controllers.DownloadController
	logger       *logrus.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloadCtrl *controllers.DownloadController, logger *logrus.Logger) *DownloadHandler {
	return &DownloadHandler{downloadCtrl: downloadCtrl, logger: logger}
}

// Apply handles POST /download/apply. The run is synchronous; closing the
// connection cancels it.
func (h *DownloadHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req controllers.ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Set.ID == "" {
		writeError(w, http.StatusBadRequest, "set ID is required", nil)
		return
	}
	if len(req.Selections) == 0 {
		writeError(w, http.StatusBadRequest, "at least one target selection is required", nil)
		return
	}

	result, err := h.downloadCtrl.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, controllers.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "a download run is already in progress", nil)
			return
		}
		h.logger.WithError(err).Error("Download run failed")
		writeError(w, http.StatusInternalServerError, "download run failed", err)
		return
	}

	writeSuccess(w, "", result)
}

// Progress handles GET /download/progress
func (h *DownloadHandler) Progress(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "", h.downloadCtrl.Progress())
}
