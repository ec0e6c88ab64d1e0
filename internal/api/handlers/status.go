package handlers

import (
	"net/http"

	"github.com/posterarr/posterarr/internal/controllers"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
)

// StatusHandler reports store counters and the current run state
type StatusHandler struct {
	db           *models.Database
	downloadCtrl *controllers.DownloadController
	logger       *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, downloadCtrl *controllers.DownloadController, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:           db,
		downloadCtrl: downloadCtrl,
		logger:       logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	SavedItems     int                  `json:"savedItems"`
	SavedSets      int                  `json:"savedSets"`
	AutoDownload   int                  `json:"autoDownload"`
	CachedSections int                  `json:"cachedSections"`
	Run            controllers.Progress `json:"run"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.GetAllSavedItems()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get saved records")
		writeError(w, http.StatusInternalServerError, "failed to read saved records", err)
		return
	}
	sections, err := h.db.GetAllSections()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cached sections")
		writeError(w, http.StatusInternalServerError, "failed to read cached sections", err)
		return
	}

	resp := StatusResponse{
		SavedItems:     len(items),
		CachedSections: len(sections),
		Run:            h.downloadCtrl.Progress(),
	}
	for _, item := range items {
		resp.SavedSets += len(item.Sets)
		for _, set := range item.Sets {
			if set.AutoDownload {
				resp.AutoDownload++
			}
		}
	}

	writeSuccess(w, "", resp)
}
