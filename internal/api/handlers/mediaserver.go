package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/posterarr/posterarr/internal/controllers"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
)

// MediaServerHandler serves library sections and items
type MediaServerHandler struct {
	libraryCtrl  *controllers.LibraryController
	downloadCtrl *controllers.DownloadController
	logger       *logrus.Logger
}

// NewMediaServerHandler creates a new media server handler
func NewMediaServerHandler(libraryCtrl *controllers.LibraryController, downloadCtrl *controllers.DownloadController, logger *logrus.Logger) *MediaServerHandler {
	return &MediaServerHandler{
		libraryCtrl:  libraryCtrl,
		downloadCtrl: downloadCtrl,
		logger:       logger,
	}
}

// Sections handles GET /mediaserver/sections/
func (h *MediaServerHandler) Sections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.libraryCtrl.GetSections(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get sections")
		writeError(w, http.StatusBadGateway, "failed to fetch library sections", err)
		return
	}
	writeSuccess(w, "", sections)
}

// SectionItems handles GET /mediaserver/sections/items?section=Title
func (h *MediaServerHandler) SectionItems(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("section")
	if title == "" {
		writeError(w, http.StatusBadRequest, "section query parameter is required", nil)
		return
	}

	items, err := h.libraryCtrl.GetSectionItems(r.Context(), title)
	if err != nil {
		h.logger.WithError(err).WithField("section", title).Error("Failed to get section items")
		writeError(w, http.StatusBadGateway, "failed to fetch section items", err)
		return
	}
	writeSuccess(w, "", items)
}

// Item handles GET /mediaserver/item/{ratingKey}
func (h *MediaServerHandler) Item(w http.ResponseWriter, r *http.Request) {
	ratingKey := r.PathValue("ratingKey")
	if ratingKey == "" {
		writeError(w, http.StatusBadRequest, "rating key is required", nil)
		return
	}

	item, err := h.libraryCtrl.GetItem(r.Context(), ratingKey)
	if err != nil {
		h.logger.WithError(err).WithField("rating_key", ratingKey).Error("Failed to get item")
		writeError(w, http.StatusBadGateway, "failed to fetch item", err)
		return
	}
	writeSuccess(w, "", item)
}

type downloadFileRequest struct {
	Item  models.MediaItem  `json:"item"`
	Asset models.PosterFile `json:"asset"`
}

// DownloadFile handles PATCH /mediaserver/download/file, the single-asset
// download-and-apply used for manual retries
func (h *MediaServerHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	var req downloadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Item.RatingKey == "" {
		writeError(w, http.StatusBadRequest, "item rating key is required", nil)
		return
	}
	if req.Asset.ID == "" {
		writeError(w, http.StatusBadRequest, "asset ID is required", nil)
		return
	}

	if err := h.downloadCtrl.DownloadAndApplyAsset(r.Context(), req.Item, req.Asset); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"rating_key": req.Item.RatingKey,
			"asset_id":   req.Asset.ID,
		}).Error("Single-asset download failed")
		writeError(w, http.StatusBadGateway, "failed to download and apply asset", err)
		return
	}

	writeSuccess(w, req.Asset.Label()+" applied", nil)
}
