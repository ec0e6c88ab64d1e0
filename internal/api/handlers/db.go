package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/posterarr/posterarr/internal/controllers"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
)

// DBHandler serves saved-set record CRUD
type DBHandler struct {
	savedSetCtrl *controllers.SavedSetController
	logger       *logrus.Logger
}

// NewDBHandler creates a new saved-set record handler
func NewDBHandler(savedSetCtrl *controllers.SavedSetController, logger *logrus.Logger) *DBHandler {
	return &DBHandler{savedSetCtrl: savedSetCtrl, logger: logger}
}

// GetAll handles GET /db/get/all
func (h *DBHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.savedSetCtrl.GetAll()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get saved records")
		writeError(w, http.StatusInternalServerError, "failed to read saved records", err)
		return
	}
	writeSuccess(w, "", items)
}

type addItemRequest struct {
	Item models.MediaItem `json:"item"`
	Set  models.SavedSet  `json:"set"`
}

// Add handles POST /db/add/item
func (h *DBHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Item.RatingKey == "" {
		writeError(w, http.StatusBadRequest, "item rating key is required", nil)
		return
	}
	if req.Set.Set.ID == "" {
		writeError(w, http.StatusBadRequest, "set ID is required", nil)
		return
	}

	if err := h.savedSetCtrl.Add(req.Item, req.Set); err != nil {
		h.logger.WithError(err).WithField("rating_key", req.Item.RatingKey).Error("Failed to add saved record")
		writeError(w, http.StatusInternalServerError, "failed to save record", err)
		return
	}
	writeSuccess(w, "record saved", nil)
}

// Update handles PATCH /db/update/
func (h *DBHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req controllers.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.RatingKey == "" {
		writeError(w, http.StatusBadRequest, "rating key is required", nil)
		return
	}

	if err := h.savedSetCtrl.Edit(req); err != nil {
		h.logger.WithError(err).WithField("rating_key", req.RatingKey).Error("Failed to update saved record")
		writeError(w, http.StatusUnprocessableEntity, "failed to update record", err)
		return
	}
	writeSuccess(w, "record updated", nil)
}

// TypeConflicts handles GET /db/conflicts/{ratingKey}/{setID}. It reports
// which asset types sibling sets already claim, so edit forms can disable
// them up front.
func (h *DBHandler) TypeConflicts(w http.ResponseWriter, r *http.Request) {
	ratingKey := r.PathValue("ratingKey")
	setID := r.PathValue("setID")
	if ratingKey == "" || setID == "" {
		writeError(w, http.StatusBadRequest, "rating key and set ID are required", nil)
		return
	}

	conflicts, err := h.savedSetCtrl.TypeConflicts(ratingKey, setID)
	if err != nil {
		h.logger.WithError(err).WithField("rating_key", ratingKey).Error("Failed to get type conflicts")
		writeError(w, http.StatusUnprocessableEntity, "failed to read type conflicts", err)
		return
	}
	writeSuccess(w, "", conflicts)
}

// Delete handles DELETE /db/delete/mediaitem/{id}
func (h *DBHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ratingKey := r.PathValue("id")
	if ratingKey == "" {
		writeError(w, http.StatusBadRequest, "rating key is required", nil)
		return
	}

	if err := h.savedSetCtrl.Delete(ratingKey); err != nil {
		h.logger.WithError(err).WithField("rating_key", ratingKey).Error("Failed to delete saved record")
		writeError(w, http.StatusUnprocessableEntity, "failed to delete record", err)
		return
	}
	writeSuccess(w, "record deleted", nil)
}
