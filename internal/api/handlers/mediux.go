package handlers

import (
	"net/http"
	"strings"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/services/mediux"
	"github.com/posterarr/posterarr/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
)

// MediuxHandler serves poster-set catalog queries
type MediuxHandler struct {
	catalog *mediux.Client
	db      *models.Database
	logger  *logrus.Logger
}

// NewMediuxHandler creates a new catalog handler
func NewMediuxHandler(catalog *mediux.Client, db *models.Database, logger *logrus.Logger) *MediuxHandler {
	return &MediuxHandler{
		catalog: catalog,
		db:      db,
		logger:  logger,
	}
}

type setsData struct {
	Sets []models.PosterSet `json:"sets"`

	// TitlecardFilterActive reports whether the titlecard-only filter was
	// honored; it auto-resets when no candidate set has titlecards
	TitlecardFilterActive bool `json:"titlecardFilterActive"`
}

// SetsForItem handles
// GET /mediux/sets/get/{itemType}/{librarySection}/{ratingKey}/{tmdbID}.
// Filter and sort preferences arrive as query parameters.
func (h *MediuxHandler) SetsForItem(w http.ResponseWriter, r *http.Request) {
	itemType := models.ItemType(r.PathValue("itemType"))
	ratingKey := r.PathValue("ratingKey")
	tmdbID := r.PathValue("tmdbID")

	if itemType != models.ItemTypeMovie && itemType != models.ItemTypeShow {
		writeError(w, http.StatusBadRequest, "item type must be movie or show", nil)
		return
	}
	if tmdbID == "" {
		writeError(w, http.StatusBadRequest, "tmdb ID is required", nil)
		return
	}

	sets, err := h.catalog.GetSetsForItem(r.Context(), itemType, tmdbID)
	if err != nil {
		h.logger.WithError(err).WithField("tmdb_id", tmdbID).Error("Failed to get poster sets")
		writeError(w, http.StatusBadGateway, "failed to fetch poster sets", err)
		return
	}

	opts := filterOptionsFromQuery(r)
	if record, err := h.db.GetSavedItemByRatingKey(ratingKey); err == nil {
		for _, saved := range record.Sets {
			opts.SavedSetIDs = append(opts.SavedSetIDs, saved.Set.ID)
		}
	} else if err != bolthold.ErrNotFound {
		writeError(w, http.StatusInternalServerError, "failed to read saved records", err)
		return
	}

	filtered := utils.FilterPosterSets(sets, opts)
	sorted := utils.SortPosterSets(filtered, opts)

	writeSuccess(w, "", setsData{
		Sets:                  sorted,
		TitlecardFilterActive: opts.ShowOnlyTitlecardSets && utils.AnyTitleCards(sets),
	})
}

// UserSets handles GET /mediux/sets/get_user/sets/{username}
func (h *MediuxHandler) UserSets(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required", nil)
		return
	}

	sets, err := h.catalog.GetUserSets(r.Context(), username)
	if err != nil {
		h.logger.WithError(err).WithField("username", username).Error("Failed to get user sets")
		writeError(w, http.StatusBadGateway, "failed to fetch user sets", err)
		return
	}
	writeSuccess(w, "", sets)
}

// Set handles GET /mediux/sets/get_set/{setID}
func (h *MediuxHandler) Set(w http.ResponseWriter, r *http.Request) {
	setID := r.PathValue("setID")
	if setID == "" {
		writeError(w, http.StatusBadRequest, "set ID is required", nil)
		return
	}

	set, err := h.catalog.GetSet(r.Context(), setID)
	if err != nil {
		h.logger.WithError(err).WithField("set_id", setID).Error("Failed to get set")
		writeError(w, http.StatusBadGateway, "failed to fetch set", err)
		return
	}
	writeSuccess(w, "", set)
}

func filterOptionsFromQuery(r *http.Request) utils.FilterOptions {
	q := r.URL.Query()

	opts := utils.FilterOptions{
		HiddenUsers:           splitList(q.Get("hiddenUsers")),
		FollowedUsers:         splitList(q.Get("followedUsers")),
		ShowHiddenUsers:       q.Get("showHiddenUsers") == "true",
		ShowOnlyTitlecardSets: q.Get("showOnlyTitlecardSets") == "true",
		OnlyDownloadDefaults:  q.Get("onlyDownloadDefaults") == "true",
		SortKey:               models.SortKey(q.Get("sortKey")),
		SortOrder:             models.SortOrder(q.Get("sortOrder")),
	}
	for _, t := range splitList(q.Get("defaultTypes")) {
		opts.DefaultTypes = append(opts.DefaultTypes, models.AssetType(t))
	}
	if opts.SortKey == "" {
		opts.SortKey = models.SortByDate
	}
	if opts.SortOrder == "" {
		opts.SortOrder = models.SortDesc
	}
	return opts
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
