package utils

import (
	"sort"
	"strings"

	"github.com/posterarr/posterarr/internal/models"
)

// FilterOptions controls filtering and ordering of candidate poster sets
// for one media item
type FilterOptions struct {
	HiddenUsers     []string
	FollowedUsers   []string
	ShowHiddenUsers bool

	// ShowOnlyTitlecardSets drops sets without titlecards. It is treated
	// as off when no candidate set has titlecards at all.
	ShowOnlyTitlecardSets bool

	// OnlyDownloadDefaults keeps a set only if it carries at least one
	// asset matching a preferred type
	OnlyDownloadDefaults bool
	DefaultTypes         []models.AssetType

	// SavedSetIDs are sets already downloaded for this item; they sort first
	SavedSetIDs []string

	SortKey   models.SortKey
	SortOrder models.SortOrder
}

// AnyTitleCards reports whether at least one set in the list carries titlecards
func AnyTitleCards(sets []models.PosterSet) bool {
	for i := range sets {
		if sets[i].HasTitleCards() {
			return true
		}
	}
	return false
}

// FilterPosterSets returns a new list with hidden-user, titlecard and
// download-default filters applied. The input is not mutated.
func FilterPosterSets(sets []models.PosterSet, opts FilterOptions) []models.PosterSet {
	hidden := nameSet(opts.HiddenUsers)
	titlecardFilter := opts.ShowOnlyTitlecardSets && AnyTitleCards(sets)

	out := make([]models.PosterSet, 0, len(sets))
	for _, set := range sets {
		if !opts.ShowHiddenUsers && hidden[strings.ToLower(set.User.Name)] {
			continue
		}
		if titlecardFilter && !set.HasTitleCards() {
			continue
		}
		if opts.OnlyDownloadDefaults && !matchesAnyType(&set, opts.DefaultTypes) {
			continue
		}
		out = append(out, set)
	}
	return out
}

// matchesAnyType reports whether the set carries at least one asset of any
// preferred type. A "poster" preference also matches per-movie posters of
// collection sets; "specialSeasonPoster" requires a season-0 entry.
func matchesAnyType(set *models.PosterSet, types []models.AssetType) bool {
	for _, t := range types {
		switch t {
		case models.AssetPoster:
			if set.Poster != nil || len(set.OtherPosters) > 0 {
				return true
			}
		case models.AssetBackdrop:
			if set.Backdrop != nil {
				return true
			}
		case models.AssetSeasonPoster:
			if set.SeasonPosterCount() > 0 {
				return true
			}
		case models.AssetSpecialSeason:
			if set.HasSpecialSeasonPoster() {
				return true
			}
		case models.AssetTitleCard:
			if set.HasTitleCards() {
				return true
			}
		}
	}
	return false
}

// SortPosterSets orders sets with the fixed precedence: already-downloaded
// sets first, then sets by followed authors, then the user-selected key.
// Returns a new slice; the input is not mutated.
func SortPosterSets(sets []models.PosterSet, opts FilterOptions) []models.PosterSet {
	sorted := make([]models.PosterSet, len(sets))
	copy(sorted, sets)

	saved := make(map[string]bool, len(opts.SavedSetIDs))
	for _, id := range opts.SavedSetIDs {
		saved[id] = true
	}
	followed := nameSet(opts.FollowedUsers)
	asc := opts.SortOrder == models.SortAsc

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &sorted[i], &sorted[j]

		if saved[a.ID] != saved[b.ID] {
			return saved[a.ID]
		}

		fa := followed[strings.ToLower(a.User.Name)]
		fb := followed[strings.ToLower(b.User.Name)]
		if fa != fb {
			return fa
		}

		return lessByKey(a, b, opts.SortKey, asc)
	})

	return sorted
}

func lessByKey(a, b *models.PosterSet, key models.SortKey, asc bool) bool {
	switch key {
	case models.SortByUser:
		na, nb := strings.ToLower(a.User.Name), strings.ToLower(b.User.Name)
		if na != nb {
			if asc {
				return na < nb
			}
			return na > nb
		}
		return a.DateUpdated.After(b.DateUpdated)

	case models.SortBySeasons:
		if c := cascade(asc,
			a.SeasonPosterCount(), b.SeasonPosterCount(),
			len(a.TitleCards), len(b.TitleCards)); c != 0 {
			return c < 0
		}
		return a.DateUpdated.After(b.DateUpdated)

	case models.SortByTitlecards:
		if c := cascade(asc, len(a.TitleCards), len(b.TitleCards)); c != 0 {
			return c < 0
		}
		return a.DateUpdated.After(b.DateUpdated)

	case models.SortByCollectionItems:
		if c := cascade(asc,
			len(a.OtherPosters), len(b.OtherPosters),
			len(a.OtherBackdrops), len(b.OtherBackdrops)); c != 0 {
			return c < 0
		}
		return a.DateUpdated.After(b.DateUpdated)

	default: // models.SortByDate
		if a.DateUpdated.Equal(b.DateUpdated) {
			return false
		}
		if asc {
			return a.DateUpdated.Before(b.DateUpdated)
		}
		return a.DateUpdated.After(b.DateUpdated)
	}
}

// cascade compares count pairs in order, honoring direction, and returns
// -1, 0 or 1 like a comparator
func cascade(asc bool, counts ...int) int {
	for i := 0; i+1 < len(counts); i += 2 {
		va, vb := counts[i], counts[i+1]
		if va == vb {
			continue
		}
		less := va < vb
		if !asc {
			less = !less
		}
		if less {
			return -1
		}
		return 1
	}
	return 0
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
