package models

// ItemType represents the type of library item (movie or show)
type ItemType string

const (
	ItemTypeMovie ItemType = "movie"
	ItemTypeShow  ItemType = "show"
)

// SetType represents the kind of poster set
type SetType string

const (
	SetTypeShow       SetType = "show"
	SetTypeMovie      SetType = "movie"
	SetTypeCollection SetType = "collection"
)

// AssetType represents the kind of artwork a poster file carries
type AssetType string

const (
	AssetPoster        AssetType = "poster"
	AssetBackdrop      AssetType = "backdrop"
	AssetSeasonPoster  AssetType = "seasonPoster"
	AssetSpecialSeason AssetType = "specialSeasonPoster"
	AssetTitleCard     AssetType = "titlecard"
)

// AssetTypeOrder is the fixed processing order for a download run
var AssetTypeOrder = []AssetType{
	AssetPoster,
	AssetBackdrop,
	AssetSeasonPoster,
	AssetSpecialSeason,
	AssetTitleCard,
}

// SortKey selects the user-facing ordering of poster sets
type SortKey string

const (
	SortByDate            SortKey = "date"
	SortByUser            SortKey = "user"
	SortBySeasons         SortKey = "numberOfSeasons"
	SortByTitlecards      SortKey = "numberOfTitlecards"
	SortByCollectionItems SortKey = "numberOfItemsInCollection"
)

// SortOrder is the direction of a sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// RunStatus represents the state of a download-and-apply run
type RunStatus string

const (
	RunIdle                  RunStatus = "idle"
	RunRunning               RunStatus = "running"
	RunCompleted             RunStatus = "completed"
	RunCompletedWithWarnings RunStatus = "completedWithWarnings"
	RunFailed                RunStatus = "failed"
)
