package tagger

import "github.com/xxxsen/szurutag/internal/model"

const (
	// ModeStandalone is a run started from the command line or the daemon
	// schedule: progress is reported and a summary is expected.
	ModeStandalone = "standalone"
	// ModeFromUpload is a run triggered by the board's upload webhook for a
	// single post whose media file is already on disk.
	ModeFromUpload = "upload"
)

// Options select what a single run processes.
type Options struct {
	Mode  string
	Query string
	// SankakuURL switches the run to scraping tags from the given sankaku
	// page instead of reverse-searching. Requires Query to be a post id.
	SankakuURL string
	AddTags    []string
	RemoveTags []string
	// MediaPath points at an already downloaded media file. When set, the
	// file is reused instead of downloading the post content and is not
	// removed afterwards.
	MediaPath string
}

// Result reports a finished run.
type Result struct {
	Stats model.Stats
	Total int
	// SearchDisabled is set when the long-period search quota ran out and
	// the run continued with the classifier only.
	SearchDisabled bool
	// QuotaExhausted is set when the long-period search quota reached zero
	// at any point during the run.
	QuotaExhausted bool
}
