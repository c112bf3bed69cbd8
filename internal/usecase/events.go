package usecase

import (
	"math"
	"time"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// TaskKind identifies one of the background task types.
type TaskKind string

const (
	KindAnalyze     TaskKind = "analyze"
	KindInstall     TaskKind = "install"
	KindDownload    TaskKind = "download"
	KindLoadLibrary TaskKind = "load_library"
)

// EventType classifies task notifications.
type EventType string

const (
	// EventAnalyzed carries one FontRecord per existing input path.
	EventAnalyzed EventType = "analyzed"
	// EventProgress is emitted before each install attempt.
	EventProgress EventType = "progress"
	// EventOutcome carries the per-font install result.
	EventOutcome EventType = "outcome"
	// EventDownloaded carries (url, localPath); localPath is empty on failure.
	EventDownloaded EventType = "downloaded"
	// EventFound carries one installed font path.
	EventFound EventType = "found"
	// EventFinished is the last event of every task.
	EventFinished EventType = "finished"
)

// Progress describes the install loop position.
type Progress struct {
	Index    int
	Total    int
	FileName string
}

// Percent returns round(100 * Index / Total), or 0 for an empty run.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(p.Index) / float64(p.Total)))
}

// Event is a sequenced notification emitted by a task.
// Exactly one payload field is set, depending on Type.
type Event struct {
	Seq       int64
	Timestamp time.Time
	TaskID    string
	Kind      TaskKind
	Type      EventType

	Record   *domain.FontRecord
	Progress *Progress
	Outcome  *domain.InstallOutcome
	Download *domain.DownloadResult
	Path     string // EventFound

	// Count is set on EventFinished: records emitted (analyze), successful
	// installs (install), 1 or 0 (download), paths found (library).
	Count int

	// Err is the per-item failure behind a degraded payload, if any.
	Err error
}
