package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkNewRecord    BookmarkType = "new_record"
	BookmarkFirstCapture BookmarkType = "first_capture"
	BookmarkScoreJump    BookmarkType = "score_jump"
	BookmarkCollapse     BookmarkType = "collapse"
	BookmarkStagnation   BookmarkType = "stagnation"
)

// Bookmark marks a generation worth looking at.
type Bookmark struct {
	Type        BookmarkType
	Generation  int
	Description string
}

// Log writes the bookmark to logger.
func (b Bookmark) Log(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting generations in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	seen          bool
	recordFitness float64 // best fitness of any earlier generation
	recordScore   int     // best score of any earlier generation
	captured      bool    // some individual has captured a target
	sinceRecord   int     // generations since the record was last beaten
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	// First capture: the population learned to reach a target
	if !bd.captured && stats.Captures > 0 {
		bd.captured = true
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkFirstCapture,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("%d captures, best score %d", stats.Captures, stats.BestScore),
		})
	}

	if bd.seen {
		if b := bd.checkNewRecord(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkScoreJump(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCollapse(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStagnation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if !bd.seen || stats.BestFitness > bd.recordFitness {
		bd.recordFitness = stats.BestFitness
	}
	if stats.BestScore > bd.recordScore {
		bd.recordScore = stats.BestScore
	}
	bd.seen = true

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkNewRecord(stats GenerationStats) *Bookmark {
	if stats.BestFitness <= bd.recordFitness {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkNewRecord,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Best fitness %.1f beats %.1f", stats.BestFitness, bd.recordFitness),
	}
}

func (bd *BookmarkDetector) checkScoreJump(stats GenerationStats) *Bookmark {
	// Score grows by one per capture; a jump of several marks a new strategy
	if stats.BestScore < bd.recordScore+3 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkScoreJump,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Best score jumped from %d to %d", bd.recordScore, stats.BestScore),
	}
}

func (bd *BookmarkDetector) checkCollapse(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	// Rolling mean and spread of the population mean fitness
	var sum float64
	for _, h := range history {
		sum += h.MeanFitness
	}
	avg := sum / float64(len(history))

	var spread float64
	for _, h := range history {
		spread += h.StdFitness
	}
	spread /= float64(len(history))

	if spread == 0 || stats.MeanFitness >= avg-2*spread {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkCollapse,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Mean fitness %.1f fell below rolling average %.1f", stats.MeanFitness, avg),
	}
}

func (bd *BookmarkDetector) checkStagnation(stats GenerationStats) *Bookmark {
	if stats.BestFitness > bd.recordFitness {
		bd.sinceRecord = 0
		return nil
	}
	bd.sinceRecord++
	if bd.sinceRecord != bd.historySize {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStagnation,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("No improvement on %.1f for %d generations", bd.recordFitness, bd.sinceRecord),
	}
}
