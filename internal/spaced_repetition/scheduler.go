package spaced_repetition

import (
	"sort"
	"time"

	"github.com/example/langbot/pkg/models"
)

// DefaultIntervals are the review intervals in days, shortest first
var DefaultIntervals = []int{1, 3, 7, 14, 30, 60, 90, 180}

// Scheduler assigns review dates from a fixed interval table
type Scheduler struct {
	// Интервалы повторения в днях
	Intervals []int
}

// NewScheduler creates a scheduler with the default interval table
func NewScheduler() *Scheduler {
	return &Scheduler{Intervals: DefaultIntervals}
}

// IntervalFor returns the interval in days used after the given review count.
// Counts beyond the table keep reusing the longest interval.
func (s *Scheduler) IntervalFor(reviewCount int) int {
	if len(s.Intervals) == 0 {
		return 1
	}
	idx := reviewCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.Intervals)-1 {
		idx = len(s.Intervals) - 1
	}
	return s.Intervals[idx]
}

// Review marks the item as reviewed at now and schedules the next review
func (s *Scheduler) Review(item *models.VocabularyItem, now time.Time) time.Time {
	item.ReviewCount++
	item.Learned = true
	item.NextReview = now.AddDate(0, 0, s.IntervalFor(item.ReviewCount))
	return item.NextReview
}

// IsDue reports whether the item should be reviewed at now
func IsDue(item models.VocabularyItem, now time.Time) bool {
	return !item.NextReview.After(now)
}

// DueItems filters items due at now, oldest due date first, limited to limit items
func DueItems(items []models.VocabularyItem, now time.Time, limit int) []models.VocabularyItem {
	var due []models.VocabularyItem
	for _, item := range items {
		if IsDue(item, now) {
			due = append(due, item)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(due[j].NextReview) {
			return due[i].NextReview.Before(due[j].NextReview)
		}
		return due[i].ID < due[j].ID
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
