package service

import (
	"github.com/colehouse/taskline/internal/domain"
	"github.com/colehouse/taskline/internal/store"
)

// completionRate converts window counts into a percentage in [0, 100].
// An empty window yields 0 rather than a division fault.
func completionRate(counts store.TaskCounts) float64 {
	if counts.Total <= 0 {
		return 0
	}
	return float64(counts.Completed) / float64(counts.Total) * 100
}

// calendarEntries projects completed tasks into the shape the dashboard
// calendar consumes: the start date is the date-only form of the task's
// last update.
func calendarEntries(completed []*domain.Task) []CalendarEntry {
	entries := make([]CalendarEntry, 0, len(completed))
	for _, task := range completed {
		entries = append(entries, CalendarEntry{
			Title:       task.Title,
			Start:       task.UpdatedAt.Format("2006-01-02"),
			Description: task.Description,
		})
	}
	return entries
}
