package viewsync

import (
	"sort"
	"time"

	"branchdesk-server/internal/domain"
)

// Filter keeps the records of branch for branch-scoped collections. Shared
// collections pass through unchanged.
func Filter(c domain.Collection, records []domain.Record, branch string) []domain.Record {
	if !c.BranchScoped() {
		return records
	}

	kept := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		b, ok := rec.(domain.Branched)
		if !ok || b.BranchTag() != branch {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// SortRecords returns a sorted copy of records. Tasks go by priority rank and
// then newest first, deliveries newest first. Every other collection keeps
// the order the store delivered.
func SortRecords(c domain.Collection, records []domain.Record) []domain.Record {
	sorted := make([]domain.Record, len(records))
	copy(sorted, records)

	switch c {
	case domain.CollectionTasks:
		sort.SliceStable(sorted, func(i, j int) bool {
			ri, rj := taskRank(sorted[i]), taskRank(sorted[j])
			if ri != rj {
				return ri < rj
			}
			return sorted[i].Created().After(sorted[j].Created())
		})
	case domain.CollectionDeliveries:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Created().After(sorted[j].Created())
		})
	}

	return sorted
}

func taskRank(rec domain.Record) int {
	if task, ok := rec.(*domain.Task); ok {
		return task.Priority.Rank()
	}
	return domain.Priority("").Rank()
}

// Derive maps records to their rendered form. Tasks become TaskViews carrying
// the status shown at now; other records are handed through.
func Derive(records []domain.Record, now time.Time, loc *time.Location) []interface{} {
	items := make([]interface{}, 0, len(records))
	for _, rec := range records {
		task, ok := rec.(*domain.Task)
		if !ok {
			items = append(items, rec)
			continue
		}
		items = append(items, domain.TaskView{
			Task:      task,
			Display:   task.DisplayStatus(now, loc),
			DoneToday: task.Cycle.Recurring() && domain.IsDoneToday(task.LastDone, now, loc),
		})
	}
	return items
}

// Pipeline runs filter, sort and derive over one collection snapshot.
func Pipeline(c domain.Collection, records []domain.Record, branch string, now time.Time, loc *time.Location) []interface{} {
	return Derive(SortRecords(c, Filter(c, records, branch)), now, loc)
}
