package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sms-planner/internal/models"
)

// RecordAvailability replaces a guest's intervals for an event. Intervals
// on the same date are merged into their covering span first, so a guest
// holds at most one row per date.
func (q *Queries) RecordAvailability(ctx context.Context, eventID, guestID int64, intervals []models.AvailabilityInterval) error {
	if _, err := q.exec(ctx, `DELETE FROM availabilities WHERE event_id = ? AND guest_id = ?`, eventID, guestID); err != nil {
		return fmt.Errorf("failed to clear availability: %w", err)
	}

	for _, iv := range MergeByDate(intervals) {
		_, err := q.exec(ctx,
			`INSERT INTO availabilities (event_id, guest_id, date, start_time, end_time, all_day)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (event_id, guest_id, date) DO UPDATE SET
			   start_time = excluded.start_time, end_time = excluded.end_time, all_day = excluded.all_day`,
			eventID, guestID, iv.Date.Format(models.DateLayout), int(iv.Start), int(iv.End), iv.AllDay)
		if err != nil {
			return fmt.Errorf("failed to record availability: %w", err)
		}
	}
	return nil
}

// ListAvailability returns every interval recorded for an event, ordered by
// guest then date.
func (q *Queries) ListAvailability(ctx context.Context, eventID int64) ([]models.AvailabilityInterval, error) {
	rows, err := q.query(ctx,
		`SELECT id, event_id, guest_id, date, start_time, end_time, all_day
		 FROM availabilities WHERE event_id = ? ORDER BY guest_id, date`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	defer rows.Close()

	var out []models.AvailabilityInterval
	for rows.Next() {
		var (
			iv         models.AvailabilityInterval
			date       string
			start, end int
		)
		if err := rows.Scan(&iv.ID, &iv.EventID, &iv.GuestID, &date, &start, &end, &iv.AllDay); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		d, err := models.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("failed to decode availability date: %w", err)
		}
		iv.Date, iv.Start, iv.End = d, models.Clock(start), models.Clock(end)
		out = append(out, iv)
	}
	return out, rows.Err()
}

// MergeByDate folds same-date intervals into their covering span. The
// result is ordered by date.
func MergeByDate(intervals []models.AvailabilityInterval) []models.AvailabilityInterval {
	byDate := make(map[time.Time]models.AvailabilityInterval, len(intervals))
	for _, iv := range intervals {
		iv.Date = models.DateOf(iv.Date)
		prev, ok := byDate[iv.Date]
		if !ok {
			byDate[iv.Date] = iv
			continue
		}
		ps, pe := prev.Window()
		s, e := iv.Window()
		merged := prev
		merged.Start, merged.End = min(ps, s), max(pe, e)
		merged.AllDay = merged.Start == models.DayStart && merged.End == models.DayEnd
		byDate[iv.Date] = merged
	}

	out := make([]models.AvailabilityInterval, 0, len(byDate))
	for _, iv := range byDate {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
