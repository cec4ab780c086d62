package engine

import (
	"math"
	"sort"

	"blockcal/internal/clock"
	"blockcal/internal/model"
)

// Aggregate derives the grouped weekly/daily hours view from a cache
// snapshot: events grouped by week number, then by calendar date within the
// week, with per-day and per-week hour totals. It is a pure projection,
// recomputed fully on every call; nothing is maintained incrementally.
//
// Dates within a week are ordered ascending (lexical ISO comparison), weeks
// ascending by number.
func Aggregate(events []model.Event, norm *clock.Normalizer) []model.WeekGroup {
	type dayKey struct {
		week int
		date string
	}

	days := make(map[dayKey]*model.DayGroup)
	weekNumbers := make(map[int]bool)

	for _, ev := range events {
		local := norm.ToLocal(ev.Start)
		key := dayKey{
			week: clock.WeekNumber(local),
			date: clock.DateTitle(local),
		}
		g, ok := days[key]
		if !ok {
			g = &model.DayGroup{
				Date:    key.date,
				Weekday: clock.WeekdayLabel(local),
			}
			days[key] = g
			weekNumbers[key.week] = true
		}
		g.Events = append(g.Events, ev)
		g.EventCount++
		g.DailyTotalHours += ev.DurationHours
	}

	weeks := make([]model.WeekGroup, 0, len(weekNumbers))
	for week := range weekNumbers {
		wg := model.WeekGroup{Week: week}
		for key, g := range days {
			if key.week != week {
				continue
			}
			g.DailyTotalHours = roundTotal(g.DailyTotalHours)
			wg.Days = append(wg.Days, *g)
			wg.WeeklyTotalHours += g.DailyTotalHours
		}
		sort.Slice(wg.Days, func(i, j int) bool {
			return wg.Days[i].Date < wg.Days[j].Date
		})
		wg.WeeklyTotalHours = roundTotal(wg.WeeklyTotalHours)
		weeks = append(weeks, wg)
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].Week < weeks[j].Week
	})
	return weeks
}

// roundTotal keeps summed hours at two decimals, same precision as the
// per-event derived duration.
func roundTotal(h float64) float64 {
	return math.Round(h*100) / 100
}
