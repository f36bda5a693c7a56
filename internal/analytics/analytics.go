// Package analytics computes dashboard aggregates as read-only folds
// over pixels and their window-scoped views, already loaded from storage.
package analytics

import (
	"sort"
	"time"
)

// Range selects how far back views are loaded for a report.
type Range string

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

// ParseRange maps the query parameter to a Range, defaulting to week.
func ParseRange(s string) Range {
	switch Range(s) {
	case RangeMonth:
		return RangeMonth
	case RangeYear:
		return RangeYear
	default:
		return RangeWeek
	}
}

// Start returns the window cutoff for the range relative to now.
func (r Range) Start(now time.Time) time.Time {
	switch r {
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

// Pixel is one tracked email with its views restricted to the report window.
// ViewCount is the all-time denormalized counter, deliberately distinct
// from len(Views).
type Pixel struct {
	EmailSubject   string
	RecipientEmail string
	ViewCount      int64
	CreatedAt      time.Time
	Views          []View
}

// View is a single window-scoped view event.
type View struct {
	ViewedAt time.Time
}

// TopPixel ranks a pixel by its all-time view counter.
type TopPixel struct {
	EmailSubject   string    `json:"emailSubject"`
	RecipientEmail string    `json:"recipientEmail"`
	ViewCount      int64     `json:"viewCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Activity is one recent view attributed back to its pixel.
type Activity struct {
	EmailSubject   string    `json:"emailSubject"`
	RecipientEmail string    `json:"recipientEmail"`
	ViewedAt       time.Time `json:"viewedAt"`
}

// DayCount is the number of views on one UTC calendar date.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Report is the aggregate payload served to the dashboard.
type Report struct {
	TotalViews     int64      `json:"totalViews"`
	TotalPixels    int        `json:"totalPixels"`
	ActivePixels   int        `json:"activePixels"`
	ViewsToday     int        `json:"viewsToday"`
	ViewsThisWeek  int        `json:"viewsThisWeek"`
	ViewsThisMonth int        `json:"viewsThisMonth"`
	TopPixels      []TopPixel `json:"topPixels"`
	RecentActivity []Activity `json:"recentActivity"`
	ViewsByDay     []DayCount `json:"viewsByDay"`
}

// Aggregate folds the window-scoped result set into a Report. A user with
// zero pixels yields zero counts and empty slices, not an error.
//
// TotalViews sums the all-time counters; the remaining view metrics each
// independently re-filter the window-scoped views against their own cutoff.
func Aggregate(pixels []Pixel, now time.Time) Report {
	report := Report{
		TotalPixels:    len(pixels),
		TopPixels:      []TopPixel{},
		RecentActivity: []Activity{},
		ViewsByDay:     []DayCount{},
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)
	monthStart := now.AddDate(0, -1, 0)

	byDay := make(map[string]int)
	for _, p := range pixels {
		report.TotalViews += p.ViewCount
		if len(p.Views) > 0 {
			report.ActivePixels++
		}
		for _, v := range p.Views {
			if !v.ViewedAt.Before(today) {
				report.ViewsToday++
			}
			if !v.ViewedAt.Before(weekStart) {
				report.ViewsThisWeek++
			}
			if !v.ViewedAt.Before(monthStart) {
				report.ViewsThisMonth++
			}
			byDay[v.ViewedAt.UTC().Format("2006-01-02")]++
			report.RecentActivity = append(report.RecentActivity, Activity{
				EmailSubject:   p.EmailSubject,
				RecipientEmail: p.RecipientEmail,
				ViewedAt:       v.ViewedAt,
			})
		}
	}

	report.TopPixels = topPixels(pixels, 5)

	sort.SliceStable(report.RecentActivity, func(i, j int) bool {
		return report.RecentActivity[i].ViewedAt.After(report.RecentActivity[j].ViewedAt)
	})
	if len(report.RecentActivity) > 10 {
		report.RecentActivity = report.RecentActivity[:10]
	}

	for date, count := range byDay {
		report.ViewsByDay = append(report.ViewsByDay, DayCount{Date: date, Count: count})
	}
	sort.Slice(report.ViewsByDay, func(i, j int) bool {
		return report.ViewsByDay[i].Date < report.ViewsByDay[j].Date
	})

	return report
}

// topPixels ranks by the all-time counter, descending. The stable sort
// keeps storage order for ties.
func topPixels(pixels []Pixel, n int) []TopPixel {
	top := make([]TopPixel, 0, len(pixels))
	for _, p := range pixels {
		top = append(top, TopPixel{
			EmailSubject:   p.EmailSubject,
			RecipientEmail: p.RecipientEmail,
			ViewCount:      p.ViewCount,
			CreatedAt:      p.CreatedAt,
		})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].ViewCount > top[j].ViewCount
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
