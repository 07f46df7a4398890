package models

import (
	"fmt"
	"strings"
	"time"
)

// BaselineID is the identifier of the first snapshot ever stored.
const BaselineID int64 = 1

// ReportWeek is the business week a snapshot reports on, as YYYY-MM-DD.
type ReportWeek string

const reportWeekLayout = "2006-01-02"

// ParseReportWeek validates s and returns it as a ReportWeek.
func ParseReportWeek(s string) (ReportWeek, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &InvalidInputError{Reason: "report week is required"}
	}
	if _, err := time.Parse(reportWeekLayout, s); err != nil {
		return "", &InvalidInputError{Reason: fmt.Sprintf("report week %q is not YYYY-MM-DD", s)}
	}
	return ReportWeek(s), nil
}

func (w ReportWeek) String() string { return string(w) }

// Time returns the week date at midnight UTC.
func (w ReportWeek) Time() (time.Time, error) {
	return time.Parse(reportWeekLayout, string(w))
}

// Stats are the aggregate metrics stored with each snapshot.
type Stats struct {
	TotalAll        int     `json:"total_all"`        // every row, open or not
	TotalOpen       int     `json:"total_open"`       // open rows including excluded
	Reportable      int     `json:"reportable"`       // open and not excluded
	Excluded        int     `json:"excluded"`         // open and excluded
	StaleCount      int     `json:"stale_count"`
	AvgDaysSince    float64 `json:"avg_days_since_update"`
	TotalRevenue    float64 `json:"total_revenue"`
	WellArchitected int     `json:"well_architected"`
	RapidPilot      int     `json:"rapid_pilot"`
}

// Snapshot is an immutable capture of one uploaded export.
type Snapshot struct {
	ID                      int64         `json:"id"`
	CreatedAt               time.Time     `json:"created_at"`
	ReportWeek              ReportWeek    `json:"report_week"`
	SourceFilename          string        `json:"source_filename"`
	ExportDate              *time.Time    `json:"export_date,omitempty"`
	Stats                   Stats         `json:"stats"`
	ConsecutiveWeeksNoStale int           `json:"consecutive_weeks_no_stale"`
	NewCount                int           `json:"new_count"`
	ClosedCount             int           `json:"closed_count"`
	ChangedCount            int           `json:"changed_count"`
	Recipients              []string      `json:"recipients,omitempty"`
	Notes                   string        `json:"notes,omitempty"`
	Opportunities           []Opportunity `json:"opportunities,omitempty"`
}

// IsBaseline reports whether s is the protected first snapshot.
func (s *Snapshot) IsBaseline() bool { return s.ID == BaselineID }

// Archive is a full copy of a store's persisted state.
type Archive struct {
	TakenAt   time.Time  `json:"taken_at"`
	Snapshots []Snapshot `json:"snapshots"`
}
