package lite

import (
	"time"

	"github.com/formicag/ACEReportHub/internal/audit"
	"github.com/formicag/ACEReportHub/internal/models"
)

type snapshotRow struct {
	ID                      int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt               time.Time `gorm:"not null"`
	ReportWeek              string    `gorm:"index;not null"`
	SourceFilename          string
	ExportDate              *time.Time
	TotalAll                int
	TotalOpen               int
	TotalReportable         int
	TotalExcluded           int
	StaleCount              int
	AvgDaysSinceUpdate      float64
	TotalRevenue            float64
	WellArchitectedCount    int
	RapidPilotCount         int
	ConsecutiveWeeksNoStale int
	NewCount                int
	ClosedCount             int
	ChangedCount            int
	Recipients              []string `gorm:"serializer:json"`
	Notes                   string
}

func (snapshotRow) TableName() string { return "weekly_snapshots" }

type opportunityRow struct {
	SnapshotID         int64  `gorm:"primaryKey;autoIncrement:false"`
	OpportunityID      string `gorm:"primaryKey"`
	Position           int    `gorm:"index"`
	CustomerName       string
	EstimatedRevenue   float64
	Owner              string
	Status             string
	Stage              string
	LastUpdated        *time.Time
	DateCreated        *time.Time
	TargetCloseDate    *time.Time
	ProjectTitle       string
	ProblemDescription string
	NextStep           string
	AccountID          string
	Programs           []string `gorm:"serializer:json"`
	Excluded           bool
}

func (opportunityRow) TableName() string { return "snapshot_opportunities" }

type auditRow struct {
	ID         string    `gorm:"primaryKey"`
	At         time.Time `gorm:"index"`
	Action     string    `gorm:"not null"`
	SnapshotID int64     `gorm:"index"`
	ReportWeek string
	Records    int
	Success    bool
	Message    string
	Metadata   map[string]any `gorm:"serializer:json"`
}

func (auditRow) TableName() string { return "audit_log" }

func toSnapshotRow(s *models.Snapshot) snapshotRow {
	return snapshotRow{
		CreatedAt:               s.CreatedAt.UTC(),
		ReportWeek:              string(s.ReportWeek),
		SourceFilename:          s.SourceFilename,
		ExportDate:              s.ExportDate,
		TotalAll:                s.Stats.TotalAll,
		TotalOpen:               s.Stats.TotalOpen,
		TotalReportable:         s.Stats.Reportable,
		TotalExcluded:           s.Stats.Excluded,
		StaleCount:              s.Stats.StaleCount,
		AvgDaysSinceUpdate:      s.Stats.AvgDaysSince,
		TotalRevenue:            s.Stats.TotalRevenue,
		WellArchitectedCount:    s.Stats.WellArchitected,
		RapidPilotCount:         s.Stats.RapidPilot,
		ConsecutiveWeeksNoStale: s.ConsecutiveWeeksNoStale,
		NewCount:                s.NewCount,
		ClosedCount:             s.ClosedCount,
		ChangedCount:            s.ChangedCount,
		Recipients:              s.Recipients,
		Notes:                   s.Notes,
	}
}

func (r snapshotRow) toModel() models.Snapshot {
	return models.Snapshot{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt,
		ReportWeek:     models.ReportWeek(r.ReportWeek),
		SourceFilename: r.SourceFilename,
		ExportDate:     r.ExportDate,
		Stats: models.Stats{
			TotalAll:        r.TotalAll,
			TotalOpen:       r.TotalOpen,
			Reportable:      r.TotalReportable,
			Excluded:        r.TotalExcluded,
			StaleCount:      r.StaleCount,
			AvgDaysSince:    r.AvgDaysSinceUpdate,
			TotalRevenue:    r.TotalRevenue,
			WellArchitected: r.WellArchitectedCount,
			RapidPilot:      r.RapidPilotCount,
		},
		ConsecutiveWeeksNoStale: r.ConsecutiveWeeksNoStale,
		NewCount:                r.NewCount,
		ClosedCount:             r.ClosedCount,
		ChangedCount:            r.ChangedCount,
		Recipients:              r.Recipients,
		Notes:                   r.Notes,
	}
}

func toOpportunityRows(snapshotID int64, records []models.Opportunity) []opportunityRow {
	rows := make([]opportunityRow, len(records))
	for i, o := range records {
		rows[i] = opportunityRow{
			SnapshotID:         snapshotID,
			OpportunityID:      o.ID,
			Position:           i,
			CustomerName:       o.CustomerName,
			EstimatedRevenue:   o.EstimatedRevenue,
			Owner:              o.Owner,
			Status:             o.Status,
			Stage:              o.Stage,
			LastUpdated:        o.LastUpdated,
			DateCreated:        o.DateCreated,
			TargetCloseDate:    o.TargetCloseDate,
			ProjectTitle:       o.ProjectTitle,
			ProblemDescription: o.ProblemDescription,
			NextStep:           o.NextStep,
			AccountID:          o.AccountID,
			Programs:           o.Programs,
			Excluded:           o.Excluded,
		}
	}
	return rows
}

func (r opportunityRow) toModel() models.Opportunity {
	return models.Opportunity{
		ID:                 r.OpportunityID,
		CustomerName:       r.CustomerName,
		EstimatedRevenue:   r.EstimatedRevenue,
		Owner:              r.Owner,
		Status:             r.Status,
		Stage:              r.Stage,
		LastUpdated:        r.LastUpdated,
		DateCreated:        r.DateCreated,
		TargetCloseDate:    r.TargetCloseDate,
		ProjectTitle:       r.ProjectTitle,
		ProblemDescription: r.ProblemDescription,
		NextStep:           r.NextStep,
		AccountID:          r.AccountID,
		Programs:           r.Programs,
		Excluded:           r.Excluded,
	}
}

func toAuditRow(e audit.Event) auditRow {
	return auditRow{
		ID:         e.ID,
		At:         e.At.UTC(),
		Action:     string(e.Action),
		SnapshotID: e.SnapshotID,
		ReportWeek: e.ReportWeek,
		Records:    e.Records,
		Success:    e.Success,
		Message:    e.Message,
		Metadata:   e.Metadata,
	}
}

func (r auditRow) toModel() audit.Event {
	return audit.Event{
		ID:         r.ID,
		At:         r.At,
		Action:     audit.Action(r.Action),
		SnapshotID: r.SnapshotID,
		ReportWeek: r.ReportWeek,
		Records:    r.Records,
		Success:    r.Success,
		Message:    r.Message,
		Metadata:   r.Metadata,
	}
}
