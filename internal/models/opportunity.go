package models

import (
	"strings"
	"time"
)

// Opportunity is one row of an ACE pipeline export.
type Opportunity struct {
	ID                 string     `json:"id"`
	CustomerName       string     `json:"customer_name"`
	EstimatedRevenue   float64    `json:"estimated_revenue"` // estimated monthly recurring revenue
	Owner              string     `json:"owner"`
	Status             string     `json:"status"`
	Stage              string     `json:"stage"`
	LastUpdated        *time.Time `json:"last_updated"`
	DateCreated        *time.Time `json:"date_created"`
	TargetCloseDate    *time.Time `json:"target_close_date"`
	ProjectTitle       string     `json:"project_title"`
	ProblemDescription string     `json:"problem_description"`
	NextStep           string     `json:"next_step"`
	AccountID          string     `json:"account_id"`
	Programs           []string   `json:"programs"`
	Excluded           bool       `json:"excluded"`
}

const (
	programWellArchitected = "well-architected"
	titleRapidPilot        = "rapid pilot"
)

// IsWellArchitected reports membership of the Well-Architected program.
func (o Opportunity) IsWellArchitected() bool {
	for _, p := range o.Programs {
		if strings.Contains(strings.ToLower(p), programWellArchitected) {
			return true
		}
	}
	return false
}

// IsRapidPilot reports whether the project is part of the RAPID PILOT track.
func (o Opportunity) IsRapidPilot() bool {
	return strings.Contains(strings.ToLower(o.ProjectTitle), titleRapidPilot)
}

// DaysSinceUpdate returns whole days between the last update and now.
// ok is false when the record has no last-updated timestamp.
func (o Opportunity) DaysSinceUpdate(now time.Time) (days int, ok bool) {
	if o.LastUpdated == nil {
		return 0, false
	}
	d := now.Sub(*o.LastUpdated)
	if d < 0 {
		return 0, true
	}
	return int(d / (24 * time.Hour)), true
}

// OpenPolicy decides which status/stage combinations count as an open pipeline item.
type OpenPolicy struct {
	Statuses []string `yaml:"statuses" json:"statuses"`
	Stages   []string `yaml:"stages" json:"stages"`
}

// DefaultOpenPolicy mirrors the ACE Partner Central vocabulary.
func DefaultOpenPolicy() OpenPolicy {
	return OpenPolicy{
		Statuses: []string{"Approved", "In review", "Draft", "Submitted"},
		Stages:   []string{"Prospect", "Qualified", "Committed", "Business Validation"},
	}
}

// IsOpen reports whether o is an open item under the policy. Matching is case-insensitive.
func (p OpenPolicy) IsOpen(o Opportunity) bool {
	return containsFold(p.Statuses, o.Status) && containsFold(p.Stages, o.Stage)
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
