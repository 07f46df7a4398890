package compare

import (
	"strconv"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

// Field names a tracked opportunity attribute.
type Field string

const (
	FieldStatus          Field = "status"
	FieldStage           Field = "stage"
	FieldRevenue         Field = "estimated_revenue"
	FieldOwner           Field = "owner"
	FieldLastUpdated     Field = "last_updated"
	FieldProjectTitle    Field = "project_title"
	FieldCustomerName    Field = "customer_name"
	FieldNextStep        Field = "next_step"
	FieldTargetCloseDate Field = "target_close_date"
)

// FieldChange is one field-level difference between two versions of an opportunity.
type FieldChange struct {
	Field Field  `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

type trackedField struct {
	name  Field
	value func(models.Opportunity) string
}

// trackedFields is the fixed comparison list, in report order.
var trackedFields = []trackedField{
	{FieldStatus, func(o models.Opportunity) string { return clean(o.Status) }},
	{FieldStage, func(o models.Opportunity) string { return clean(o.Stage) }},
	{FieldRevenue, func(o models.Opportunity) string { return strconv.FormatFloat(o.EstimatedRevenue, 'f', 2, 64) }},
	{FieldOwner, func(o models.Opportunity) string { return clean(o.Owner) }},
	{FieldLastUpdated, func(o models.Opportunity) string { return formatDate(o.LastUpdated) }},
	{FieldProjectTitle, func(o models.Opportunity) string { return clean(o.ProjectTitle) }},
	{FieldCustomerName, func(o models.Opportunity) string { return clean(o.CustomerName) }},
	{FieldNextStep, func(o models.Opportunity) string { return clean(o.NextStep) }},
	{FieldTargetCloseDate, func(o models.Opportunity) string { return formatDate(o.TargetCloseDate) }},
}

// TrackedFields lists the compared fields.
func TrackedFields() []Field {
	out := make([]Field, len(trackedFields))
	for i, f := range trackedFields {
		out[i] = f.name
	}
	return out
}

func diffFields(prev, curr models.Opportunity) []FieldChange {
	var changes []FieldChange
	for _, f := range trackedFields {
		oldV, newV := f.value(prev), f.value(curr)
		if oldV != newV {
			changes = append(changes, FieldChange{Field: f.name, Old: oldV, New: newV})
		}
	}
	return changes
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// formatDate compares timestamps at day granularity; exports carry dates only.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
