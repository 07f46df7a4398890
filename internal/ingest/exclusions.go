package ingest

import (
	"strings"

	"github.com/formicag/ACEReportHub/internal/models"
)

// DefaultExcludedIDs are legacy opportunities kept in snapshots but left out of reporting.
var DefaultExcludedIDs = []string{
	"O18244", "O38038", "O38001", "O37309", "O7015", "O7013", "O42819", "O1158289",
	"O6626478", "O6626601", "O6626677", "O6626721", "O8212897",
}

// ApplyExclusions flags every record whose id is in ids and returns how many were flagged.
func ApplyExclusions(records []models.Opportunity, ids []string) int {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	n := 0
	for i := range records {
		if set[strings.ToUpper(records[i].ID)] {
			records[i].Excluded = true
			n++
		}
	}
	return n
}
