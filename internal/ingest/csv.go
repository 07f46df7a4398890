// Package ingest turns ACE Partner Central exports into opportunity records
// and checks them before they reach the comparison engine.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/formicag/ACEReportHub/internal/models"
)

// Column identifies one field of the export.
type Column int

const (
	ColID Column = iota
	ColCustomer
	ColStatus
	ColStage
	ColRevenue
	ColLastUpdated
	ColCreated
	ColProjectTitle
	ColPrograms
	ColNextStep
	ColTargetClose
	ColOwner
	ColAccountID
	ColDescription
)

// headerAliases maps normalised header text to columns. The first header in
// the file that matches a column wins.
var headerAliases = map[string]Column{
	"opportunity id":                          ColID,
	"opportunity code":                        ColID,
	"customer company name":                   ColCustomer,
	"account name":                            ColCustomer,
	"status":                                  ColStatus,
	"stage":                                   ColStage,
	"estimated aws monthly recurring revenue": ColRevenue,
	"arr (usd)":                               ColRevenue,
	"last updated date":                       ColLastUpdated,
	"lastmodifieddate":                        ColLastUpdated,
	"date created":                            ColCreated,
	"createddate":                             ColCreated,
	"partner project title":                   ColProjectTitle,
	"opportunity name":                        ColProjectTitle,
	"apn programs":                            ColPrograms,
	"next step":                               ColNextStep,
	"target close date":                       ColTargetClose,
	"opportunity owner":                       ColOwner,
	"owner":                                   ColOwner,
	"created by":                              ColOwner,
	"primary contact name":                    ColOwner,
	"aws account id":                          ColAccountID,
	"customer business problem":               ColDescription,
	"problem description":                     ColDescription,
}

var requiredColumns = map[Column]string{
	ColID:          "Opportunity id",
	ColStatus:      "Status",
	ColStage:       "Stage",
	ColLastUpdated: "Last Updated Date",
}

// RowError is a cell that could not be parsed.
type RowError struct {
	Row    int // 1-based, header is row 1
	ID     string
	Column string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s) %s: %v", e.Row, e.ID, e.Column, e.Err)
}

// ReadCSV parses an ACE export. Header matching is case-insensitive. Blank
// rows are skipped. Any unparseable cell fails the whole upload.
func ReadCSV(r io.Reader) ([]models.Opportunity, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.InvalidInputError{Reason: "export is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := map[Column]int{}
	for i, h := range header {
		key := strings.ToLower(normalizeSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := headerAliases[key]; ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	var missing []string
	for col, name := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &models.InvalidInputError{Reason: "missing columns", IDs: sortedCopy(missing)}
	}

	var records []models.Opportunity
	var rowErrs []error
	row := 1
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		if blank(cells) {
			continue
		}

		get := func(c Column) string {
			if i, ok := index[c]; ok && i < len(cells) {
				return strings.TrimSpace(cells[i])
			}
			return ""
		}

		o := models.Opportunity{
			ID:                 strings.ToUpper(get(ColID)),
			CustomerName:       SanitizeText(get(ColCustomer)),
			Status:             normalizeSpace(get(ColStatus)),
			Stage:              normalizeSpace(get(ColStage)),
			ProjectTitle:       SanitizeText(get(ColProjectTitle)),
			NextStep:           SanitizeText(get(ColNextStep)),
			Owner:              normalizeSpace(get(ColOwner)),
			AccountID:          get(ColAccountID),
			ProblemDescription: TruncateText(SanitizeText(get(ColDescription)), 4000),
			Programs:           splitPrograms(get(ColPrograms)),
		}

		fail := func(col string, err error) {
			rowErrs = append(rowErrs, RowError{Row: row, ID: o.ID, Column: col, Err: err})
		}
		if o.EstimatedRevenue, err = ParseAmount(get(ColRevenue)); err != nil {
			fail("revenue", err)
		}
		if o.LastUpdated, err = ParseDate(get(ColLastUpdated)); err != nil {
			fail("last updated", err)
		}
		if o.DateCreated, err = ParseDate(get(ColCreated)); err != nil {
			fail("date created", err)
		}
		if o.TargetCloseDate, err = ParseDate(get(ColTargetClose)); err != nil {
			fail("target close", err)
		}
		records = append(records, o)
	}

	if len(rowErrs) > 0 {
		return nil, &models.InvalidInputError{Reason: errors.Join(rowErrs...).Error()}
	}
	if len(records) == 0 {
		return nil, &models.InvalidInputError{Reason: "export has no data rows"}
	}
	return records, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
