package ingest

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

var validateNow = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

func validOpp(id string) models.Opportunity {
	updated := validateNow.AddDate(0, 0, -3)
	created := validateNow.AddDate(0, -2, 0)
	return models.Opportunity{
		ID:               id,
		CustomerName:     "Customer " + id,
		Owner:            "owner@example.com",
		Status:           "Approved",
		Stage:            "Qualified",
		EstimatedRevenue: 100,
		LastUpdated:      &updated,
		DateCreated:      &created,
	}
}

func TestValidate_Clean(t *testing.T) {
	v := NewValidator(0, models.OpenPolicy{})
	warnings, err := v.Validate([]models.Opportunity{validOpp("O12345"), validOpp("O67890")}, validateNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestValidate_Errors(t *testing.T) {
	future := validateNow.AddDate(0, 0, 2)
	late := validateNow.AddDate(0, 0, -1)

	badID := validOpp("O1")
	noCustomer := validOpp("O22222")
	noCustomer.CustomerName = " "
	negative := validOpp("O33333")
	negative.EstimatedRevenue = -5
	futureUpdate := validOpp("O44444")
	futureUpdate.LastUpdated = &future
	createdLate := validOpp("O55555")
	createdLate.DateCreated = &future
	createdLate.LastUpdated = &late
	noUpdate := validOpp("O66666")
	noUpdate.LastUpdated = nil

	records := []models.Opportunity{badID, noCustomer, negative, futureUpdate, createdLate, noUpdate, validOpp("O77777"), validOpp("O77777")}
	_, err := NewValidator(0, models.OpenPolicy{}).Validate(records, validateNow)

	var ie *models.InvalidInputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	want := []string{"O1", "O22222", "O33333", "O44444", "O55555", "O66666", "O77777"}
	if !reflect.DeepEqual(ie.IDs, want) {
		t.Fatalf("ids = %v, want %v", ie.IDs, want)
	}
	for _, msg := range []string{"invalid format", "customer name", "negative revenue", "in the future", "created after", "missing", "duplicate"} {
		if !strings.Contains(ie.Reason, msg) {
			t.Errorf("reason %q does not mention %q", ie.Reason, msg)
		}
	}
}

func TestValidate_Warnings(t *testing.T) {
	noOwner := validOpp("O12345")
	noOwner.Owner = ""
	records := []models.Opportunity{noOwner}
	for i := 0; i < 3; i++ {
		records = append(records, validOpp(fmt.Sprintf("O9000%d", i)))
	}

	warnings, err := NewValidator(2, models.OpenPolicy{}).Validate(records, validateNow)
	if err != nil {
		t.Fatalf("warnings must not fail the upload: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected owner and open-count warnings, got %v", warnings)
	}
	if !strings.HasPrefix(warnings[0], "O12345: owner") {
		t.Fatalf("unexpected first warning %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "4 open opportunities") {
		t.Fatalf("unexpected second warning %q", warnings[1])
	}
}

func TestValidate_ClosedRecordsDoNotCountTowardsMaxOpen(t *testing.T) {
	records := []models.Opportunity{validOpp("O11111"), validOpp("O22222")}
	records[1].Status = "Closed Lost"

	warnings, err := NewValidator(1, models.OpenPolicy{}).Validate(records, validateNow)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("Validate = %v, %v", warnings, err)
	}
}
