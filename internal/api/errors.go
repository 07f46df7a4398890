package api

import (
	"errors"
	"net/http"

	"github.com/formicag/ACEReportHub/internal/logger"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/labstack/echo/v4"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind"`
	IDs   []string `json:"ids,omitempty"`

	ExistingID        int64  `json:"existing_id,omitempty"`
	ReportWeek        string `json:"report_week,omitempty"`
	ExistingCreatedAt string `json:"existing_created_at,omitempty"`
}

// writeError maps domain error kinds to HTTP statuses. Anything unrecognised is a 500
// whose detail is logged, not returned.
func (s *Server) writeError(c echo.Context, err error) error {
	var (
		invalid *models.InvalidInputError
		dup     *models.DuplicateReportError
	)
	switch {
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "invalid_input", IDs: invalid.IDs})
	case errors.Is(err, models.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "invalid_input"})
	case errors.As(err, &dup):
		return c.JSON(http.StatusConflict, errorResponse{
			Error:             err.Error(),
			Kind:              "duplicate_report",
			ExistingID:        dup.ExistingID,
			ReportWeek:        string(dup.ReportWeek),
			ExistingCreatedAt: dup.ExistingCreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	case errors.Is(err, models.ErrProtected):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error(), Kind: "protected"})
	case errors.Is(err, models.ErrConfirmationRequired):
		return c.JSON(http.StatusPreconditionRequired, errorResponse{Error: err.Error(), Kind: "confirmation_required"})
	case errors.Is(err, models.ErrBackupFailed):
		logger.FromContext(c.Request().Context(), s.log).Error("backup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "backup_failed"})
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
	}

	logger.FromContext(c.Request().Context(), s.log).Error("request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal Server Error", Kind: "internal"})
}
