package api

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/ingest"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/labstack/echo/v4"
)

// uploadRequest is the JSON form of an upload.
type uploadRequest struct {
	Records        []models.Opportunity `json:"records"`
	ReportWeek     string               `json:"report_week"`
	SourceFilename string               `json:"source_filename"`
	ExportDate     string               `json:"export_date"`
	Recipients     []string             `json:"recipients"`
	Notes          string               `json:"notes"`
}

type upload struct {
	records        []models.Opportunity
	reportWeek     string
	sourceFilename string
	exportDate     *time.Time
	recipients     []string
	notes          string
}

// readUpload accepts a multipart form with a "file" field, a raw text/csv body,
// or a JSON document. Exclusions are applied before the records are returned.
func (s *Server) readUpload(c echo.Context) (*upload, error) {
	mediaType, _, _ := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))

	var u upload
	switch mediaType {
	case echo.MIMEMultipartForm:
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, &models.InvalidInputError{Reason: "multipart upload needs a \"file\" field"}
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		if u.records, err = ingest.ReadCSV(f); err != nil {
			return nil, err
		}
		u.sourceFilename = fh.Filename
		u.reportWeek = c.FormValue("report_week")
		u.notes = c.FormValue("notes")
		u.recipients = splitList(c.FormValue("recipients"))
		if u.exportDate, err = ingest.ParseDate(c.FormValue("export_date")); err != nil {
			return nil, &models.InvalidInputError{Reason: err.Error()}
		}

	case "text/csv":
		var err error
		if u.records, err = ingest.ReadCSV(c.Request().Body); err != nil {
			return nil, err
		}
		u.sourceFilename = c.QueryParam("filename")
		u.reportWeek = c.QueryParam("report_week")
		u.notes = c.QueryParam("notes")
		u.recipients = splitList(c.QueryParam("recipients"))

	default:
		var req uploadRequest
		if err := c.Bind(&req); err != nil {
			return nil, &models.InvalidInputError{Reason: "invalid JSON body"}
		}
		exportDate, err := ingest.ParseDate(req.ExportDate)
		if err != nil {
			return nil, &models.InvalidInputError{Reason: err.Error()}
		}
		u = upload{
			records:        req.Records,
			reportWeek:     req.ReportWeek,
			sourceFilename: req.SourceFilename,
			exportDate:     exportDate,
			recipients:     req.Recipients,
			notes:          req.Notes,
		}
		for i := range u.records {
			u.records[i].Excluded = false
		}
	}

	ingest.ApplyExclusions(u.records, s.excluded)
	return &u, nil
}

// splitList splits a comma- or semicolon-separated form value into trimmed non-empty strings.
func splitList(s string) []string {
	var result []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
