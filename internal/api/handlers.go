package api

import (
	"net/http"
	"strconv"

	"github.com/formicag/ACEReportHub/internal/ai"
	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/formicag/ACEReportHub/internal/report"
	"github.com/formicag/ACEReportHub/internal/snapshots"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListSnapshots(c echo.Context) error {
	list, err := s.Service.History(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	if list == nil {
		list = []models.Snapshot{}
	}
	guarded, _ := snapshots.GuardedID(list)
	return c.JSON(http.StatusOK, map[string]any{
		"snapshots":   list,
		"baseline_id": models.BaselineID,
		"guarded_id":  guarded,
	})
}

func (s *Server) handleGetSnapshot(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	snap, err := s.Service.Get(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleBaseline(c echo.Context) error {
	snap, err := s.Service.Baseline(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleLatest(c echo.Context) error {
	snap, err := s.Service.Latest(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// handleFindWeek is the duplicate check: exists tells whether a save for the week would be refused.
func (s *Server) handleFindWeek(c echo.Context) error {
	snap, err := s.Service.FindByWeek(c.Request().Context(), c.Param("week"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"report_week": c.Param("week"),
		"exists":      snap != nil,
		"snapshot":    snap,
	})
}

type reportPayload struct {
	View          *report.View `json:"view"`
	Subject       string       `json:"subject"`
	HTML          string       `json:"html"`
	SummarySource ai.Source    `json:"summary_source"`
}

func (s *Server) handlePreview(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := s.readUpload(c)
	if err != nil {
		return s.writeError(c, err)
	}

	p, err := s.Service.Preview(ctx, u.records, u.reportWeek)
	if err != nil {
		return s.writeError(c, err)
	}
	rep, err := s.buildReport(c, p.Comparison, p.Target, p.ReportWeek, u.notes)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"comparison":       p.Comparison,
		"changed_ids":      p.Comparison.ChangedIDs(),
		"target_id":        p.Comparison.TargetID,
		"warnings":         p.Warnings,
		"report_week":      p.ReportWeek,
		"duplicate":        p.Duplicate,
		"would_be_blocked": p.Duplicate != nil,
		"report":           rep,
	})
}

func (s *Server) handleSave(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := s.readUpload(c)
	if err != nil {
		return s.writeError(c, err)
	}

	res, err := s.Service.Save(ctx, snapshots.SaveRequest{
		Records:        u.records,
		ReportWeek:     u.reportWeek,
		SourceFilename: u.sourceFilename,
		ExportDate:     u.exportDate,
		Recipients:     u.recipients,
		Notes:          u.notes,
	})
	if err != nil {
		return s.writeError(c, err)
	}

	var target *models.Snapshot
	if res.Comparison.TargetID != 0 {
		if target, err = s.Service.Get(ctx, res.Comparison.TargetID); err != nil {
			target = nil
		}
	}
	rep, err := s.buildReport(c, res.Comparison, target, res.Snapshot.ReportWeek, res.Snapshot.Notes)
	if err != nil {
		return s.writeError(c, err)
	}

	// The stored records are returned by GET /snapshots/:id.
	saved := *res.Snapshot
	saved.Opportunities = nil
	return c.JSON(http.StatusCreated, map[string]any{
		"snapshot": saved,
		"warnings": res.Warnings,
		"report":   rep,
	})
}

func (s *Server) handleConfirmToken(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	token, err := s.Service.IssueDeleteToken(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"snapshot_id": id, "token": token})
}

func (s *Server) handleDelete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := s.Service.Delete(c.Request().Context(), id, c.Request().Header.Get(ConfirmHeader)); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleBackup(c echo.Context) error {
	loc, err := s.Service.Backup(c.Request().Context(), c.QueryParam("reason"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"location": loc})
}

func (s *Server) buildReport(c echo.Context, res *compare.Result, target *models.Snapshot, week models.ReportWeek, notes string) (*reportPayload, error) {
	v := report.Build(res, target)
	v.ReportWeek = week
	v.Notes = notes
	summary, src := s.summarizer.Summarize(c.Request().Context(), v)
	v.Summary = summary

	html, err := report.RenderHTML(v)
	if err != nil {
		return nil, err
	}
	return &reportPayload{View: v, Subject: v.Subject(), HTML: html, SummarySource: src}, nil
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.InvalidInputError{Reason: "snapshot id must be a positive integer"}
	}
	return id, nil
}
