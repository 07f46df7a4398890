package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/report"
)

// Source records where a summary came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

const maxSummaryLen = 600

// Summarizer writes the executive summary for a report view. With no client,
// or when the model fails, it falls back to a fixed-format summary.
type Summarizer struct {
	Client  Completer
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewSummarizer(client Completer) *Summarizer {
	return &Summarizer{Client: client, Timeout: 20 * time.Second, Logger: slog.Default()}
}

// Summarize never fails; the returned source tells the caller which path produced the text.
func (s *Summarizer) Summarize(ctx context.Context, v *report.View) (string, Source) {
	if s == nil || s.Client == nil {
		return Fallback(v), SourceFallback
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	resp, err := s.Client.GenerateCompletion(ctx, buildPrompt(v), true)
	if err == nil {
		var text string
		if text, err = parseSummary(resp); err == nil {
			return text, SourceModel
		}
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Warn("summary generation failed, using fallback", "error", err)
	return Fallback(v), SourceFallback
}

func buildPrompt(v *report.View) string {
	facts, _ := json.Marshal(struct {
		Framing       report.Framing          `json:"framing"`
		Open          int                     `json:"open_opportunities"`
		Revenue       float64                 `json:"total_estimated_mrr"`
		Stale         int                     `json:"stale"`
		AvgDays       float64                 `json:"avg_days_since_update"`
		NoStaleStreak int                     `json:"consecutive_weeks_no_stale"`
		New           int                     `json:"new"`
		Closed        int                     `json:"closed"`
		Changed       int                     `json:"changed"`
		Deltas        map[string]report.Delta `json:"deltas,omitempty"`
	}{v.Framing, v.Stats.Reportable, v.Stats.TotalRevenue, v.Stats.StaleCount, v.Stats.AvgDaysSince,
		v.ConsecutiveWeeksNoStale, v.NewCount, v.ClosedCount, v.ChangedCount, v.Deltas})

	return fmt.Sprintf(`You write the opening paragraph of a weekly AWS ACE pipeline report for partner managers.

FACTS (JSON):
%s

Rules:
1. Two or three sentences, plain English, no bullet points.
2. Use only the facts above. Do not invent customers or numbers.
3. If framing is "baseline", say this is the first snapshot and do not describe changes.
4. Mention stale opportunities if there are any.

Return ONLY a JSON object:
{"summary": "..."}`, facts)
}

func parseSummary(resp string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp)), &out); err != nil {
		return "", fmt.Errorf("failed to parse summary json: %w", err)
	}
	text := strings.Join(strings.Fields(out.Summary), " ")
	if text == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	if r := []rune(text); len(r) > maxSummaryLen {
		text = string(r[:maxSummaryLen-3]) + "..."
	}
	return text, nil
}

// Fallback is the deterministic summary used without a model.
func Fallback(v *report.View) string {
	var b strings.Builder
	if v.Framing == report.FramingBaseline {
		fmt.Fprintf(&b, "Baseline snapshot with %d open opportunities worth $%.0f in estimated MRR.", v.Stats.Reportable, v.Stats.TotalRevenue)
	} else {
		fmt.Fprintf(&b, "%d open opportunities worth $%.0f in estimated MRR: %d new, %d closed and %d changed since snapshot #%d.",
			v.Stats.Reportable, v.Stats.TotalRevenue, v.NewCount, v.ClosedCount, v.ChangedCount, v.TargetID)
	}
	switch n := v.Stats.StaleCount; {
	case n == 0:
		fmt.Fprintf(&b, " No stale opportunities, %d consecutive week(s).", v.ConsecutiveWeeksNoStale)
	case n == 1:
		b.WriteString(" 1 opportunity is stale.")
	default:
		fmt.Fprintf(&b, " %d opportunities are stale.", n)
	}
	return b.String()
}
