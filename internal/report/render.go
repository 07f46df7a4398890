package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

// notesPolicy keeps basic formatting in operator notes and drops everything else.
var notesPolicy = bluemonday.UGCPolicy()

var funcs = template.FuncMap{
	"money": formatMoney,
	"signed": func(f float64) string {
		if f > 0 {
			return fmt.Sprintf("+%.1f", f)
		}
		return fmt.Sprintf("%.1f", f)
	},
	"field": func(f compare.Field) string { return strings.ReplaceAll(string(f), "_", " ") },
	"notes": func(s string) template.HTML {
		s = strings.ReplaceAll(strings.TrimSpace(s), "\n", "<br>")
		return template.HTML(notesPolicy.Sanitize(s))
	},
}

var emailTemplate = template.Must(template.New("email.html").Funcs(funcs).ParseFS(templateFS, "templates/email.html"))

// RenderHTML renders the email body for v.
func RenderHTML(v *View) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func formatMoney(f float64) string {
	neg := f < 0
	if neg {
		f = -f
	}
	whole := fmt.Sprintf("%.0f", f)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
