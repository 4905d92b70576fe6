package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"video-annotator/internal/annotation"
	"video-annotator/internal/contextutil"
	"video-annotator/internal/service"
)

// ReportHandler renders the annotation timeline of a video as an HTML page.
type ReportHandler struct {
	svc      service.AnnotationService
	policy   annotation.WindowPolicy
	parser   goldmark.Markdown
	template *template.Template
}

// reportPageData holds template data for the rendered report.
type reportPageData struct {
	Title   string
	Video   string
	Content template.HTML
}

// NewReportHandler creates a new report handler. policy decides the window
// end shown for each annotation.
func NewReportHandler(svc service.AnnotationService, policy annotation.WindowPolicy) *ReportHandler {
	tmpl := template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    :root {
      color-scheme: dark;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 960px;
      line-height: 1.6;
      background: #050b18;
      color: #e4ecff;
    }
    h1 {
      margin-top: 0;
      color: #fff;
    }
    table {
      border-collapse: collapse;
      width: 100%;
    }
    th, td {
      border-bottom: 1px solid rgba(148, 163, 184, 0.2);
      padding: 0.4rem 0.6rem;
      text-align: left;
    }
    code {
      font-family: 'SFMono-Regular', Consolas, 'Liberation Mono', Menlo, monospace;
      background: rgba(99, 102, 241, 0.18);
      padding: 2px 5px;
      border-radius: 6px;
    }
  </style>
</head>
<body>
  <article>{{.Content}}</article>
</body>
</html>`))

	return &ReportHandler{
		svc:    svc,
		policy: policy,
		parser: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Table,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		template: tmpl,
	}
}

// ServeHTTP handles GET /api/annotations/report[?video=].
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	video := strings.TrimSpace(r.URL.Query().Get("video"))
	if video == "" {
		video = annotation.DefaultVideo
	}

	list, err := h.svc.List(ctx, video)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to build report")
		return
	}

	var buf bytes.Buffer
	if err := h.parser.Convert([]byte(reportMarkdown(video, list, h.policy)), &buf); err != nil {
		logger.ErrorContext(ctx, "failed to render report", "video", video, "error", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, reportPageData{
		Title:   "Annotations: " + video,
		Video:   video,
		Content: template.HTML(buf.String()),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to execute report template", "video", video, "error", err)
	}
}

// reportMarkdown builds the timeline table for list, already sorted by
// timestamp.
func reportMarkdown(video string, list []annotation.Annotation, policy annotation.WindowPolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Annotation timeline: %s\n\n", escapeCell(video))

	if len(list) == 0 {
		b.WriteString("No annotations yet.\n")
		return b.String()
	}

	counts := map[annotation.Type]int{}
	for _, a := range list {
		counts[a.Type]++
	}
	types := make([]string, 0, len(counts))
	for t, n := range counts {
		types = append(types, fmt.Sprintf("%d %s", n, t))
	}
	sort.Strings(types)
	fmt.Fprintf(&b, "%d annotations (%s)\n\n", len(list), strings.Join(types, ", "))

	b.WriteString("| Start | End | Type | Color | Details |\n")
	b.WriteString("|---|---|---|---|---|\n")
	ends := annotation.Ends(list, policy)
	for i, a := range list {
		fmt.Fprintf(&b, "| %s | %s | %s | `%s` | %s |\n",
			formatTime(a.Timestamp), formatTime(ends[i]), a.Type, escapeCell(a.Color), details(a))
	}
	return b.String()
}

func details(a annotation.Annotation) string {
	switch a.Type {
	case annotation.TypeCircle:
		return fmt.Sprintf("center (%.2f, %.2f), radius %.2f", a.X, a.Y, a.Radius)
	case annotation.TypeRectangle:
		return fmt.Sprintf("at (%.2f, %.2f), %.2f x %.2f", a.X, a.Y, a.Width, a.Height)
	case annotation.TypeLine:
		if len(a.Points) == 2 {
			return fmt.Sprintf("(%.2f, %.2f) to (%.2f, %.2f)", a.Points[0].X, a.Points[0].Y, a.Points[1].X, a.Points[1].Y)
		}
	case annotation.TypeText:
		return fmt.Sprintf(`"%s" at (%.2f, %.2f)`, escapeCell(a.Text), a.X, a.Y)
	}
	return ""
}

// formatTime renders seconds as m:ss.s.
func formatTime(sec float64) string {
	if math.IsInf(sec, 0) || math.IsNaN(sec) {
		return "-"
	}
	m := int(sec) / 60
	return fmt.Sprintf("%d:%04.1f", m, sec-float64(m*60))
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ", "`", "'")

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
