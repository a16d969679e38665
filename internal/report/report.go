// Package report renders a run's predictions as a standalone HTML page
// suitable for publishing to a static site prefix in the object store.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path"

	"github.com/supermms/betfair-tips/internal/domain"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Betfair tips {{.Date}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
th { background: #f0f0f0; }
tr:nth-child(even) { background: #fafafa; }
.missing { color: #999; }
</style>
</head>
<body>
<h1>Predictions for {{.Date}}</h1>
<p>{{len .Rows}} fixtures</p>
<table>
<thead>
<tr>
<th>Date</th><th>League</th><th>Home</th><th>Away</th>
<th>H</th><th>D</th><th>A</th>
<th>Back model</th><th>Indicators model</th>
</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr>
<td>{{.Date}}</td>
<td>{{.League}}</td>
<td>{{.Home}}</td>
<td>{{.Away}}</td>
<td>{{printf "%.2f" .Triple.Home}}</td>
<td>{{printf "%.2f" .Triple.Draw}}</td>
<td>{{printf "%.2f" .Triple.Away}}</td>
<td>{{with .Prediction.Back}}{{.}}{{else}}<span class="missing">n/a</span>{{end}}</td>
<td>{{with .Prediction.Indicators}}{{.}}{{else}}<span class="missing">n/a</span>{{end}}</td>
</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`

var page = template.Must(template.New("report").Parse(pageTemplate))

// Render writes the HTML page for the given rows to w.
func Render(w io.Writer, date string, rows []domain.ResultRow) error {
	data := struct {
		Date string
		Rows []domain.ResultRow
	}{Date: date, Rows: rows}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("report: render page: %w", err)
	}
	return nil
}

// Publisher uploads rendered reports to a blob prefix, one directory per
// run date, index.html inside.
type Publisher struct {
	writer domain.BlobWriter
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a Publisher that writes under prefix.
func NewPublisher(writer domain.BlobWriter, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: writer,
		prefix: prefix,
		logger: logger.With(slog.String("component", "report")),
	}
}

// Publish renders and uploads the page for the run date. Failure to publish
// is reported to the caller but should not fail the run.
func (p *Publisher) Publish(ctx context.Context, date string, rows []domain.ResultRow) error {
	var buf bytes.Buffer
	if err := Render(&buf, date, rows); err != nil {
		return err
	}

	key := path.Join(p.prefix, date, "index.html")
	if err := p.writer.PutMultipart(ctx, key, &buf, int64(buf.Len())); err != nil {
		return fmt.Errorf("report: upload %s: %w", key, err)
	}
	p.logger.InfoContext(ctx, "report published",
		slog.String("key", key),
		slog.Int("rows", len(rows)),
	)
	return nil
}
