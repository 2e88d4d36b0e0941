package email

import (
	"bytes"
	"html/template"
)

// ClampLine is one clamped field reported in a drift alert.
type ClampLine struct {
	VariantCode string
	VariantName string
	Field       string
	Requested   int
	Shortfall   int
}

type driftAlertData struct {
	OrderID string
	Lines   []ClampLine
}

var driftAlertTemplate = template.Must(template.New("drift").Funcs(template.FuncMap{
	"label": func(l ClampLine) string {
		if l.VariantName == "" {
			return l.VariantCode
		}
		return l.VariantName
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #b23b3b; padding: 20px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">Inventory drift detected</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Selling order <strong style="font-family: monospace;">{{.OrderID}}</strong> asked for more units than were recorded. The fields below were set to zero.</p>

		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left;">Variant</th>
					<th style="padding: 12px; text-align: left;">Field</th>
					<th style="padding: 12px; text-align: right;">Requested</th>
					<th style="padding: 12px; text-align: right;">Shortfall</th>
				</tr>
			</thead>
			<tbody>
				{{- range .Lines}}
				<tr>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">{{label .}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Field}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{.Requested}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{.Shortfall}}</td>
				</tr>
				{{- end}}
			</tbody>
		</table>

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">Recount the listed variants and restock to correct the recorded quantities.</p>
	</div>
</body>
</html>`))

// BuildDriftAlertBody renders the HTML body of a drift alert.
func BuildDriftAlertBody(orderID string, lines []ClampLine) (string, error) {
	var buf bytes.Buffer
	if err := driftAlertTemplate.Execute(&buf, driftAlertData{OrderID: orderID, Lines: lines}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
