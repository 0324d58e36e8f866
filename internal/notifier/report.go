package notifier

import (
	"bytes"
	"fmt"
	"html/template"

	"ZakatSentinel/internal/mask"
	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/numfmt"
)

// Subject renders the report email subject: "Zekat Report - MM/YYYY",
// prefixed when zakat is due.
func Subject(v model.Verdict) string {
	var month, year string
	if len(v.ObservationDate) == 10 {
		month = v.ObservationDate[3:5]
		year = v.ObservationDate[6:]
	}
	subject := fmt.Sprintf("Zekat Report - %s/%s", month, year)
	if v.ZakatDue {
		subject = "Zekat Due Now - " + subject
	}
	return subject
}

type reportData struct {
	Verdict       model.Verdict
	Readings      []readingRow
	BankBalance   string
	Additional    string
	TotalAssets   string
	Nisab         string
	NisabSource   string
	ZakatAmount   string
	ProgressPct   int
	MonthsLabel   string
	ObservationOn string
	HijriLabel    string
}

type readingRow struct {
	Source    string
	Account   string
	Currency  string
	Amount    string
	Converted string
	Found     bool
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; color: #222; max-width: 640px; margin: 0 auto; }
h1 { font-size: 20px; border-bottom: 2px solid #0a6847; padding-bottom: 8px; }
.section { margin: 18px 0; }
.section-title { font-weight: bold; color: #0a6847; margin-bottom: 6px; }
table { border-collapse: collapse; width: 100%; }
td, th { padding: 6px 10px; border: 1px solid #ddd; text-align: left; font-size: 14px; }
.missing { color: #999; font-style: italic; }
.progress-track { background: #eee; border-radius: 6px; height: 14px; }
.progress-fill { background: #0a6847; border-radius: 6px; height: 14px; }
.due { background: #fff3cd; border: 1px solid #ffc107; padding: 12px; border-radius: 6px; }
.footer { font-size: 11px; color: #888; margin-top: 24px; }
</style></head>
<body>
<h1>Zakat Nisab Analysis Report</h1>

<div class="section">
<div class="section-title">Accounts</div>
<table>
<tr><th>Source</th><th>Account</th><th>Currency</th><th>Balance</th><th>Converted</th></tr>
{{range .Readings}}
<tr>
<td>{{.Source}}</td><td>{{.Account}}</td><td>{{.Currency}}</td>
{{if .Found}}<td>{{.Amount}}</td><td>{{.Converted}}</td>{{else}}<td class="missing" colspan="2">no statement found</td>{{end}}
</tr>
{{end}}
</table>
</div>

<div class="section">
<div class="section-title">Totals</div>
<table>
<tr><td>Bank balance</td><td>{{.BankBalance}}</td></tr>
<tr><td>Additional assets</td><td>{{.Additional}}</td></tr>
<tr><td><b>Total assets</b></td><td><b>{{.TotalAssets}}</b></td></tr>
</table>
</div>

<div class="section">
<div class="section-title">Nisab Analysis</div>
<p>Threshold: <b>{{.Nisab}}</b> ({{.NisabSource}})<br>
Observation date: {{.ObservationOn}} ({{.HijriLabel}})<br>
Above nisab: <b>{{if .Verdict.AboveNisab}}yes{{else}}no{{end}}</b></p>
<p>{{.MonthsLabel}}</p>
<div class="progress-track"><div class="progress-fill" style="width: {{.ProgressPct}}%;"></div></div>
</div>

{{if .Verdict.ZakatDue}}
<div class="section due">
<div class="section-title">Zakat Is Due</div>
<p>Your balance has remained above the nisab threshold for a full Hijri year.</p>
<p>Zakat amount (2.5% of total assets): <b>{{.ZakatAmount}}</b></p>
<p>After paying, record the payment so the next cycle starts correctly.</p>
</div>
{{else}}
<div class="section">
<div class="section-title">Zakat Calculation</div>
<p>Zakat is not yet due. The holding period continues as long as the balance stays above nisab.</p>
</div>
{{end}}

<div class="footer">
This report is informational and is not religious or financial advice.
Nisab reference: zekat.ba. Generated {{.Verdict.GeneratedAt.Format "02.01.2006 15:04"}} UTC.
</div>
</body>
</html>`))

// RenderReport produces the HTML report body for a verdict. Account
// numbers are masked; the recipient knows their own accounts.
func RenderReport(v model.Verdict, refCurrency string) (string, error) {
	rows := make([]readingRow, 0, len(v.Readings))
	for _, r := range v.Readings {
		row := readingRow{
			Source:   r.Source,
			Account:  mask.Account(r.Account),
			Currency: r.Currency,
			Found:    r.Found,
		}
		if r.Found {
			row.Amount = numfmt.AmountWithCurrency(r.Balance, r.Currency)
			row.Converted = numfmt.AmountWithCurrency(r.Converted, refCurrency)
		}
		rows = append(rows, row)
	}

	pct := v.ConsecutiveMonthsAboveNisab * 100 / 12
	if pct > 100 {
		pct = 100
	}

	data := reportData{
		Verdict:       v,
		Readings:      rows,
		BankBalance:   numfmt.AmountWithCurrency(v.BankBalance, refCurrency),
		Additional:    numfmt.AmountWithCurrency(v.AdditionalAssets, refCurrency),
		TotalAssets:   numfmt.AmountWithCurrency(v.TotalAssets, refCurrency),
		Nisab:         numfmt.AmountWithCurrency(v.NisabThreshold, refCurrency),
		NisabSource:   v.NisabSource,
		ZakatAmount:   numfmt.AmountWithCurrency(v.ZakatAmount, refCurrency),
		ProgressPct:   pct,
		MonthsLabel:   fmt.Sprintf("%d of 12 consecutive months above nisab", v.ConsecutiveMonthsAboveNisab),
		ObservationOn: v.ObservationDate,
		HijriLabel:    fmt.Sprintf("%d/%d AH", v.HijriMonth, v.HijriYear),
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
