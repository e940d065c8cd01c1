package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
)

// RenderHTML produces the report document sent to the user: a summary line,
// one table per account with running balances, and a combined sheet across
// all accounts.
func RenderHTML(data *Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("report.RenderHTML: %w", err)
	}
	return buf.Bytes(), nil
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return "₹" + d.StringFixed(2)
	},
	"spent": func(r Row) string {
		if r.Type == domain.Expense {
			return r.Amount.StringFixed(2)
		}
		return ""
	},
	"credited": func(r Row) string {
		if r.Type == domain.Income {
			return r.Amount.StringFixed(2)
		}
		return ""
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Expense Report</title>
<style>
body { font-family: Arial, sans-serif; margin: 2em; }
h1 { text-align: center; font-size: 1.2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; width: 100%; }
th, td { border: 1px solid #444; padding: 4px 8px; font-size: 0.85em; }
.expense { color: #c80000; }
.income { color: #009600; }
.summary { text-align: center; font-weight: bold; margin-bottom: 1em; }
</style>
</head>
<body>
<h1>Expense Report</h1>
<p class="summary">
<span class="expense">Total Expense: {{money .TotalExpense}}</span>
&nbsp;&nbsp;
<span class="income">Total Income: {{money .TotalIncome}}</span>
</p>
<p>{{.Start.Format "02 Jan 2006"}} to {{.End.Format "02 Jan 2006"}}</p>
{{range .Sections}}
<h2>{{.Account}}</h2>
<table>
<tr><th>Date</th><th>Spent</th><th>Credited</th><th>Balance</th><th>Description</th></tr>
{{range .Rows}}
<tr>
<td>{{.Date.Format "2006-01-02"}}</td>
<td class="expense">{{spent .}}</td>
<td class="income">{{credited .}}</td>
<td>{{.Running.StringFixed 2}}</td>
<td>{{.Description}}</td>
</tr>
{{end}}
</table>
{{end}}
{{if .Combined}}
<h2>All Accounts Combined</h2>
<table>
<tr><th>Account</th><th>Date</th><th>Spent</th><th>Credited</th><th>Description</th></tr>
{{range .Combined}}
<tr>
<td>{{.Account}}</td>
<td>{{.Date.Format "2006-01-02"}}</td>
<td class="expense">{{spent .}}</td>
<td class="income">{{credited .}}</td>
<td>{{.Description}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))
