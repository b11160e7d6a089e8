// Package notify formats and sends the run summary email.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/aristath/portwatch/internal/config"
	"github.com/aristath/portwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	gomail "gopkg.in/gomail.v2"
)

// Summary is the notifier's input contract: the snapshot is required, the
// performance record is absent when the run could not compute one, and
// warnings carry per-symbol fetch degradations.
type Summary struct {
	Snapshot    domain.ValuationSnapshot
	Performance *domain.PerformanceRecord
	Warnings    []string
}

// EmailNotifier sends the portfolio summary over SMTP. Disabled notifiers
// accept sends and do nothing, matching the feature flag contract.
type EmailNotifier struct {
	cfg  config.EmailConfig
	send func(*gomail.Message) error
	log  zerolog.Logger
}

// NewEmailNotifier creates a new SMTP notifier
func NewEmailNotifier(cfg config.EmailConfig, log zerolog.Logger) *EmailNotifier {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password)
	return &EmailNotifier{
		cfg:  cfg,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		log:  log.With().Str("component", "notifier").Logger(),
	}
}

// Send formats and dispatches the summary. Returns nil without sending when
// notifications are disabled.
func (n *EmailNotifier) Send(summary Summary) error {
	if !n.cfg.Enabled {
		n.log.Debug().Msg("Email notifications disabled, skipping send")
		return nil
	}

	body, err := FormatBody(summary)
	if err != nil {
		return fmt.Errorf("failed to format email body: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", fmt.Sprintf("Portfolio Summary - %s", summary.Snapshot.At.Format("2006-01-02")))
	m.SetBody("text/html", body)

	if err := n.send(m); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	n.log.Info().Str("to", n.cfg.To).Msg("Summary notification sent")
	return nil
}

type bodyRow struct {
	Symbol string
	Value  string
}

type bodyData struct {
	Date          string
	TotalValue    string
	Rows          []bodyRow
	HasPerf       bool
	AbsoluteGain  string
	PercentReturn string
	BaselineMode  string
	Omitted       []string
	Warnings      []string
	GeneratedAt   string
}

var bodyTemplate = template.Must(template.New("summary").Parse(`<html>
<body>
<h2>Portfolio Summary — {{.Date}}</h2>
<p>Total value: <strong>{{.TotalValue}}</strong></p>
{{if .HasPerf}}<p>Gain vs {{.BaselineMode}}: {{.AbsoluteGain}} ({{.PercentReturn}}%)</p>{{end}}
<table border="1" cellpadding="4">
<tr><th>Symbol</th><th>Market Value</th></tr>
{{range .Rows}}<tr><td>{{.Symbol}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .Omitted}}<p>Omitted (no price): {{range .Omitted}}{{.}} {{end}}</p>{{end}}
{{if .Warnings}}<h3>Warnings</h3><ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>{{end}}
<p><small>Generated at {{.GeneratedAt}}</small></p>
</body>
</html>`))

// FormatBody renders the HTML summary. Exported for tests and for callers
// that deliver through other channels.
func FormatBody(summary Summary) (string, error) {
	data := bodyData{
		Date:        summary.Snapshot.At.Format("2006-01-02"),
		TotalValue:  summary.Snapshot.TotalValue.StringFixed(2),
		Omitted:     summary.Snapshot.Omitted,
		Warnings:    summary.Warnings,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	symbols := make([]string, 0, len(summary.Snapshot.PerHolding))
	for symbol := range summary.Snapshot.PerHolding {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		data.Rows = append(data.Rows, bodyRow{
			Symbol: symbol,
			Value:  summary.Snapshot.PerHolding[symbol].StringFixed(2),
		})
	}

	if summary.Performance != nil {
		data.HasPerf = true
		data.BaselineMode = string(summary.Performance.BaselineMode)
		data.AbsoluteGain = summary.Performance.AbsoluteGain.StringFixed(2)
		data.PercentReturn = summary.Performance.PercentReturn.Mul(decimal.NewFromInt(100)).StringFixed(2)
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
