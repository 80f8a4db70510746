package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/sawpanic/signalrun/internal/delivery"
	"github.com/sawpanic/signalrun/internal/engine"
	"github.com/sawpanic/signalrun/internal/metrics"
	"github.com/sawpanic/signalrun/internal/persistence"
	"github.com/sawpanic/signalrun/internal/regime"
	"github.com/sawpanic/signalrun/internal/scan"
	"github.com/sawpanic/signalrun/internal/signal"
)

var (
	successText = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnText    = color.New(color.FgYellow).SprintFunc()
	headerText  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func setColor(disabled bool) {
	if disabled {
		color.NoColor = true
	}
}

func regimeLabel(r regime.Regime) string {
	if r == regime.Trend {
		return successText(strings.ToUpper(r.String()))
	}
	return warnText(strings.ToUpper(r.String()))
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	return table
}

func price(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func renderCycle(w io.Writer, cycle *scan.Cycle, eng *engine.Engine) {
	router := regime.NewThresholdRouter(eng.Config())
	fmt.Fprintf(w, "%s %s  %s  as of %s\n", headerText("cycle"), cycle.ID, regimeLabel(cycle.Regime),
		cycle.AsOf.Format("2006-01-02 15:04 MST"))
	fmt.Fprintln(w, router.Describe(cycle.Regime))

	table := newTable(w, []string{"Symbol", "Outcome", "Setup", "Score", "Entry", "Stop", "TP1", "TP2", "Final", "Size", "Detail"})
	for _, r := range cycle.Results {
		table.Append(cycleRow(r))
	}
	table.Render()

	summary := cycle.Summary()
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, summary[k]))
	}
	fmt.Fprintf(w, "%d symbols in %s: %s\n", len(cycle.Results), cycle.Duration.Round(time.Microsecond), strings.Join(parts, " "))
}

func cycleRow(r scan.Result) []string {
	row := []string{r.Symbol, "", "", "", "", "", "", "", "", "", ""}
	switch {
	case r.Err != nil:
		row[1] = "ERROR"
		row[10] = r.Err.Error()
		return row
	case r.Skipped != "":
		row[1] = "SKIP"
		row[10] = "prefilter: " + r.Skipped
		return row
	}

	d := r.Decision
	if d.Setup.Setup != "" {
		row[2] = string(d.Setup.Setup)
	}
	if d.Score != nil {
		row[3] = fmt.Sprintf("%.1f", d.Score.Score)
	}
	if s := d.Signal; s != nil {
		row[1] = "SIGNAL"
		row[4], row[5] = price(s.Entry), price(s.Stop)
		row[6], row[7], row[8] = price(s.TP1), price(s.TP2), price(s.TPFinal)
		if s.TP1Clamped {
			row[6] += "*"
		}
		row[9] = fmt.Sprintf("x%.2f", s.SizeMultiplier)
		row[10] = s.AuditID
		return row
	}
	row[1] = string(d.Reason)
	row[10] = d.Detail
	return row
}

func renderReports(w io.Writer, reports []delivery.Report) {
	table := newTable(w, []string{"Audit ID", "Symbol", "Outcome", "Error"})
	for _, r := range reports {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		table.Append([]string{r.AuditID, r.Symbol, string(r.Outcome), errText})
	}
	table.Render()
}

func renderMetrics(w io.Writer, samples []metrics.Sample) {
	table := newTable(w, []string{"Metric", "Labels", "Value"})
	for _, s := range samples {
		table.Append([]string{s.Name, s.Labels, fmt.Sprintf("%g", s.Value)})
	}
	table.Render()
}

func renderHistory(w io.Writer, tr persistence.TimeRange, signals []*signal.Signal, counts map[string]int64) {
	fmt.Fprintf(w, "%s %s\n", headerText("signals for"), tr.From.Format("2006-01-02"))

	table := newTable(w, []string{"Time", "Symbol", "Setup", "Regime", "Score", "Entry", "Stop", "TP1", "Audit ID"})
	for _, s := range signals {
		table.Append([]string{
			s.GeneratedAt.Format("15:04"), s.Symbol, string(s.Setup), s.Regime.String(),
			fmt.Sprintf("%.1f", s.Score), price(s.Entry), price(s.Stop), price(s.TP1), s.AuditID,
		})
	}
	table.Render()

	setups := make([]string, 0, len(counts))
	for k := range counts {
		setups = append(setups, k)
	}
	sort.Strings(setups)
	for _, k := range setups {
		fmt.Fprintf(w, "%-6s %d\n", k, counts[k])
	}
}

func renderHealth(w io.Writer, hc persistence.HealthCheck) {
	status := successText("healthy")
	if !hc.Healthy {
		status = warnText("unhealthy")
	}
	fmt.Fprintf(w, "%s %s (%dms)\n", headerText("signal store"), status, hc.ResponseTimeMS)
	for _, e := range hc.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	keys := make([]string, 0, len(hc.ConnectionPool))
	for k := range hc.ConnectionPool {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-14s %d\n", k, hc.ConnectionPool[k])
	}
}
