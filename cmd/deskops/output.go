package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lensesio/tableprinter"

	"github.com/dokzlo13/deskops/internal/ledger"
	"github.com/dokzlo13/deskops/internal/publish"
	"github.com/dokzlo13/deskops/internal/reconcile"
	"github.com/dokzlo13/deskops/internal/snapshot"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F4D03F"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
)

func idString(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func (c *cli) banner() {
	cfg := c.config()
	if cfg.Run.DryRun {
		fmt.Fprintln(c.out, warningStyle.Render("DRY RUN: no changes will be made"))
	}
	if cfg.Run.Debug {
		fmt.Fprintln(c.out, warningStyle.Render("DEBUG MODE ACTIVE"))
	}
}

type serviceRow struct {
	Group         string `header:"Group"`
	ID            int64  `header:"ID"`
	Name          string `header:"Service"`
	Order         int    `header:"Order"`
	UptimeHistory string `header:"Uptime History"`
}

// uptimeHistory reads display_options.uptime_history_enabled.
func uptimeHistory(raw snapshot.RawJSON) string {
	var opts struct {
		UptimeHistoryEnabled *bool `json:"uptime_history_enabled"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &opts) != nil || opts.UptimeHistoryEnabled == nil {
		return "-"
	}
	return strconv.FormatBool(*opts.UptimeHistoryEnabled)
}

func printServices(w io.Writer, services []snapshot.Service) {
	var rows []serviceRow
	for _, bucket := range snapshot.GroupServices(services) {
		for _, s := range bucket.Services {
			rows = append(rows, serviceRow{
				Group:         bucket.Name,
				ID:            s.ID,
				Name:          s.Name,
				Order:         s.Order,
				UptimeHistory: uptimeHistory(s.DisplayOptions),
			})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No services"))
		return
	}
	tableprinter.Print(w, rows)
}

type planRow struct {
	Kind     string `header:"Kind"`
	Name     string `header:"Name"`
	Parent   string `header:"Parent / Group"`
	Action   string `header:"Action"`
	TargetID string `header:"Target ID"`
	Note     string `header:"Note"`
}

func printPlan(w io.Writer, items []reconcile.PlanItem) {
	rows := make([]planRow, 0, len(items))
	for _, it := range items {
		row := planRow{
			Kind:     string(it.Key.Kind),
			Name:     it.Key.Name,
			Parent:   it.Parent,
			Action:   it.Action.String(),
			TargetID: idString(it.TargetID),
		}
		if it.Blocked {
			row.Note = "group missing on target"
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		tableprinter.Print(w, rows)
	}

	counts := reconcile.Count(items)
	fmt.Fprintf(w, "Groups: %d to create, %d existing. Services: %d to create, %d existing.\n",
		counts.GroupsCreate, counts.GroupsSkip, counts.ServicesCreate, counts.ServicesSkip)
	if counts.Blocked > 0 {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%d service(s) reference a group that will not exist on the target", counts.Blocked)))
	}
}

type resultRow struct {
	Kind     string `header:"Kind"`
	Name     string `header:"Name"`
	Group    string `header:"Group"`
	Outcome  string `header:"Outcome"`
	SourceID int64  `header:"Source ID"`
	TargetID string `header:"Target ID"`
	Error    string `header:"Error"`
}

func printReport(w io.Writer, report *publish.Report) {
	rows := make([]resultRow, 0, len(report.Results))
	for _, r := range report.Results {
		row := resultRow{
			Kind:     string(r.Key.Kind),
			Name:     r.Key.Name,
			Group:    r.Key.Group,
			Outcome:  string(r.Outcome),
			SourceID: r.SourceID,
			TargetID: idString(r.TargetID),
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		tableprinter.Print(w, rows)
	}
	fmt.Fprintf(w, "Run %s: %d created, %d skipped, %d planned, %d failed\n",
		report.RunID,
		report.Count(publish.OutcomeCreated),
		report.Count(publish.OutcomeSkipped),
		report.Count(publish.OutcomePlanned),
		report.Count(publish.OutcomeFailed))
}

type historyRow struct {
	Time     string `header:"Time"`
	RunID    string `header:"Run"`
	Event    string `header:"Event"`
	Account  string `header:"Account"`
	DryRun   bool   `header:"Dry Run"`
	Kind     string `header:"Kind"`
	Name     string `header:"Name"`
	Group    string `header:"Group"`
	TargetID string `header:"Target ID"`
	Error    string `header:"Error"`
}

func printHistory(w io.Writer, entries []*ledger.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No history"))
		return
	}
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow{
			Time:     e.Timestamp.Local().Format(time.DateTime),
			RunID:    e.RunID,
			Event:    string(e.EventType),
			Account:  e.Account,
			DryRun:   e.DryRun,
			Kind:     string(e.Kind),
			Name:     e.Name,
			Group:    e.Group,
			TargetID: idString(e.TargetID),
			Error:    e.Error,
		})
	}
	tableprinter.Print(w, rows)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
