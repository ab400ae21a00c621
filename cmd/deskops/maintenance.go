package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/lensesio/tableprinter"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/deskops/internal/maintenance"
)

type maintenanceFlags struct {
	template  string
	accounts  []string
	remove    string
	release   string
	startDate string
	startTime string
	endDate   string
	endTime   string
	yes       bool
}

type outcomeRow struct {
	Account string `header:"Account"`
	Name    string `header:"Name"`
	Result  string `header:"Result"`
	Error   string `header:"Error"`
}

func (c *cli) maintenanceCmd() *cobra.Command {
	var f maintenanceFlags
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Schedule a maintenance window on every account of a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMaintenance(cmd, &f)
		},
	}
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "Maintenance template file (default from config)")
	cmd.Flags().StringSliceVar(&f.accounts, "account", nil, "Only schedule for these template accounts")
	cmd.Flags().StringVar(&f.remove, "remove", "", "Comma separated 1-based account numbers to leave out")
	cmd.Flags().StringVarP(&f.release, "release", "r", "", "Release version substituted into the title and description")
	cmd.Flags().StringVar(&f.startDate, "start-date", "", "Start date YYYY-MM-DD (default next Sunday)")
	cmd.Flags().StringVar(&f.startTime, "start-time", "", "Start time HH:MM AM/PM")
	cmd.Flags().StringVar(&f.endDate, "end-date", "", "End date YYYY-MM-DD (default start date)")
	cmd.Flags().StringVar(&f.endTime, "end-time", "", "End time HH:MM AM/PM")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *cli) runMaintenance(cmd *cobra.Command, f *maintenanceFlags) error {
	cfg := c.config().Maintenance
	if f.template == "" {
		f.template = cfg.Template
	}
	tpl, err := maintenance.LoadTemplate(f.template)
	if err != nil {
		return err
	}

	accounts, err := c.selectAccounts(cmd, tpl, f)
	if err != nil {
		return err
	}

	release, err := c.ask(f.release, "Release version", "release version")
	if err != nil {
		return err
	}

	window, err := c.maintenanceWindow(f)
	if err != nil {
		return err
	}

	run := c.config().Run
	fmt.Fprintln(c.out, maintenance.Summary(tpl, accounts, release, window, run.DryRun, run.Debug))

	ok, err := c.confirm(f.yes, "Schedule this maintenance?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(c.out, "Aborted")
		return nil
	}

	outcomes, err := c.services().Scheduler(c.out).Schedule(ctxOf(cmd), tpl, accounts, release, window)
	printOutcomes(c.out, outcomes)
	if err != nil {
		return err
	}
	if n := maintenance.Failed(outcomes); n > 0 {
		return fmt.Errorf("maintenance failed for %d of %d account(s)", n, len(outcomes))
	}
	return nil
}

// selectAccounts narrows the template accounts by --account, --remove or
// an interactive selection.
func (c *cli) selectAccounts(cmd *cobra.Command, tpl *maintenance.Template, f *maintenanceFlags) ([]string, error) {
	all := tpl.Accounts()

	if len(f.accounts) > 0 {
		for _, a := range f.accounts {
			if !slices.Contains(all, a) {
				return nil, fmt.Errorf("%w %q", maintenance.ErrUnknownAccount, a)
			}
		}
		return f.accounts, nil
	}

	var indices []int
	if cmd.Flags().Changed("remove") {
		indices = maintenance.ParseIndices(f.remove)
	} else {
		fmt.Fprintln(c.out, titleStyle.Render("Accounts:"))
		names := make([]string, len(all))
		for i, a := range all {
			names[i] = tpl.AccountName(a)
			fmt.Fprintf(c.out, "%d. %s\n", i+1, names[i])
		}
		remove, err := c.prompter.Confirm("Remove any accounts?")
		if err != nil {
			return nil, err
		}
		if !remove {
			return all, nil
		}
		selected, err := c.prompter.MultiSelect("Accounts to remove", names)
		if err != nil {
			return nil, err
		}
		for _, i := range selected {
			indices = append(indices, i+1)
		}
	}

	kept, removed, err := maintenance.RemoveAccounts(all, indices)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		fmt.Fprintf(c.out, "Removed: %s\n", strings.Join(removed, ", "))
	}
	return kept, nil
}

// maintenanceWindow builds the window from flags, prompting for every
// value not given with next Sunday's default window as the suggestion.
func (c *cli) maintenanceWindow(f *maintenanceFlags) (maintenance.Window, error) {
	cfg := c.config().Maintenance
	loc := cfg.Location()

	def, err := maintenance.DefaultWindow(c.now(), loc, cfg.DefaultStart, cfg.DefaultEnd)
	if err != nil {
		return maintenance.Window{}, err
	}
	defDate := def.Start.Format(maintenance.DateLayout)

	values := []struct {
		value *string
		title string
		def   string
	}{
		{&f.startDate, "Start date (YYYY-MM-DD)", defDate},
		{&f.startTime, "Start time (HH:MM AM/PM)", cfg.DefaultStart},
		{&f.endDate, "End date (YYYY-MM-DD)", ""},
		{&f.endTime, "End time (HH:MM AM/PM)", cfg.DefaultEnd},
	}
	for _, v := range values {
		if *v.value != "" {
			continue
		}
		d := v.def
		if d == "" {
			d = f.startDate
		}
		answer, err := c.prompter.Input(v.title, d)
		if err != nil {
			return maintenance.Window{}, err
		}
		*v.value = strings.TrimSpace(answer)
	}

	w, err := maintenance.ParseWindow(f.startDate, f.startTime, f.endDate, f.endTime, loc)
	if err != nil {
		return maintenance.Window{}, err
	}
	if err := w.Validate(); err != nil {
		return maintenance.Window{}, err
	}
	return w, nil
}

func printOutcomes(w io.Writer, outcomes []maintenance.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	rows := make([]outcomeRow, 0, len(outcomes))
	for _, o := range outcomes {
		row := outcomeRow{Account: o.Account, Name: o.Name}
		switch {
		case o.Err != nil:
			row.Result = "failed"
			row.Error = o.Err.Error()
		case o.Planned:
			row.Result = "planned"
		case o.Created:
			row.Result = "created"
		}
		rows = append(rows, row)
	}
	tableprinter.Print(w, rows)
}
