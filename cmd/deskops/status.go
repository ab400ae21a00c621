package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/deskops/internal/reconcile"
	"github.com/dokzlo13/deskops/internal/snapshot"
	"github.com/dokzlo13/deskops/internal/statuspage"
)

func (c *cli) statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Status-page groups, services and maintenance",
	}
	cmd.AddCommand(
		c.backupCmd(),
		c.restoreCmd(),
		c.diffCmd(),
		c.servicesCmd(),
		c.checkCmd(),
		c.maintenanceCmd(),
	)
	return cmd
}

// accountClient prompts for the account when needed and returns its client.
func (c *cli) accountClient(account string) (string, *statuspage.Client, error) {
	account, err := c.ask(account, "Status page account name", "account name")
	if err != nil {
		return "", nil, err
	}
	client, err := c.services().StatusPage(account)
	if err != nil {
		return "", nil, err
	}
	return account, client, nil
}

func (c *cli) backupCmd() *cobra.Command {
	var (
		account string
		save    bool
		output  string
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Fetch the groups and services of an account and save them as a backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			account, client, err := c.accountClient(account)
			if err != nil {
				return err
			}

			snap, err := snapshot.Fetch(ctx, client)
			if err != nil {
				return err
			}
			printServices(c.out, snap.Services)
			fmt.Fprintf(c.out, "%d groups, %d services\n", len(snap.Groups), len(snap.Services))

			if output == "" {
				output = filepath.Join(c.config().Export.Dir, snapshot.BackupFileName(account, c.now()))
			}
			if !cmd.Flags().Changed("save") {
				if save, err = c.prompter.Confirm("Save backup to " + output + "?"); err != nil {
					return err
				}
			}
			if !save {
				return nil
			}

			if err := snapshot.Save(output, snap); err != nil {
				return err
			}
			log.Info().Str("account", account).Str("path", output).Msg("Backup saved")
			fmt.Fprintln(c.out, "Backup saved to", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "Status page account name")
	cmd.Flags().BoolVar(&save, "save", false, "Save the backup without asking")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Backup file path (default <export dir>/fstatus_<account>_services_backup-<time>.json)")
	return cmd
}

// diffAgainst loads a backup and reconciles it against the live account.
func (c *cli) diffAgainst(cmd *cobra.Command, client *statuspage.Client, backupPath string) (*reconcile.DifferenceSet, error) {
	backupPath, err := c.ask(backupPath, "Backup file path", "backup file")
	if err != nil {
		return nil, err
	}
	backup, err := snapshot.Load(backupPath)
	if err != nil {
		return nil, err
	}

	target, err := snapshot.Fetch(ctxOf(cmd), client)
	if err != nil {
		return nil, err
	}

	engine := c.services().Engine
	diff, err := engine.Reconcile(target, backup)
	if err != nil {
		return nil, err
	}

	diff, unresolved := engine.ResolveAll(diff)
	for _, u := range unresolved {
		log.Warn().Str("service", u.Name).Str("group", u.Group).Msg("Service group has no id on the target yet")
	}
	return diff, nil
}

func (c *cli) diffCmd() *cobra.Command {
	var (
		account    string
		backupPath string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a backup with the live account without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := c.accountClient(account)
			if err != nil {
				return err
			}
			diff, err := c.diffAgainst(cmd, client, backupPath)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(c.out, diff)
			}
			printPlan(c.out, c.services().Engine.Plan(diff))
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "Target status page account")
	cmd.Flags().StringVarP(&backupPath, "backup", "b", "", "Backup file to compare")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the annotated difference set as JSON")
	return cmd
}

func (c *cli) restoreCmd() *cobra.Command {
	var (
		account    string
		backupPath string
		yes        bool
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Create the groups and services of a backup that are missing on an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, client, err := c.accountClient(account)
			if err != nil {
				return err
			}
			diff, err := c.diffAgainst(cmd, client, backupPath)
			if err != nil {
				return err
			}

			c.banner()
			items := c.services().Engine.Plan(diff)
			printPlan(c.out, items)

			counts := reconcile.Count(items)
			if counts.GroupsCreate+counts.ServicesCreate == 0 {
				fmt.Fprintln(c.out, "Nothing to restore")
				return nil
			}

			ok, err := c.confirm(yes, fmt.Sprintf("Restore into %s?", account))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(c.out, "Aborted")
				return nil
			}

			report, err := c.services().Publisher(client).Publish(ctxOf(cmd), account, diff)
			if report != nil {
				printReport(c.out, report)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "Target status page account")
	cmd.Flags().StringVarP(&backupPath, "backup", "b", "", "Backup file to restore")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *cli) servicesCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List the services of an account grouped by service group",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, client, err := c.accountClient(account)
			if err != nil {
				return err
			}
			services, err := client.ListServices(ctxOf(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, titleStyle.Render("Services of "+account))
			printServices(c.out, services)
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "Status page account name")
	return cmd
}

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check ACCOUNT...",
		Short: "Check that status page accounts exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, account := range args {
				if err := c.services().CheckAccount(ctxOf(cmd), account); err != nil {
					fmt.Fprintln(c.out, errorStyle.Render(err.Error()))
					failed++
					continue
				}
				fmt.Fprintf(c.out, "Account %s exists\n", account)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d account(s) not reachable", failed, len(args))
			}
			return nil
		},
	}
}
