package main

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/deskops/internal/app"
	"github.com/dokzlo13/deskops/internal/config"
	"github.com/dokzlo13/deskops/internal/prompt"
)

// cli carries the global flags and the app built for one invocation.
type cli struct {
	configPath string
	debug      bool
	dryRun     bool

	prompter prompt.Prompter
	out      io.Writer
	now      func() time.Time

	app *app.App
}

// run executes one command line and releases everything it opened.
func run(ctx context.Context, p prompt.Prompter, out io.Writer, args []string) error {
	c := &cli{prompter: p, out: out, now: time.Now}
	defer c.close()

	root := c.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "deskops",
		Short: "Back up, restore and export status-page and helpdesk data",
		Long: `deskops talks to the status-page and helpdesk vendor APIs. It backs up
and restores status-page groups and services, schedules maintenance from a
template, and exports helpdesk data to CSV and JSON.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "deskops.yaml", "Path to configuration file")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "Debug mode: verbose logs, test-only maintenance")
	root.PersistentFlags().BoolVar(&c.dryRun, "dry-run", false, "Plan and print changes without calling mutating APIs")

	root.AddCommand(c.statusCmd(), c.deskCmd(), c.historyCmd())
	return root
}

// setup loads the configuration, applies the flag overrides and builds the app.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("debug") {
		cfg.Run.Debug = c.debug
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Run.DryRun = c.dryRun
	}
	level := cfg.Log.Level
	if cfg.Run.Debug {
		level = "debug"
	}
	setupLogging(level, cfg.Log.JSON, cfg.Log.Colors)

	log.Debug().Str("config", c.configPath).Bool("dry_run", cfg.Run.DryRun).Msg("Configuration loaded")

	c.app, err = app.New(cfg)
	return err
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *cli) services() *app.Services {
	return c.app.Services()
}

func (c *cli) config() *config.Config {
	return c.app.Config()
}

// ask returns value, prompting for it when empty.
func (c *cli) ask(value, title, what string) (string, error) {
	if value != "" {
		return value, nil
	}
	return prompt.Required(c.prompter, title, what)
}

// confirm asks before a mutating step. yes and dry-run skip the question.
func (c *cli) confirm(yes bool, title string) (bool, error) {
	if yes || c.config().Run.DryRun {
		return true, nil
	}
	return c.prompter.Confirm(title)
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
