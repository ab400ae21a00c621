package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

// Creator posts a maintenance to one account.
type Creator interface {
	CreateMaintenance(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// ClientFactory returns the creator for an account.
type ClientFactory func(account string) (Creator, error)

// Options are the per-run switches.
type Options struct {
	DryRun bool
	Debug  bool
}

// Outcome is the result for one account.
type Outcome struct {
	Account string
	Name    string
	Planned bool
	Created bool
	Err     error
}

// Scheduler posts the same maintenance to several accounts.
type Scheduler struct {
	clients ClientFactory
	opts    Options
	out     io.Writer
}

// NewScheduler creates a scheduler. Dry-run payloads are written to out.
func NewScheduler(clients ClientFactory, opts Options, out io.Writer) *Scheduler {
	return &Scheduler{clients: clients, opts: opts, out: out}
}

// Schedule posts the maintenance to every account in order. A failure
// for one account is reported in its Outcome and the loop continues.
func (s *Scheduler) Schedule(ctx context.Context, tpl *Template, accounts []string, release string, w Window) ([]Outcome, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(accounts))
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, s.scheduleOne(ctx, tpl, account, release, w))
	}
	return outcomes, nil
}

func (s *Scheduler) scheduleOne(ctx context.Context, tpl *Template, account, release string, w Window) Outcome {
	out := Outcome{Account: account, Name: tpl.AccountName(account)}
	logger := log.With().Str("account", account).Logger()

	payload, err := BuildPayload(tpl, account, release, w, s.opts.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("Skipping account")
		out.Err = err
		return out
	}

	if s.opts.DryRun {
		data, err := json.MarshalIndent(payload, "", "    ")
		if err != nil {
			out.Err = err
			return out
		}
		fmt.Fprintf(s.out, "DRY RUN: payload for %s:\n%s\n", account, data)
		out.Planned = true
		return out
	}

	client, err := s.clients(account)
	if err != nil {
		logger.Error().Err(err).Msg("No client for account")
		out.Err = err
		return out
	}

	if _, err := client.CreateMaintenance(ctx, payload); err != nil {
		logger.Error().Err(err).Msg("Failed to create scheduled maintenance")
		out.Err = err
		return out
	}

	logger.Info().Str("title", fmt.Sprint(payload["title"])).Msg("Scheduled maintenance created")
	out.Created = true
	return out
}

// Failed counts the outcomes with an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
