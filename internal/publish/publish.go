// Package publish applies a reconciled difference set to a target
// account: missing groups first, then missing services.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deskops/internal/reconcile"
	"github.com/dokzlo13/deskops/internal/snapshot"
	"github.com/dokzlo13/deskops/internal/statuspage"
)

// Creator creates records on the target account.
type Creator interface {
	CreateGroup(ctx context.Context, req statuspage.GroupRequest) (*snapshot.Group, error)
	CreateService(ctx context.Context, req statuspage.ServiceRequest) (*snapshot.Service, error)
}

// Options are the per-run switches.
type Options struct {
	DryRun bool // plan and log creates without calling the API
	Debug  bool // log the full difference set before publishing
}

// Publisher creates the records of a difference set that are missing on
// the target. Calls are issued one at a time, in order.
type Publisher struct {
	client   Creator
	engine   *reconcile.Engine
	recorder Recorder
	opts     Options
}

// New creates a publisher. recorder may be nil.
func New(client Creator, engine *reconcile.Engine, recorder Recorder, opts Options) *Publisher {
	if engine == nil {
		engine = reconcile.NewEngine(reconcile.Options{})
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Publisher{client: client, engine: engine, recorder: recorder, opts: opts}
}

// run is the mutable state of one Publish call.
type run struct {
	*Publisher
	id      string
	account string
	diff    *reconcile.DifferenceSet
	report  *Report
	planned map[string]bool // match keys of groups planned for creation in dry-run
}

// Publish creates every group and service of diff whose ExistInServer is
// nil. diff is not modified; the returned report carries the updated copy.
//
// A rejected group create stops the run before any service is sent. A
// rejected service create stops the run as well. Nothing is rolled back.
func (p *Publisher) Publish(ctx context.Context, account string, diff *reconcile.DifferenceSet) (*Report, error) {
	r := &run{
		Publisher: p,
		id:        uuid.New().String(),
		account:   account,
		diff:      diff.Clone(),
		planned:   make(map[string]bool),
	}
	r.report = &Report{RunID: r.id, Account: account, DryRun: p.opts.DryRun, Diff: r.diff}

	logger := log.With().Str("run_id", r.id).Str("account", account).Logger()
	logger.Info().
		Int("groups", len(r.diff.Groups)).
		Int("services", len(r.diff.Services)).
		Bool("dry_run", p.opts.DryRun).
		Msg("Publishing")

	if p.opts.Debug {
		if data, err := json.MarshalIndent(r.diff, "", "    "); err == nil {
			logger.Debug().RawJSON("diff", data).Msg("Difference set")
		}
	}

	r.record(ctx, Event{Type: EventRunStarted})

	if err := r.publishGroups(ctx); err != nil {
		r.fail(ctx, err)
		return r.report, err
	}
	if err := r.publishServices(ctx); err != nil {
		r.fail(ctx, err)
		return r.report, err
	}

	r.record(ctx, Event{Type: EventRunCompleted})
	logger.Info().
		Int("created", r.report.Count(OutcomeCreated)).
		Int("planned", r.report.Count(OutcomePlanned)).
		Int("skipped", r.report.Count(OutcomeSkipped)).
		Msg("Publish finished")

	return r.report, nil
}

func (r *run) publishGroups(ctx context.Context) error {
	// backup id -> index, taken before any id is replaced
	byBackupID := make(map[int64]int, len(r.diff.Groups))
	for i, g := range r.diff.Groups {
		if _, ok := byBackupID[g.ID]; !ok {
			byBackupID[g.ID] = i
		}
	}

	for _, i := range creationOrder(r.diff.Groups) {
		g := &r.diff.Groups[i]
		key := g.Key()

		if g.ExistInServer != nil {
			r.report.add(Result{Key: key, Outcome: OutcomeSkipped, SourceID: g.ID, TargetID: g.ExistInServer})
			continue
		}

		req := statuspage.GroupRequest{Name: g.Name}
		if g.ParentName != nil {
			if pi, ok := byBackupID[g.ParentName.ID]; ok && r.diff.Groups[pi].ExistInServer != nil {
				parent := *r.diff.Groups[pi].ExistInServer
				req.ParentID = &parent
			} else if !r.planned[r.engine.Key(g.ParentName.Name)] {
				log.Warn().Str("group", g.Name).Str("parent", g.ParentName.Name).Msg("Parent group has no target id, creating without parent")
			}
		}

		if r.opts.DryRun {
			r.planned[r.engine.Key(g.Name)] = true
			logPlanned(key, req)
			r.report.add(Result{Key: key, Outcome: OutcomePlanned, SourceID: g.ID})
			continue
		}

		created, err := r.client.CreateGroup(ctx, req)
		if err == nil && (created == nil || created.ID == 0) {
			err = statuspage.ErrMissingID
		}
		if err != nil {
			r.report.add(Result{Key: key, Outcome: OutcomeFailed, SourceID: g.ID, Err: err})
			return fmt.Errorf("create group %q: %w", g.Name, err)
		}

		sourceID := g.ID
		targetID := created.ID
		g.ExistInServer = &targetID
		g.ID = targetID

		log.Info().Str("group", g.Name).Int64("id", targetID).Msg("Created group")
		r.report.add(Result{Key: key, Outcome: OutcomeCreated, SourceID: sourceID, TargetID: &targetID})
		r.record(ctx, Event{Type: EventGroupCreated, Kind: reconcile.KindGroup, Name: g.Name, SourceID: sourceID, TargetID: &targetID, Payload: req})
	}
	return nil
}

func (r *run) publishServices(ctx context.Context) error {
	for i := range r.diff.Services {
		s := &r.diff.Services[i]
		key := s.Key()

		if s.ExistInServer != nil {
			r.report.add(Result{Key: key, Outcome: OutcomeSkipped, SourceID: s.ID, TargetID: s.ExistInServer})
			continue
		}

		resolved, res := r.engine.ResolveGroupRef(*s, r.diff.TargetServices, r.diff.Groups)
		if res == reconcile.ResolutionUnresolved && !(r.opts.DryRun && r.planned[r.engine.Key(resolved.Group.Name)]) {
			err := fmt.Errorf("%w: service %q references group %q (id %d) which has no id on the target",
				reconcile.ErrUnresolvedReference, s.Name, resolved.Group.Name, resolved.Group.ID)
			r.report.add(Result{Key: key, Outcome: OutcomeFailed, SourceID: s.ID, Err: err})
			return err
		}
		*s = resolved

		req := statuspage.ServiceRequest{
			Name:           s.Name,
			Description:    s.Description,
			Order:          s.Order,
			DisplayOptions: s.DisplayOptions,
		}
		if s.Group != nil && res != reconcile.ResolutionUnresolved {
			groupID := s.Group.ID
			req.Group = &groupID
		}

		if r.opts.DryRun {
			logPlanned(key, req)
			r.report.add(Result{Key: key, Outcome: OutcomePlanned, SourceID: s.ID})
			continue
		}

		created, err := r.client.CreateService(ctx, req)
		if err == nil && (created == nil || created.ID == 0) {
			err = statuspage.ErrMissingID
		}
		if err != nil {
			r.report.add(Result{Key: key, Outcome: OutcomeFailed, SourceID: s.ID, Err: err})
			return fmt.Errorf("create service %q: %w", s.Name, err)
		}

		sourceID := s.ID
		targetID := created.ID
		s.ID = targetID
		s.ExistInServer = &targetID
		if created.Group != nil {
			ref := *created.Group
			s.Group = &ref
		}

		log.Info().Str("service", s.Name).Str("group", s.GroupName()).Int64("id", targetID).Msg("Created service")
		r.report.add(Result{Key: key, Outcome: OutcomeCreated, SourceID: sourceID, TargetID: &targetID})
		r.record(ctx, Event{Type: EventServiceCreated, Kind: reconcile.KindService, Name: s.Name, Group: s.GroupName(), SourceID: sourceID, TargetID: &targetID, Payload: req})
	}
	return nil
}

func (r *run) fail(ctx context.Context, err error) {
	log.Error().Err(err).Str("run_id", r.id).Msg("Publish aborted")
	r.record(ctx, Event{Type: EventPublishFailed, Error: err.Error()})
}

func (r *run) record(ctx context.Context, e Event) {
	e.RunID = r.id
	e.Account = r.account
	e.DryRun = r.opts.DryRun
	if err := r.recorder.Record(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("event", string(e.Type)).Msg("Failed to record publish event")
	}
}

func logPlanned(key reconcile.ResourceKey, payload any) {
	data, _ := json.Marshal(payload)
	log.Info().Str("record", key.String()).RawJSON("payload", data).Msg("DRY RUN: would create")
}

// creationOrder returns group indices so that a group whose parent is
// created in the same run comes after that parent. Groups caught in a
// parent cycle keep their original order at the end.
func creationOrder(groups []reconcile.GroupDiff) []int {
	pending := make(map[int64]bool, len(groups))
	for _, g := range groups {
		if g.ExistInServer == nil {
			pending[g.ID] = true
		}
	}

	order := make([]int, 0, len(groups))
	done := make([]bool, len(groups))
	emitted := make(map[int64]bool, len(groups))

	for progress := true; progress; {
		progress = false
		for i, g := range groups {
			if done[i] {
				continue
			}
			if g.ParentName != nil && pending[g.ParentName.ID] && !emitted[g.ParentName.ID] && g.ParentName.ID != g.ID {
				continue
			}
			order = append(order, i)
			done[i] = true
			emitted[g.ID] = true
			progress = true
		}
	}

	for i := range groups {
		if !done[i] {
			order = append(order, i)
		}
	}
	return order
}
