package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deskops/internal/config"
	"github.com/dokzlo13/deskops/internal/credentials"
	"github.com/dokzlo13/deskops/internal/db"
	"github.com/dokzlo13/deskops/internal/helpdesk"
	"github.com/dokzlo13/deskops/internal/ledger"
	"github.com/dokzlo13/deskops/internal/maintenance"
	"github.com/dokzlo13/deskops/internal/publish"
	"github.com/dokzlo13/deskops/internal/reconcile"
	"github.com/dokzlo13/deskops/internal/rest"
	"github.com/dokzlo13/deskops/internal/statuspage"
)

// Services is a container for all application services.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger

	// Key files
	StatusPageKeys *credentials.Store
	HelpdeskKeys   *credentials.Store

	Engine  *reconcile.Engine
	matcher reconcile.Matcher
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	script, err := keyScript(cfg.Reconcile.KeyScript)
	if err != nil {
		return nil, err
	}
	s.matcher, err = reconcile.NewMatcher(cfg.Reconcile.Match, script)
	if err != nil {
		return nil, fmt.Errorf("failed to build matcher: %w", err)
	}
	s.Engine = reconcile.NewEngine(reconcile.Options{
		Matcher:    s.matcher,
		Duplicates: reconcile.DuplicatePolicy(cfg.Reconcile.Duplicates),
	})

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)

	s.StatusPageKeys = credentials.NewStore(cfg.Secrets.Dir, cfg.Secrets.StatusPagePattern, credentials.Scheme(cfg.StatusPage.AuthScheme))
	s.HelpdeskKeys = credentials.NewStore(cfg.Secrets.Dir, cfg.Secrets.HelpdeskPattern, credentials.SchemeBasic)

	return s, nil
}

// keyScript accepts inline Lua or a path to a .lua file.
func keyScript(value string) (string, error) {
	if !strings.HasSuffix(strings.TrimSpace(value), ".lua") {
		return value, nil
	}
	data, err := os.ReadFile(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("failed to read key script: %w", err)
	}
	return string(data), nil
}

// DryRun reports whether mutating calls are suppressed for this run.
func (s *Services) DryRun() bool {
	return s.cfg.Run.DryRun
}

// Debug reports whether debug output is enabled for this run.
func (s *Services) Debug() bool {
	return s.cfg.Run.Debug
}

// StatusPage returns a client authenticated for account.
func (s *Services) StatusPage(account string) (*statuspage.Client, error) {
	cred, err := s.StatusPageKeys.Read(account)
	if err != nil {
		return nil, err
	}
	sp := s.cfg.StatusPage
	transport := rest.NewClient(rest.Config{
		BaseURL:      sp.BaseURL,
		Credential:   cred,
		Timeout:      sp.Timeout.Duration(),
		RateLimitRPS: sp.RateLimitRPS,
		DryRun:       s.cfg.Run.DryRun,
		Debug:        s.cfg.Run.Debug,
	})
	return statuspage.NewClient(transport, sp.PageSize), nil
}

// CheckAccount verifies that account has a reachable status page.
func (s *Services) CheckAccount(ctx context.Context, account string) error {
	return statuspage.CheckAccount(ctx, s.cfg.StatusPage.AccountURL, account)
}

// Helpdesk returns a client for domain. An empty domain uses the
// configured one.
func (s *Services) Helpdesk(domain string) (*helpdesk.Client, error) {
	if domain == "" {
		domain = s.cfg.Helpdesk.Domain
	}
	if domain == "" {
		return nil, fmt.Errorf("helpdesk domain is required")
	}
	cred, err := s.HelpdeskKeys.Read(domain)
	if err != nil {
		return nil, err
	}
	hd := s.cfg.Helpdesk
	return helpdesk.NewClient(rest.Config{
		BaseURL:      hd.BaseURL(domain),
		Credential:   cred,
		Timeout:      hd.Timeout.Duration(),
		RateLimitRPS: hd.RateLimitRPS,
		DryRun:       s.cfg.Run.DryRun,
		Debug:        s.cfg.Run.Debug,
	}, hd.PageSize), nil
}

// Publisher returns a publisher that records into the ledger.
func (s *Services) Publisher(client publish.Creator) *publish.Publisher {
	return publish.New(client, s.Engine, s.Ledger, publish.Options{
		DryRun: s.cfg.Run.DryRun,
		Debug:  s.cfg.Run.Debug,
	})
}

// Scheduler returns a maintenance scheduler writing dry-run payloads to out.
func (s *Services) Scheduler(out io.Writer) *maintenance.Scheduler {
	clients := func(account string) (maintenance.Creator, error) {
		client, err := s.StatusPage(account)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return maintenance.NewScheduler(clients, maintenance.Options{
		DryRun: s.cfg.Run.DryRun,
		Debug:  s.cfg.Run.Debug,
	}, out)
}

// PruneLedger deletes ledger entries older than the configured retention.
// A retention of zero days keeps everything.
func (s *Services) PruneLedger(ctx context.Context) (int64, error) {
	days := s.cfg.Ledger.RetentionDays
	if days <= 0 {
		return 0, nil
	}
	n, err := s.Ledger.DeleteOlderThan(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Int("retention_days", days).Msg("Pruned ledger")
	}
	return n, nil
}

// Close releases all resources.
func (s *Services) Close() {
	if c, ok := s.matcher.(interface{ Close() }); ok {
		c.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
