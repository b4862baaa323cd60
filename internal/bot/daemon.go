package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cartdesk/cartdesk/internal/intake"
	"github.com/cartdesk/cartdesk/internal/models"
	"github.com/cartdesk/cartdesk/internal/request"
)

// Daemon runs the bot: it pumps inbound messages from the adapter into the
// router and schedules the background jobs (session eviction, SLA scan,
// auto-archive).
type Daemon struct {
	adapter  Adapter
	router   *Router
	sessions *intake.Manager
	store    *request.Store
	notifier *Notifier

	sweepSpec   string
	slaSpec     string
	slaAge      time.Duration
	archiveSpec string
	archiveAge  time.Duration
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	Adapter  Adapter
	Router   *Router
	Sessions *intake.Manager
	Store    *request.Store
	Notifier *Notifier

	SweepCron   string        // session eviction schedule, e.g. "@every 1m"
	SLACron     string        // SLA scan schedule
	SLAAge      time.Duration // how long a high-priority request may stay new
	ArchiveCron string        // auto-archive schedule
	ArchiveAge  time.Duration // how old done/cancelled requests must be
}

// NewDaemon creates a Daemon.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: daemon: adapter is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("bot: daemon: router is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("bot: daemon: sessions is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: daemon: store is required")
	}
	return &Daemon{
		adapter:     opts.Adapter,
		router:      opts.Router,
		sessions:    opts.Sessions,
		store:       opts.Store,
		notifier:    opts.Notifier,
		sweepSpec:   opts.SweepCron,
		slaSpec:     opts.SLACron,
		slaAge:      opts.SLAAge,
		archiveSpec: opts.ArchiveCron,
		archiveAge:  opts.ArchiveAge,
	}, nil
}

// Run connects the adapter and processes messages until the context is
// cancelled or the adapter's inbound channel closes.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: daemon: connect: %w", err)
	}
	defer d.adapter.Close()

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		return fmt.Errorf("bot: daemon: listen: %w", err)
	}

	c := cron.New()
	if d.sweepSpec != "" {
		if _, err := c.AddFunc(d.sweepSpec, d.sweepSessions); err != nil {
			return fmt.Errorf("bot: daemon: sweep cron %q: %w", d.sweepSpec, err)
		}
	}
	if d.slaSpec != "" {
		if _, err := c.AddFunc(d.slaSpec, func() { d.scanSLA(ctx) }); err != nil {
			return fmt.Errorf("bot: daemon: sla cron %q: %w", d.slaSpec, err)
		}
	}
	if d.archiveSpec != "" {
		if _, err := c.AddFunc(d.archiveSpec, d.archiveOld); err != nil {
			return fmt.Errorf("bot: daemon: archive cron %q: %w", d.archiveSpec, err)
		}
	}
	c.Start()
	defer c.Stop()

	log.Printf("bot: daemon: running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			d.router.Handle(ctx, msg)
		}
	}
}

// sweepSessions evicts idle intake sessions.
func (d *Daemon) sweepSessions() {
	if n := d.sessions.EvictIdle(); n > 0 {
		log.Printf("bot: daemon: evicted %d idle sessions", n)
	}
}

// scanSLA alerts on high-priority requests nobody has taken in time. Each
// request alerts at most once: MarkSLANotified keeps it out of later scans.
func (d *Daemon) scanSLA(ctx context.Context) {
	if d.slaAge <= 0 {
		return
	}
	overdue, err := d.store.ListOverdue(time.Now().Add(-d.slaAge))
	if err != nil {
		log.Printf("bot: daemon: sla scan: %v", err)
		return
	}
	for i := range overdue {
		req := &overdue[i]
		if d.notifier != nil {
			d.notifier.SLABreach(ctx, req)
		}
		if err := d.store.MarkSLANotified(req.ID); err != nil {
			log.Printf("bot: daemon: sla mark %s: %v", req.Code, err)
		}
	}
}

// archiveOld moves old done and cancelled requests to archived. Runs as the
// system actor; a concurrent human transition just makes that request lose
// the guarded update and get picked up next sweep.
func (d *Daemon) archiveOld() {
	if d.archiveAge <= 0 {
		return
	}
	reqs, err := d.store.ListArchivable(time.Now().Add(-d.archiveAge))
	if err != nil {
		log.Printf("bot: daemon: archive scan: %v", err)
		return
	}
	archived := 0
	for i := range reqs {
		if _, err := d.store.UpdateStatus(reqs[i].Code, models.StatusArchived, nil, nil); err != nil {
			log.Printf("bot: daemon: archive %s: %v", reqs[i].Code, err)
			continue
		}
		archived++
	}
	if archived > 0 {
		log.Printf("bot: daemon: archived %d requests", archived)
	}
}
