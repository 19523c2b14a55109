// Package scheduler wires robfig/cron/v3 to the two periodic
// background jobs the service runs outside of any request: the
// upstream sync merge and the Lightning invoice-status poll.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/payplaces/directory/internal/commerce"
	"github.com/payplaces/directory/internal/store"
	syncengine "github.com/payplaces/directory/internal/sync"
	"github.com/payplaces/directory/pkg/logger"
)

// Scheduler owns the cron runtime and the jobs registered on it.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

// New builds a Scheduler using a parser that accepts the six-field
// (seconds-first) cron expressions UpstreamConfig.SyncSchedule uses.
func New(log *logger.Logger) *Scheduler {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))
	return &Scheduler{cron: c, log: log}
}

// RegisterSync schedules syncEng.Run on schedule, logging but not
// propagating a failed run so the scheduler keeps ticking.
func (s *Scheduler) RegisterSync(schedule string, syncEng *syncengine.Engine) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := syncEng.Run(ctx)
		if err != nil {
			s.log.WithContext(ctx).WithError(err).Error("scheduled sync run failed")
			return
		}
		s.log.WithContext(ctx).WithFields(map[string]interface{}{
			"created": len(result.Created),
			"updated": len(result.Updated),
			"deleted": len(result.Deleted),
			"skipped": result.Skipped,
		}).Info("scheduled sync run completed")
	})
	return err
}

// RegisterInvoicePoll schedules a sweep over every unpaid invoice,
// polling the Lightning gateway for each and applying its paid action
// if the gateway now reports it settled.
func (s *Scheduler) RegisterInvoicePoll(period time.Duration, st *store.Store, comm *commerce.Commerce) error {
	spec := "@every " + period.String()
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), period)
		defer cancel()

		unpaid, err := st.Invoices.ListUnpaid(ctx, 500)
		if err != nil {
			s.log.WithContext(ctx).WithError(err).Error("invoice poll: list unpaid failed")
			return
		}

		for _, inv := range unpaid {
			if _, err := comm.GetInvoice(ctx, inv.UUID); err != nil {
				s.log.LogSuppressed(ctx, "invoice", inv.UUID, err)
			}
		}
	})
	return err
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for any running job to finish, then returns.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
