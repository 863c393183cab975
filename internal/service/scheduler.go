// internal/service/scheduler.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unclebandit/bulkmail/internal/dispatch"
	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
)

// PartitionBatches splits recipients into consecutive batches of size, keeping
// the original order. The last batch may be shorter.
func PartitionBatches(recipients []model.Recipient, size int) [][]model.Recipient {
	if size <= 0 {
		return nil
	}
	batches := make([][]model.Recipient, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := min(start+size, len(recipients))
		batches = append(batches, recipients[start:end])
	}
	return batches
}

// ValidateCampaign rejects a campaign before any send is scheduled.
func ValidateCampaign(c model.Campaign) error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := c.Template.Validate(); err != nil {
		return err
	}
	if len(c.Recipients) == 0 {
		return appErrors.ErrEmptyRecipients
	}
	for i, r := range c.Recipients {
		if r.Email == "" {
			return appErrors.NewValidation(appErrors.ErrEmptyRecipients, fmt.Sprintf("recipients[%d].email", i), "is required")
		}
	}
	return c.Rate.Validate()
}

type SchedulerOption func(*Scheduler)

func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = l }
}

// WithBatchCompletionWait starts the inter-batch interval only once every send
// of the current batch has reported, instead of on a fixed cadence from the
// moment the batch was scheduled. Batches then never overlap.
func WithBatchCompletionWait() SchedulerOption {
	return func(s *Scheduler) { s.waitForBatch = true }
}

// Scheduler drives one campaign handle. Each Start begins a run that paces
// sends according to the campaign's RateConfig; Start returns immediately and
// the run proceeds on timers.
type Scheduler struct {
	id           string
	dispatcher   dispatch.Dispatcher
	onEvent      func(model.CampaignEvent)
	clock        Clock
	log          *slog.Logger
	waitForBatch bool

	mu  sync.Mutex
	run *run
}

func NewScheduler(id string, d dispatch.Dispatcher, onEvent func(model.CampaignEvent), opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		id:         id,
		dispatcher: d,
		onEvent:    onEvent,
		clock:      RealClock,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) ID() string { return s.id }

// Start validates the campaign and begins a run. Calling Start while a run is
// in progress is a no-op. After a Cancel, Start returns ErrRunDraining until
// the sends already handed to the dispatcher have reported, so their outcomes
// land in the cancelled run. The run outlives ctx's cancellation; use Cancel
// to stop it.
func (s *Scheduler) Start(ctx context.Context, c model.Campaign) error {
	s.mu.Lock()
	if s.run != nil && s.run.progress.Snapshot().Running {
		s.mu.Unlock()
		return nil
	}
	if s.run != nil && !s.run.isFinished() {
		s.mu.Unlock()
		return appErrors.ErrRunDraining
	}
	if err := ValidateCampaign(c); err != nil {
		s.mu.Unlock()
		return err
	}

	c.Recipients = append([]model.Recipient(nil), c.Recipients...)
	r := &run{
		s:        s,
		ctx:      context.WithoutCancel(ctx),
		campaign: c,
		batches:  PartitionBatches(c.Recipients, c.Rate.BatchSize),
		timers:   map[int]Timer{},
		done:     make(chan struct{}),
	}
	r.progress = NewProgress(s.id, len(c.Recipients), s.clock.Now, s.notify)
	r.progress.SetRunning(true)
	s.run = r
	s.mu.Unlock()

	s.log.InfoContext(ctx, "campaign started",
		slog.String("campaign_id", s.id),
		slog.Int("recipients", len(c.Recipients)),
		slog.Int("batches", len(r.batches)))

	r.progress.OnInfo("Starting email send")
	r.progress.OnInfo("Config: %d emails/hour, batches of %d, %d minute intervals",
		c.Rate.EmailsPerHour, c.Rate.BatchSize, c.Rate.IntervalBetweenBatchesMinutes)
	r.scheduleBatch(0)
	return nil
}

// Cancel prevents every send that has not fired yet and marks the run as no
// longer running. Sends already handed to the dispatcher still report their
// outcome. It returns false when there is nothing to cancel.
func (s *Scheduler) Cancel() bool {
	r := s.current()
	if r == nil {
		return false
	}
	return r.cancel()
}

// Progress returns a snapshot of the current or last run.
func (s *Scheduler) Progress() model.CampaignProgress {
	r := s.current()
	if r == nil {
		return model.CampaignProgress{Log: []model.LogEntry{}, Outcomes: []model.SendOutcome{}}
	}
	return r.progress.Snapshot()
}

// Done is closed once the current run can no longer change: scheduling ended
// and every fired send reported, or the run was cancelled and in-flight sends
// drained.
func (s *Scheduler) Done() <-chan struct{} {
	r := s.current()
	if r == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return r.done
}

func (s *Scheduler) current() *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

func (s *Scheduler) notify(ev model.CampaignEvent) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

type run struct {
	s        *Scheduler
	ctx      context.Context
	campaign model.Campaign
	batches  [][]model.Recipient
	progress *Progress
	done     chan struct{}

	mu             sync.Mutex
	timers         map[int]Timer
	nextTimer      int
	pending        int
	fired          int
	inFlight       int
	batchLeft      int
	schedulingDone bool
	cancelled      bool
	finished       bool
}

// scheduleBatch lays out the timers of batch i. Recipient j of the batch fires
// j*emailInterval after this call, each on its own timer.
func (r *run) scheduleBatch(i int) {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	if i >= len(r.batches) {
		r.schedulingDone = true
		r.mu.Unlock()
		r.maybeFinish()
		return
	}
	r.mu.Unlock()

	rate := r.campaign.Rate
	offset := i * rate.BatchSize
	batch := r.batches[i]
	r.progress.OnInfo("Processing batch %d: emails %d to %d", i+1, offset+1, offset+len(batch))

	interval := rate.EmailInterval()
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	r.batchLeft = len(batch)
	for j := range batch {
		slot := offset + j
		r.pending++
		r.after(interval*time.Duration(j), func() { r.fire(slot) })
	}
	fixedCadence := !r.s.waitForBatch
	if fixedCadence {
		r.after(rate.BatchInterval(), func() { r.scheduleBatch(i + 1) })
	}
	r.mu.Unlock()

	if fixedCadence {
		next := r.s.clock.Now().Add(rate.BatchInterval())
		r.progress.OnInfo("Next batch scheduled for %s", next.Format("15:04:05"))
	}
}

// after must be called with r.mu held.
func (r *run) after(d time.Duration, f func()) {
	id := r.nextTimer
	r.nextTimer++
	r.timers[id] = r.s.clock.AfterFunc(d, func() {
		r.mu.Lock()
		delete(r.timers, id)
		r.mu.Unlock()
		f()
	})
}

func (r *run) fire(slot int) {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	r.pending--
	r.fired++
	r.inFlight++
	r.mu.Unlock()

	rec := r.campaign.Recipients[slot]
	r.progress.OnInfo("Sending email to %s...", rec.Email)
	go r.send(slot, rec)
}

func (r *run) send(slot int, rec model.Recipient) {
	outcome := r.dispatch(rec)
	if !outcome.Succeeded {
		r.s.log.WarnContext(r.ctx, "email send failed",
			slog.String("campaign_id", r.s.id),
			slog.String("recipient", rec.Email),
			slog.String("error", outcome.ErrorMessage))
	}
	r.progress.OnSendResult(slot, outcome)

	r.mu.Lock()
	r.inFlight--
	r.batchLeft--
	scheduleNext := r.s.waitForBatch && r.batchLeft == 0 && !r.cancelled
	nextBatch := slot/r.campaign.Rate.BatchSize + 1
	if scheduleNext {
		if nextBatch >= len(r.batches) {
			r.schedulingDone = true
			scheduleNext = false
		} else {
			r.after(r.campaign.Rate.BatchInterval(), func() { r.scheduleBatch(nextBatch) })
		}
	}
	r.mu.Unlock()

	if scheduleNext {
		next := r.s.clock.Now().Add(r.campaign.Rate.BatchInterval())
		r.progress.OnInfo("Next batch scheduled for %s", next.Format("15:04:05"))
	}
	r.maybeFinish()
}

// dispatch renders and sends one email, turning errors and panics into a
// failed outcome.
func (r *run) dispatch(rec model.Recipient) (outcome model.SendOutcome) {
	outcome = model.SendOutcome{RecipientEmail: rec.Email, RecipientName: rec.Name}
	defer func() {
		if p := recover(); p != nil {
			outcome.Succeeded = false
			outcome.ErrorMessage = fmt.Sprintf("panic: %v", p)
		}
		outcome.Timestamp = r.s.clock.Now()
	}()

	rendered := RenderTemplate(r.campaign.Template, rec)
	res, err := r.s.dispatcher.Send(r.ctx, r.campaign.Config, rendered, rec)
	switch {
	case err != nil:
		outcome.ErrorMessage = err.Error()
	case !res.Success:
		outcome.ErrorMessage = res.Message
		if outcome.ErrorMessage == "" {
			outcome.ErrorMessage = "unknown error"
		}
	default:
		outcome.Succeeded = true
		outcome.ExternalID = res.ID
	}
	return outcome
}

func (r *run) maybeFinish() {
	r.mu.Lock()
	if r.finished || r.inFlight > 0 {
		r.mu.Unlock()
		return
	}
	if r.cancelled {
		r.finished = true
		r.mu.Unlock()
		close(r.done)
		return
	}
	if !r.schedulingDone || r.pending > 0 {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.mu.Unlock()

	r.progress.Complete()
	snap := r.progress.Snapshot()
	r.s.log.InfoContext(r.ctx, "campaign finished",
		slog.String("campaign_id", r.s.id),
		slog.Int("sent", snap.Sent),
		slog.Int("failed", snap.Failed))
	close(r.done)
}

func (r *run) cancel() bool {
	r.mu.Lock()
	if r.cancelled || r.finished {
		r.mu.Unlock()
		return false
	}
	r.cancelled = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	r.pending = 0
	fired := r.fired
	r.mu.Unlock()

	r.progress.CompleteCancelled(fired)
	r.s.log.InfoContext(r.ctx, "campaign cancelled", slog.String("campaign_id", r.s.id))
	r.maybeFinish()
	return true
}

// isFinished reports whether the run can no longer change. A cancelled run
// finishes only once its in-flight sends have reported.
func (r *run) isFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}
