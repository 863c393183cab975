// internal/service/progress.go
package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/bulkmail/internal/model"
)

// Progress aggregates the outcomes of one campaign run. Counters only grow and
// log entries are only appended. Every mutation is followed by a call to the
// observer, made outside the lock.
type Progress struct {
	mu         sync.Mutex
	campaignID string
	state      model.CampaignProgress
	reported   map[int]bool
	cancelled  bool
	now        func() time.Time
	notify     func(model.CampaignEvent)
}

func NewProgress(campaignID string, total int, now func() time.Time, notify func(model.CampaignEvent)) *Progress {
	if now == nil {
		now = time.Now
	}
	if notify == nil {
		notify = func(model.CampaignEvent) {}
	}
	return &Progress{
		campaignID: campaignID,
		state: model.CampaignProgress{
			Total:    total,
			Log:      []model.LogEntry{},
			Outcomes: []model.SendOutcome{},
		},
		reported: make(map[int]bool, total),
		now:      now,
		notify:   notify,
	}
}

// OnInfo appends an info entry without touching the counters.
func (p *Progress) OnInfo(format string, args ...any) {
	p.mu.Lock()
	entry := p.appendLog(model.SeverityInfo, fmt.Sprintf(format, args...))
	ev := p.event(model.EventInfo, entry)
	p.mu.Unlock()

	p.notify(ev)
}

// OnSendResult records the outcome for the recipient at position slot of the
// recipient list. A second report for the same slot is dropped and false is returned.
func (p *Progress) OnSendResult(slot int, outcome model.SendOutcome) bool {
	p.mu.Lock()
	if p.reported[slot] || p.state.Sent+p.state.Failed >= p.state.Total {
		p.mu.Unlock()
		return false
	}
	p.reported[slot] = true

	var entry model.LogEntry
	if outcome.Succeeded {
		p.state.Sent++
		msg := "Email sent to " + outcome.RecipientEmail
		if outcome.ExternalID != "" {
			msg += fmt.Sprintf(" (ID: %s)", outcome.ExternalID)
		}
		entry = p.appendLog(model.SeveritySuccess, msg)
	} else {
		p.state.Failed++
		entry = p.appendLog(model.SeverityError, fmt.Sprintf("Failed to send to %s: %s", outcome.RecipientEmail, outcome.ErrorMessage))
	}
	p.state.Outcomes = append(p.state.Outcomes, outcome)

	ev := p.event(model.EventResult, entry)
	ev.Outcome = &outcome
	p.mu.Unlock()

	p.notify(ev)
	return true
}

// SetRunning flips the running flag without emitting an event.
func (p *Progress) SetRunning(running bool) {
	p.mu.Lock()
	p.state.Running = running
	p.mu.Unlock()
}

// Complete marks the run finished, appends the summary line and emits the
// completion event carrying the final totals.
func (p *Progress) Complete() {
	p.mu.Lock()
	p.state.Running = false
	entry := p.appendLog(model.SeverityInfo,
		fmt.Sprintf("Sending finished: %d sent, %d failed", p.state.Sent, p.state.Failed))
	ev := p.event(model.EventCompleted, entry)
	p.mu.Unlock()

	p.notify(ev)
}

// CompleteCancelled is Complete for a cancelled run. fired is the number of
// sends handed to the dispatcher before the cancel; those not reported yet are
// counted as awaiting a result, the rest of the list as not attempted.
func (p *Progress) CompleteCancelled(fired int) {
	p.mu.Lock()
	p.state.Running = false
	p.cancelled = true
	reported := p.state.Sent + p.state.Failed
	awaiting := max(fired-reported, 0)
	entry := p.appendLog(model.SeverityInfo,
		fmt.Sprintf("Sending cancelled: %d sent, %d failed, %d awaiting result, %d not attempted",
			p.state.Sent, p.state.Failed, awaiting, max(p.state.Total-reported-awaiting, 0)))
	ev := p.event(model.EventCompleted, entry)
	p.mu.Unlock()

	p.notify(ev)
}

// Snapshot returns a copy that is safe to read while the run continues.
func (p *Progress) Snapshot() model.CampaignProgress {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state
	s.Log = append([]model.LogEntry(nil), p.state.Log...)
	s.Outcomes = append([]model.SendOutcome(nil), p.state.Outcomes...)
	return s
}

func (p *Progress) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Fraction()
}

func (p *Progress) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

func (p *Progress) appendLog(sev model.Severity, msg string) model.LogEntry {
	entry := model.LogEntry{Timestamp: p.now(), Message: msg, Severity: sev}
	p.state.Log = append(p.state.Log, entry)
	return entry
}

func (p *Progress) event(kind model.EventKind, entry model.LogEntry) model.CampaignEvent {
	return model.CampaignEvent{
		CampaignID: p.campaignID,
		Kind:       kind,
		Entry:      entry,
		Total:      p.state.Total,
		Sent:       p.state.Sent,
		Failed:     p.state.Failed,
		Running:    p.state.Running,
		Cancelled:  p.cancelled,
	}
}
