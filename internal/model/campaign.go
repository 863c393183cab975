// internal/model/campaign.go
package model

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityError:
		return true
	}
	return false
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// CampaignProgress is the read model of one run. Sent+Failed never exceeds Total.
type CampaignProgress struct {
	Total    int           `json:"total"`
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Running  bool          `json:"running"`
	Log      []LogEntry    `json:"log"`
	Outcomes []SendOutcome `json:"outcomes"`
}

// Fraction returns (sent+failed)/total, or 0 for an empty campaign.
func (p CampaignProgress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Sent+p.Failed) / float64(p.Total)
}

// Campaign is everything a scheduler needs to drive one run.
type Campaign struct {
	Config     SendConfig  `json:"config"`
	Template   Template    `json:"template"`
	Recipients []Recipient `json:"recipients"`
	Rate       RateConfig  `json:"rate"`
}

type EventKind string

const (
	EventInfo      EventKind = "info"
	EventResult    EventKind = "result"
	EventCompleted EventKind = "completed"
)

// CampaignEvent is emitted to observers after every progress mutation.
type CampaignEvent struct {
	CampaignID string       `json:"campaign_id"`
	Kind       EventKind    `json:"kind"`
	Entry      LogEntry     `json:"entry"`
	Outcome    *SendOutcome `json:"outcome,omitempty"`
	Total      int          `json:"total"`
	Sent       int          `json:"sent"`
	Failed     int          `json:"failed"`
	Running    bool         `json:"running"`
	Cancelled  bool         `json:"cancelled,omitempty"`
}

// CampaignInfo is the listing metadata of a campaign handle.
type CampaignInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	From      string    `json:"from"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}
