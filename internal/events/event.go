// Package events fans peripheral repository notifications out to
// registered observers. Delivery is best effort: the orchestration
// pipeline never depends on an event being observed.
package events

import "time"

// Type classifies an inbound repository notification.
type Type string

const (
	TypeCheckRun    Type = "check_run"
	TypePullRequest Type = "pull_request"
)

// Event is one repository notification, normalized from the hosting
// provider's webhook payload.
type Event struct {
	Type       Type      `json:"type"`
	Action     string    `json:"action,omitempty"`
	Repo       string    `json:"repo"`
	PRNumber   int       `json:"pr_number,omitempty"`
	CheckName  string    `json:"check_name,omitempty"`
	Conclusion string    `json:"conclusion,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
