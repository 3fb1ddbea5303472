package sendrecord

import "strings"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusOpened    Status = "OPENED"
	StatusClicked   Status = "CLICKED"
	StatusBounced   Status = "BOUNCED"
	StatusFailed    Status = "FAILED"
)

// position along the engagement path; terminal statuses are not on it
var progression = map[Status]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusOpened:    3,
	StatusClicked:   4,
}

func (s Status) String() string { return string(s) }

func (s Status) Valid() bool {
	_, onPath := progression[s]
	return onPath || s.IsTerminal()
}

func (s Status) IsTerminal() bool {
	return s == StatusBounced || s == StatusFailed
}

// CanTransition reports whether a record may move from one status to another.
// Engagement only moves forward (skips allowed). BOUNCED is reachable from SENT
// or DELIVERED, FAILED additionally from PENDING. Nothing leaves a terminal
// status and a status never transitions to itself.
func CanTransition(from, to Status) bool {
	if from == to || from.IsTerminal() {
		return false
	}
	switch to {
	case StatusBounced:
		return from == StatusSent || from == StatusDelivered
	case StatusFailed:
		return from == StatusPending || from == StatusSent || from == StatusDelivered
	}
	fromRank, okFrom := progression[from]
	toRank, okTo := progression[to]
	return okFrom && okTo && toRank > fromRank
}

// StatusForCallback maps a provider callback type such as "email.opened" (or
// the bare "opened") to the status it implies. Complaints are recorded as
// bounces.
func StatusForCallback(kind string) (Status, bool) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	kind = strings.TrimPrefix(kind, "email.")
	switch kind {
	case "delivered":
		return StatusDelivered, true
	case "opened":
		return StatusOpened, true
	case "clicked":
		return StatusClicked, true
	case "bounced", "complained":
		return StatusBounced, true
	default:
		return "", false
	}
}
