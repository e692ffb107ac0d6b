package reconcile

import (
	"time"

	"railnet.ai/internal/sim/rail/model"
)

type Outcome string

const (
	OutcomeConnected Outcome = "connected"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
	OutcomePanic     Outcome = "panic"
	OutcomeLevel     Outcome = "level"
	OutcomeNoTrack   Outcome = "no_track"
	OutcomeNoAnchor  Outcome = "no_anchor"
	OutcomeExpired   Outcome = "expired"
)

// Event is emitted once per item that leaves the queue for good.
type Event struct {
	ID         string      `json:"id"`
	From       model.Coord `json:"from"`
	To         model.Coord `json:"to"`
	Dir        model.Dir   `json:"dir"`
	FromHeight int         `json:"from_height"`
	ToHeight   int         `json:"to_height"`
	Outcome    Outcome     `json:"outcome"`
	A          *model.Pos  `json:"a,omitempty"`
	B          *model.Pos  `json:"b,omitempty"`
	Err        string      `json:"err,omitempty"`
	AgeMs      int64       `json:"age_ms"`
	At         time.Time   `json:"at"`
}

type Sink interface {
	Record(ev Event)
}

// Sinks fans an event out to every member.
type Sinks []Sink

func (s Sinks) Record(ev Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Record(ev)
		}
	}
}
