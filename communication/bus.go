package communication

import (
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/agora-sim/agora/core"
)

// Subjects for round lifecycle events.
const (
	SubjectPhase        = "round.phase"
	SubjectAuction      = "round.auction"
	SubjectIntervention = "round.intervention"
	SubjectTally        = "round.tally"
	SubjectRecord       = "round.record"
)

// PhaseEvent announces a phase transition for a round in progress.
type PhaseEvent struct {
	RunID      string `json:"run_id"`
	VignetteID string `json:"vignette_id"`
	Phase      string `json:"phase"`
}

// Bus publishes round lifecycle events over NATS so external observers
// (the API's websocket bridge, dashboards) can follow runs live. A nil
// *Bus is valid and drops everything, so the engine runs unchanged
// without a broker.
type Bus struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*Bus, error) {
	nc, err := nats.Connect(url, nats.Timeout(10*time.Second))
	if err != nil {
		return nil, err
	}
	return &Bus{conn: nc}, nil
}

// Publish sends v as JSON on subject. Publishing is best-effort:
// failures are logged, never surfaced to the round.
func (b *Bus) Publish(subject string, v interface{}) {
	if b == nil {
		return
	}
	if err := b.conn.Publish(subject, core.EncodeJSON(v)); err != nil {
		log.Printf("bus publish %s failed: %v", subject, err)
	}
}

// Subscribe registers a callback for a subject.
func (b *Bus) Subscribe(subject string, cb nats.MsgHandler) error {
	if b == nil {
		return nil
	}
	_, err := b.conn.Subscribe(subject, cb)
	return err
}

// Close flushes and closes the connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.conn.Flush()
	b.conn.Close()
}
