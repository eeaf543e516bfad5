// Package advisory receives proposed actions from the advisory layer.
//
// The advisory layer is untrusted and asynchronous: it may post several
// times between polls, not at all, or long ago. The Mailbox keeps only the
// latest payload per vessel, hands it out at most once and treats anything
// older than the configured maximum age as silence. Parsing and validation
// happen later, in safety.ParseProposals.
package advisory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/watchkeeper/internal/infrastructure/mqtt"
)

// MaxPayloadSize bounds a single advice message.
const MaxPayloadSize = 64 << 10

// Logger defines the logging interface used by the Mailbox.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Subscriber is the part of the MQTT client the mailbox needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Advice is one raw advisory payload.
type Advice struct {
	Payload    []byte
	ReceivedAt time.Time
}

// Mailbox holds the latest unconsumed advice per vessel.
type Mailbox struct {
	mu      sync.Mutex
	pending map[string]*Advice
	known   map[string]bool
	maxAge  time.Duration
	logger  Logger
	now     func() time.Time
}

// NewMailbox creates a mailbox for the given vessels. A maxAge of zero
// disables expiry.
func NewMailbox(maxAge time.Duration, vesselIDs ...string) *Mailbox {
	m := &Mailbox{
		pending: make(map[string]*Advice, len(vesselIDs)),
		known:   make(map[string]bool, len(vesselIDs)),
		maxAge:  maxAge,
		logger:  noopLogger{},
		now:     time.Now,
	}
	for _, id := range vesselIDs {
		m.known[id] = true
	}
	return m
}

// SetLogger sets the logger for the mailbox.
func (m *Mailbox) SetLogger(logger Logger) {
	m.logger = logger
}

// Subscribe listens on the advice topic of every vessel.
func (m *Mailbox) Subscribe(sub Subscriber, qos byte) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.known))
	for id := range m.known {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := sub.Subscribe(mqtt.Topics{}.Advice(id), qos, m.HandleAdvice); err != nil {
			return fmt.Errorf("subscribing to %s advice: %w", id, err)
		}
	}
	return nil
}

// HandleAdvice is the MQTT handler for watchkeeper/advice/{vessel}.
func (m *Mailbox) HandleAdvice(topic string, payload []byte) error {
	vesselID, ok := mqtt.Topics{}.ParseAdvice(topic)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return m.Post(vesselID, payload)
}

// Post stores payload as the vessel's latest advice, replacing any
// unconsumed earlier advice. An empty payload clears the mailbox.
func (m *Mailbox) Post(vesselID string, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes for %s", ErrPayloadTooLarge, len(payload), vesselID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known[vesselID] {
		return fmt.Errorf("%w: %s", ErrUnknownVessel, vesselID)
	}
	if len(payload) == 0 {
		delete(m.pending, vesselID)
		return nil
	}
	if prev, ok := m.pending[vesselID]; ok {
		m.logger.Debug("unconsumed advice replaced", "vessel", vesselID, "received_at", prev.ReceivedAt)
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.pending[vesselID] = &Advice{Payload: buf, ReceivedAt: m.now()}
	return nil
}

// Take removes and returns the vessel's pending advice. It reports false
// when there is none or when the advice has expired.
func (m *Mailbox) Take(ctx context.Context, vesselID string) (Advice, bool) {
	if ctx.Err() != nil {
		return Advice{}, false
	}

	m.mu.Lock()
	adv, ok := m.pending[vesselID]
	delete(m.pending, vesselID)
	m.mu.Unlock()

	if !ok {
		return Advice{}, false
	}
	if age := m.now().Sub(adv.ReceivedAt); m.maxAge > 0 && age > m.maxAge {
		m.logger.Warn("stale advice discarded", "vessel", vesselID, "age", age.Round(time.Millisecond).String())
		return Advice{}, false
	}
	return *adv, true
}
