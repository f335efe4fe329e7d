package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"plaza/internal/app/resident"
)

// fakePeer records delivered frames in memory.
type fakePeer struct {
	resident resident.Resident

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakePeer(id int64, name string) *fakePeer {
	return &fakePeer{
		resident: resident.Resident{ID: id, Login: name, DisplayName: name},
	}
}

func (p *fakePeer) Resident() resident.Resident {
	return p.resident
}

func (p *fakePeer) Deliver(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.frames = append(p.frames, frame)
	return true
}

func (p *fakePeer) Kick(int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
}

// wireEvent is an outbound event as a client decodes it.
type wireEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func decodeFrame(t *testing.T, frame []byte) wireEvent {
	t.Helper()

	var evt wireEvent
	require.NoError(t, json.Unmarshal(frame, &evt))
	return evt
}

func (p *fakePeer) events(t *testing.T) []wireEvent {
	t.Helper()

	p.mu.Lock()
	defer p.mu.Unlock()

	events := make([]wireEvent, 0, len(p.frames))
	for _, frame := range p.frames {
		events = append(events, decodeFrame(t, frame))
	}
	return events
}

// onlyEvent asserts that exactly one event was delivered and returns it.
func (p *fakePeer) onlyEvent(t *testing.T) wireEvent {
	t.Helper()

	events := p.events(t)
	require.Len(t, events, 1)
	return events[0]
}

func decodePayload[T any](t *testing.T, evt wireEvent) T {
	t.Helper()

	var payload T
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	return payload
}
