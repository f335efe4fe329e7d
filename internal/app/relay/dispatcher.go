package relay

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"plaza/internal/pkg/logx"
)

// NoExclusion passed to BroadcastAll delivers to every online resident.
// Resident ids are always positive.
const NoExclusion int64 = 0

// Dispatcher delivers events to peers found in a Registry.
// Delivery is fire-and-forget: each peer gets a non-blocking enqueue, so a slow or dead
// recipient never holds up the caller or the other recipients.
type Dispatcher struct {
	registry *Registry

	logger zerolog.Logger
}

// NewDispatcher returns a Dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logx.Component("dispatcher"),
	}
}

// BroadcastAll encodes evt once and delivers it to every registered resident except excludeID.
// Peers that have already closed are skipped. It returns the number of peers that accepted it.
func (d *Dispatcher) BroadcastAll(evt Event, excludeID int64) int {
	frame, ok := d.encode(evt)
	if !ok {
		return 0
	}

	delivered := 0
	for _, peer := range d.registry.Peers() {
		if excludeID != NoExclusion && peer.Resident().ID == excludeID {
			continue
		}
		if peer.Deliver(frame) {
			delivered++
		}
	}

	d.logger.Debug().
		Str("event_type", string(evt.Type)).
		Int64("excluded", excludeID).
		Int("delivered", delivered).
		Msg("Broadcast dispatched.")

	return delivered
}

// SendTo delivers evt to one resident. A resident who is not online is silently skipped.
func (d *Dispatcher) SendTo(residentID int64, evt Event) bool {
	peer, ok := d.registry.Get(residentID)
	if !ok {
		d.logger.Debug().
			Str("event_type", string(evt.Type)).
			Int64("resident_id", residentID).
			Msg("Recipient offline, event dropped.")
		return false
	}

	return d.Reply(peer, evt)
}

// Reply delivers evt to a peer the caller already holds.
func (d *Dispatcher) Reply(peer Peer, evt Event) bool {
	frame, ok := d.encode(evt)
	if !ok {
		return false
	}

	return peer.Deliver(frame)
}

func (d *Dispatcher) encode(evt Event) ([]byte, bool) {
	frame, err := json.Marshal(evt)
	if err != nil {
		d.logger.Error().
			Err(err).
			Str("event_id", evt.ID).
			Str("event_type", string(evt.Type)).
			Msg("Error marshaling event.")
		return nil, false
	}
	return frame, true
}
