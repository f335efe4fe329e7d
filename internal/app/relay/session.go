package relay

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"plaza/internal/app/resident"
	"plaza/internal/pkg/logx"
	"plaza/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384
)

// WebSocket close codes (4000-4999 range) sent by the relay.
const (
	// CloseSessionReplaced tells a client that a newer connection for the same resident took over.
	CloseSessionReplaced = 4001

	// CloseAuthRequired is sent when the connection request carried no token.
	CloseAuthRequired = 4401

	// CloseAuthFailed is sent when the token does not decode or cannot be checked.
	CloseAuthFailed = 4402

	// CloseInvalidResident is sent when the token names an unknown or inactive resident.
	CloseInvalidResident = 4403
)

// State is the lifecycle state of a Session.
type State int

const (
	StateConnecting State = iota
	StateOnline
	StateRejected
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOnline:
		return "online"
	case StateRejected:
		return "rejected"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Session is one live WebSocket connection and the resident behind it.
// The Hub goroutine that accepted the connection owns it; the Registry only references it.
type Session struct {
	// id identifies the transport connection in logs.
	id string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// resident is set once, before the session is registered, and never changes.
	resident resident.Resident

	// send queues encoded frames for the write pump.
	send chan []byte

	// mu guards state and the closing of send.
	mu    sync.RWMutex
	state State

	kickOnce sync.Once

	// writerDone is closed when the write pump exits.
	writerDone chan struct{}

	logger zerolog.Logger
}

func newSession(conn *websocket.Conn, queueSize int) *Session {
	id := randx.ConnectionID()

	return &Session{
		id:         id,
		conn:       conn,
		send:       make(chan []byte, queueSize),
		state:      StateConnecting,
		writerDone: make(chan struct{}),
		logger:     logx.Component("session").With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection id.
func (s *Session) ID() string {
	return s.id
}

// Resident returns the authenticated identity. It is the zero value before authentication.
func (s *Session) Resident() resident.Resident {
	return s.resident
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Deliver enqueues frame for the write pump without blocking.
// A full queue means the peer has stalled: the connection is closed so that it leaves the
// registry through the normal disconnect path.
func (s *Session) Deliver(frame []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateOnline {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		s.logger.Warn().
			Int("queue_len", len(s.send)).
			Msg("Send queue full, closing stalled connection.")
		go s.Kick(websocket.CloseTryAgainLater, "send queue overflow")
		return false
	}
}

// Kick sends a close frame with code and reason, then closes the transport.
// It is safe to call from any goroutine and only acts once.
func (s *Session) Kick(code int, reason string) {
	s.kickOnce.Do(func() {
		s.logger.Info().
			Int("close_code", code).
			Str("reason", reason).
			Msg("Closing connection.")

		s.writeClose(code, reason)

		if err := s.conn.Close(); err != nil && !isClosedConnError(err) {
			s.logger.Warn().Err(err).Msg("Connection close error.")
		}
	})
}

// reject closes a connection that failed authentication. The session never goes online.
func (s *Session) reject(code int, reason string) {
	s.mu.Lock()
	s.state = StateRejected
	s.mu.Unlock()

	s.Kick(code, reason)
}

// goOnline binds the authenticated resident and starts the write pump.
func (s *Session) goOnline(r resident.Resident) {
	s.resident = r
	s.logger = s.logger.With().Int64("resident_id", r.ID).Logger()

	s.mu.Lock()
	s.state = StateOnline
	s.mu.Unlock()

	go s.writePump()
}

// goOffline stops accepting frames and lets the write pump drain and exit.
func (s *Session) goOffline() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOnline {
		return
	}

	s.state = StateOffline
	close(s.send)
}

// readPump reads frames until the transport fails or closes, handing each one to handle
// in arrival order. A pong refreshes the read deadline.
func (s *Session) readPump(handle func(frame []byte)) {
	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}

		handle(frame)
	}
}

func (s *Session) logReadError(err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.logger.Debug().Err(err).Msg("Client closed connection.")
	case errors.Is(err, websocket.ErrReadLimit):
		s.logger.Warn().Int("limit", maxMessageSize).Msg("Client frame exceeded size limit.")
	case isClosedConnError(err):
		s.logger.Debug().Err(err).Msg("Connection closed locally.")
	default:
		s.logger.Info().Err(err).Msg("Error reading from connection.")
	}
}

// writePump is the only writer of data frames on the connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		close(s.writerDone)

		if err := s.conn.Close(); err != nil && !isClosedConnError(err) {
			s.logger.Error().Err(err).Msg("Connection close error in write pump")
		}
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one queued frame. A closed queue ends the pump with a normal close.
// Returns true if the write pump should continue.
func (s *Session) writeQueuedFrame(frame []byte, ok bool) bool {
	if !ok {
		s.writeClose(websocket.CloseNormalClosure, "")
		return false
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isClosedConnError(err) {
			s.logger.Warn().Err(err).Msg("Error writing frame")
		}
		return false
	}

	return true
}

// writePing sends a heartbeat ping. Returns false if the write pump should stop.
func (s *Session) writePing() bool {
	if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		if !isClosedConnError(err) {
			s.logger.Warn().Err(err).Msg("Error writing ping")
		}
		return false
	}

	return true
}

func (s *Session) writeClose(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)

	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil && !isClosedConnError(err) {
		s.logger.Debug().Err(err).Msg("Failed to send close frame.")
	}
}

func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, io.EOF)
}
