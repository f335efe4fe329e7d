package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"plaza/internal/app/resident"
	"plaza/internal/pkg/errs"
	"plaza/internal/pkg/logx"
)

const (
	// welcomeNamePlaceholder in a welcome message is replaced by the resident's display name.
	welcomeNamePlaceholder = "{name}"

	shutdownReason = "server shutting down"
)

// CredentialDecoder turns a bearer token into a claimed resident id.
type CredentialDecoder interface {
	Decode(token string) (int64, error)
}

// IdentityVerifier confirms that a claimed id belongs to an active resident.
type IdentityVerifier interface {
	Verify(ctx context.Context, id int64) (resident.Resident, error)
}

// HubConfig tunes the session behaviour of a Hub.
type HubConfig struct {
	// WelcomeMessage is sent to every resident coming online. Empty disables it.
	WelcomeMessage string

	// SendQueueSize is the outbound frame buffer of each connection.
	SendQueueSize int

	// StoreTimeout bounds each identity or persistence call.
	StoreTimeout time.Duration
}

// Hub drives connections through authentication, registration, relaying and deregistration.
// It owns the Registry and everything that reads from or writes to it.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
	router     *Router

	decoder  CredentialDecoder
	verifier IdentityVerifier

	cfg HubConfig

	// admitMu orders session admission against Shutdown, so sessions.Add never races Wait.
	admitMu  sync.Mutex
	sessions sync.WaitGroup
	closing  atomic.Bool

	logger zerolog.Logger
}

// NewHub wires a Hub and its registry, dispatcher and router.
func NewHub(decoder CredentialDecoder, verifier IdentityVerifier, store Store, cfg HubConfig) *Hub {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry)

	return &Hub{
		registry:   registry,
		dispatcher: dispatcher,
		router:     NewRouter(registry, dispatcher, store, cfg.StoreTimeout),
		decoder:    decoder,
		verifier:   verifier,
		cfg:        cfg,
		logger:     logx.Component("hub"),
	}
}

// Registry exposes the presence registry for read-only use (e.g. HTTP snapshots).
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Serve runs the whole life of one upgraded connection and returns once it is closed.
// token is the raw credential taken from the connection request; it may be empty.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, token string) {
	s := newSession(conn, h.cfg.SendQueueSize)

	if !h.admit() {
		s.reject(websocket.CloseGoingAway, shutdownReason)
		return
	}
	defer h.sessions.Done()

	r, code, cerr := h.authenticate(ctx, token)
	if cerr != nil {
		s.logger.Info().
			Int("close_code", code).
			Int("error_code", cerr.Code).
			Msg("Connection rejected.")
		s.reject(code, cerr.Message)
		return
	}

	s.goOnline(r)
	h.bringOnline(s)

	s.readPump(func(frame []byte) {
		h.router.Route(ctx, s, frame)
	})

	h.takeOffline(s)
}

// admit counts a new session unless the hub is shutting down.
func (h *Hub) admit() bool {
	h.admitMu.Lock()
	defer h.admitMu.Unlock()

	if h.closing.Load() {
		return false
	}

	h.sessions.Add(1)
	return true
}

// authenticate decodes and verifies token. On failure it returns the close code and the error
// describing the rejection.
func (h *Hub) authenticate(ctx context.Context, token string) (resident.Resident, int, *errs.CustomError) {
	if strings.TrimSpace(token) == "" {
		return resident.Resident{}, CloseAuthRequired, errs.NewError(errs.ErrAuthRequired)
	}

	id, err := h.decoder.Decode(token)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Credential rejected.")
		return resident.Resident{}, CloseAuthFailed, errs.NewError(errs.ErrAuthFailed)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
	defer cancel()

	r, err := h.verifier.Verify(verifyCtx, id)
	if err != nil {
		if errors.Is(err, resident.ErrInvalidResident) {
			return resident.Resident{}, CloseInvalidResident, errs.NewError(errs.ErrInvalidResident)
		}
		h.logger.Error().Err(err).Int64("resident_id", id).Msg("Identity check failed.")
		return resident.Resident{}, CloseAuthFailed, errs.NewError(errs.ErrAuthFailed)
	}

	return r, 0, nil
}

// bringOnline registers s, closes the connection it replaces and announces the arrival.
func (h *Hub) bringOnline(s *Session) {
	r := s.Resident()

	if replaced := h.registry.Register(s); replaced != nil {
		replaced.Kick(CloseSessionReplaced, errs.NewError(errs.ErrSessionKicked).Message)
	}

	// Shutdown may have taken its snapshot of peers before this registration.
	if h.closing.Load() {
		s.Kick(websocket.CloseGoingAway, shutdownReason)
		return
	}

	s.logger.Info().
		Str("login", r.Login).
		Int("online", h.registry.Len()).
		Msg("Resident online.")

	h.dispatcher.BroadcastAll(NewEvent(TypeResidentOnline, PresencePayload{Resident: r}), r.ID)
	h.dispatcher.Reply(s, onlineResidentsEvent(h.registry))

	if h.cfg.WelcomeMessage != "" {
		content := strings.ReplaceAll(h.cfg.WelcomeMessage, welcomeNamePlaceholder, r.DisplayName)
		h.dispatcher.Reply(s, NewEvent(TypeSystemMessage, SystemMessagePayload{Content: content}))
	}
}

// takeOffline deregisters s and announces the departure unless a newer connection of the same
// resident already took its place.
func (h *Hub) takeOffline(s *Session) {
	r := s.Resident()

	removed := h.registry.Unregister(r.ID, s)
	s.goOffline()
	<-s.writerDone

	if !removed {
		s.logger.Info().Msg("Replaced connection closed.")
		return
	}

	s.logger.Info().
		Int("online", h.registry.Len()).
		Msg("Resident offline.")

	h.dispatcher.BroadcastAll(NewEvent(TypeResidentOffline, PresencePayload{Resident: r}), NoExclusion)
}

// Shutdown closes every live connection with a going-away code and waits for their sessions to
// finish or for ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.admitMu.Lock()
	h.closing.Store(true)
	h.admitMu.Unlock()

	peers := h.registry.Peers()
	h.logger.Info().Int("sessions", len(peers)).Msg("Closing all sessions.")

	for _, peer := range peers {
		peer.Kick(websocket.CloseGoingAway, shutdownReason)
	}

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
