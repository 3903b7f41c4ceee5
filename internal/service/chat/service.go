package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatbox/internal/model/chat"
	"github.com/zhouzirui/chatbox/internal/model/profile"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// Config tunes every conversation created by the Service.
type Config struct {
	DefaultProfile string
	StrictReplies  bool
	Logger         zerolog.Logger
}

type mounted struct {
	session chat.Session
	conv    *Conversation
}

// Service keeps one in-memory conversation per mounted widget session.
type Service struct {
	backend  Backend
	profiles profile.Store
	cfg      Config

	mu       sync.RWMutex
	sessions map[string]mounted
}

// NewService bootstraps the in-memory session registry.
func NewService(backend Backend, profiles profile.Store, cfg Config) *Service {
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = profile.DefaultID
	}
	return &Service{
		backend:  backend,
		profiles: profiles,
		cfg:      cfg,
		sessions: make(map[string]mounted),
	}
}

// CreateSession mounts an empty conversation using the requested profile, or
// the default one when profileID is blank.
func (s *Service) CreateSession(_ context.Context, profileID string) (chat.Session, error) {
	if profileID == "" {
		profileID = s.cfg.DefaultProfile
	}

	p, ok := s.profiles.FindByID(profileID)
	if !ok {
		return chat.Session{}, ErrProfileNotFound
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		ProfileID: p.ID,
		CreatedAt: time.Now().UTC(),
	}

	conv := NewConversation(s.backend, Options{
		FailureText:   p.FailureText,
		StrictReplies: s.cfg.StrictReplies,
		Logger:        s.cfg.Logger.With().Str("session", session.ID).Logger(),
	})

	s.mu.Lock()
	s.sessions[session.ID] = mounted{session: session, conv: conv}
	s.mu.Unlock()

	s.cfg.Logger.Info().Str("session", session.ID).Str("profile", p.ID).Msg("session mounted")
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return m.session, nil
}

// Conversation returns the live conversation of a session.
func (s *Service) Conversation(_ context.Context, sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return m.conv, nil
}

// Profile returns the profile a session was mounted with.
func (s *Service) Profile(ctx context.Context, sessionID string) (profile.Profile, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return profile.Profile{}, err
	}
	p, ok := s.profiles.FindByID(session.ProfileID)
	if !ok {
		return profile.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

// CloseSession unmounts a session. Any in-flight request runs to completion
// before the state is discarded.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	m, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	m.conv.Close()
	s.cfg.Logger.Info().Str("session", sessionID).Msg("session unmounted")
	return nil
}

// Shutdown unmounts every session, giving up when ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	all := make([]mounted, 0, len(s.sessions))
	for id, m := range s.sessions {
		all = append(all, m)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, m := range all {
			m.conv.Close()
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
