package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"packbot/internal/domain"
	"packbot/internal/repo"
)

// StageMenu is the default stage for new and reset sessions.
const StageMenu = "menu"

// StageManual suspends automated replies for a phone number.
const StageManual = "manual"

// Store loads and saves per-phone conversation sessions. A process-local
// cache fronts the database; writes go through to Postgres so a restart
// loses nothing but the cache.
type Store struct {
	repo   repo.Store
	cache  *gocache.Cache
	logger *slog.Logger
}

// New creates a session store.
func New(store repo.Store, logger *slog.Logger) *Store {
	return &Store{
		repo:   store,
		cache:  gocache.New(30*time.Minute, 10*time.Minute),
		logger: logger.With("component", "session"),
	}
}

// Load returns the session for a phone number, creating a default
// menu-stage session on first contact.
func (s *Store) Load(ctx context.Context, phone string) (*repo.Session, error) {
	if cached, ok := s.cache.Get(phone); ok {
		if sess, ok := cached.(*repo.Session); ok {
			return cloneSession(sess), nil
		}
	}

	sess, err := s.repo.GetSession(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess, err = s.repo.UpsertSession(ctx, repo.Session{
			Phone:   phone,
			Stage:   StageMenu,
			Context: map[string]any{},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create session: %v", domain.ErrPersistence, err)
		}
	}

	s.cache.SetDefault(phone, cloneSession(sess))
	return sess, nil
}

// Save upserts the session and refreshes last_message_at. The cached copy
// is replaced with what the database returned.
func (s *Store) Save(ctx context.Context, sess *repo.Session) error {
	saved, err := s.repo.UpsertSession(ctx, *sess)
	if err != nil {
		return fmt.Errorf("%w: save session: %v", domain.ErrPersistence, err)
	}
	*sess = *saved
	s.cache.SetDefault(sess.Phone, cloneSession(saved))
	return nil
}

// Touch refreshes last_message_at only, used in manual takeover.
func (s *Store) Touch(ctx context.Context, phone string) error {
	if err := s.repo.TouchSession(ctx, phone); err != nil {
		return fmt.Errorf("%w: touch session: %v", domain.ErrPersistence, err)
	}
	s.cache.Delete(phone)
	return nil
}

// IsManual reports whether the session is under admin takeover.
func (s *Store) IsManual(ctx context.Context, phone string) (bool, error) {
	sess, err := s.Load(ctx, phone)
	if err != nil {
		return false, err
	}
	return sess.Stage == StageManual, nil
}

// SetManual toggles manual takeover for a phone number.
func (s *Store) SetManual(ctx context.Context, phone string, manual bool) error {
	stage := StageMenu
	if manual {
		stage = StageManual
	}
	if err := s.repo.SetSessionStage(ctx, phone, stage); err != nil {
		return fmt.Errorf("%w: set manual: %v", domain.ErrPersistence, err)
	}
	s.cache.Delete(phone)
	return nil
}

// cloneSession copies the session so cache readers and the in-flight turn
// never share the context map.
func cloneSession(sess *repo.Session) *repo.Session {
	cp := *sess
	cp.Context = make(map[string]any, len(sess.Context))
	for k, v := range sess.Context {
		cp.Context[k] = v
	}
	return &cp
}
