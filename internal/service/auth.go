// Package service provides the session, sign collection and capture logic,
// delegating persistence to store interfaces.
package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/models"
)

// AuthStore defines the persistence operations required by AuthService.
type AuthStore interface {
	LoadCredentials(ctx context.Context) ([]models.Credential, error)
	SaveCredentials(ctx context.Context, creds []models.Credential) error
	LoadSession(ctx context.Context) (models.Session, error)
	SaveSession(ctx context.Context, sess models.Session) error
	ClearSession(ctx context.Context) error
	// ClearSigns purges the durable sign collection on logout.
	ClearSigns(ctx context.Context) error
}

// SignClearer empties the in-memory sign collection.
type SignClearer interface {
	Clear()
}

// SurfaceReleaser disposes the map surface.
type SurfaceReleaser interface {
	Release()
}

// AuthService owns the process-wide session.
type AuthService struct {
	store   AuthStore
	encoder SecretEncoder
	signs   SignClearer
	surface SurfaceReleaser
	log     *zap.Logger

	mu      sync.RWMutex
	session models.Session
}

// NewAuthService constructs an AuthService. The session starts inactive
// until Restore or Login.
func NewAuthService(store AuthStore, encoder SecretEncoder, signs SignClearer, surface SurfaceReleaser, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		store:   store,
		encoder: encoder,
		signs:   signs,
		surface: surface,
		log:     log,
	}
}

// Session returns a copy of the current session.
func (s *AuthService) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Active reports whether an operator is logged in.
func (s *AuthService) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Active
}

// Restore reactivates a persisted session without checking the secret again.
func (s *AuthService) Restore(ctx context.Context) (models.Session, error) {
	sess, err := s.store.LoadSession(ctx)
	if err != nil {
		return models.Session{}, err
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if sess.Active {
		s.log.Info("session restored", zap.String("identity", sess.Identity))
	}
	return sess, nil
}

// Register adds a credential for identity. It fails with
// ErrDuplicateIdentity if the identity is already registered.
func (s *AuthService) Register(ctx context.Context, identity, secret string) error {
	if identity == "" || secret == "" {
		return ErrInvalidIdentity
	}

	creds, err := s.store.LoadCredentials(ctx)
	if err != nil {
		return err
	}
	for _, c := range creds {
		if c.Identity == identity {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, identity)
		}
	}

	creds = append(creds, models.Credential{Identity: identity, Secret: s.encoder.Encode(secret)})
	if err := s.store.SaveCredentials(ctx, creds); err != nil {
		return err
	}

	s.log.Info("identity registered", zap.String("identity", identity))
	return nil
}

// Login activates the session when (identity, encoded secret) matches a
// stored credential exactly. The sign collection is left as it is.
func (s *AuthService) Login(ctx context.Context, identity, secret string) error {
	creds, err := s.store.LoadCredentials(ctx)
	if err != nil {
		return err
	}

	encoded := s.encoder.Encode(secret)
	found := false
	for _, c := range creds {
		if c.Identity == identity && c.Secret == encoded {
			found = true
			break
		}
	}
	if !found {
		s.log.Info("login rejected")
		return ErrInvalidCredentials
	}

	sess := models.Session{Active: true, Identity: identity}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if err := s.store.SaveSession(ctx, sess); err != nil {
		s.log.Warn("session not persisted", zap.Error(err))
	}
	s.log.Info("logged in", zap.String("identity", identity))
	return nil
}

// Logout deactivates the session, forgets every observation in memory and
// on disk, and disposes the map surface. In-memory state is reset even when
// the store fails; the combined store error is returned.
func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.session
	s.session = models.Session{}
	s.mu.Unlock()

	err := s.store.ClearSession(ctx)
	s.signs.Clear()
	err = multierr.Append(err, s.store.ClearSigns(ctx))
	s.surface.Release()

	if err != nil {
		s.log.Error("logout left stale data", zap.Error(err))
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info("logged out", zap.String("identity", prev.Identity))
	return nil
}
