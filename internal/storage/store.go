package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/models"
)

// Store maps the domain state onto the four buckets of a Backend.
// Missing buckets yield defaults; malformed ones are logged and replaced by
// the same defaults.
type Store struct {
	backend Backend
	seed    []models.Credential
	log     *zap.Logger
}

// NewStore returns a Store over backend. seed is the credential set used
// when no credentials have ever been saved.
func NewStore(backend Backend, seed []models.Credential, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, seed: seed, log: log}
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) defaultCredentials() []models.Credential {
	out := make([]models.Credential, len(s.seed))
	copy(out, s.seed)
	return out
}

// LoadCredentials returns the stored credential set, or the seed.
func (s *Store) LoadCredentials(ctx context.Context) ([]models.Credential, error) {
	blob, ok, err := s.backend.Load(ctx, BucketCredentials)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if !ok {
		return s.defaultCredentials(), nil
	}
	creds, err := DecodeCredentials(blob)
	if err != nil {
		s.log.Warn("discarding stored credentials", zap.Error(err))
		return s.defaultCredentials(), nil
	}
	return creds, nil
}

// SaveCredentials replaces the stored credential set.
func (s *Store) SaveCredentials(ctx context.Context, creds []models.Credential) error {
	blob, err := EncodeCredentials(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := s.backend.Save(ctx, BucketCredentials, blob); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// LoadSession returns the persisted session. A session is active only when
// the flag is set and an identity is present.
func (s *Store) LoadSession(ctx context.Context) (models.Session, error) {
	flagBlob, ok, err := s.backend.Load(ctx, BucketSessionActive)
	if err != nil {
		return models.Session{}, fmt.Errorf("load session flag: %w", err)
	}
	if !ok {
		return models.Session{}, nil
	}
	active, err := strconv.ParseBool(string(flagBlob))
	if err != nil {
		s.log.Warn("discarding stored session flag",
			zap.Error(fmt.Errorf("%w: %v", ErrMalformedPersistedData, err)))
		return models.Session{}, nil
	}
	if !active {
		return models.Session{}, nil
	}

	idBlob, ok, err := s.backend.Load(ctx, BucketSessionIdentity)
	if err != nil {
		return models.Session{}, fmt.Errorf("load session identity: %w", err)
	}
	if !ok || len(idBlob) == 0 {
		return models.Session{}, nil
	}
	return models.Session{Active: true, Identity: string(idBlob)}, nil
}

// SaveSession writes the session flag and identity.
func (s *Store) SaveSession(ctx context.Context, sess models.Session) error {
	if err := s.backend.Save(ctx, BucketSessionActive, []byte(strconv.FormatBool(sess.Active))); err != nil {
		return fmt.Errorf("save session flag: %w", err)
	}
	if err := s.backend.Save(ctx, BucketSessionIdentity, []byte(sess.Identity)); err != nil {
		return fmt.Errorf("save session identity: %w", err)
	}
	return nil
}

// ClearSession removes both session buckets. Both are attempted even if the
// first fails.
func (s *Store) ClearSession(ctx context.Context) error {
	err := multierr.Combine(
		s.backend.Clear(ctx, BucketSessionActive),
		s.backend.Clear(ctx, BucketSessionIdentity),
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// LoadSigns returns the stored sign collection, or an empty one.
func (s *Store) LoadSigns(ctx context.Context) ([]models.Observation, error) {
	blob, ok, err := s.backend.Load(ctx, BucketSigns)
	if err != nil {
		return nil, fmt.Errorf("load signs: %w", err)
	}
	if !ok {
		return []models.Observation{}, nil
	}
	signs, err := DecodeSigns(blob)
	if err != nil {
		if errors.Is(err, ErrMalformedPersistedData) {
			s.log.Warn("discarding stored signs", zap.Error(err))
			return []models.Observation{}, nil
		}
		return nil, err
	}
	return signs, nil
}

// SaveSigns replaces the stored sign collection.
func (s *Store) SaveSigns(ctx context.Context, signs []models.Observation) error {
	blob, err := EncodeSigns(signs)
	if err != nil {
		return fmt.Errorf("encode signs: %w", err)
	}
	if err := s.backend.Save(ctx, BucketSigns, blob); err != nil {
		return fmt.Errorf("save signs: %w", err)
	}
	return nil
}

// ClearSigns purges the sign bucket.
func (s *Store) ClearSigns(ctx context.Context) error {
	if err := s.backend.Clear(ctx, BucketSigns); err != nil {
		return fmt.Errorf("clear signs: %w", err)
	}
	return nil
}
