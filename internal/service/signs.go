package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/models"
)

// SignStore defines the persistence operations required by SignRepository.
type SignStore interface {
	LoadSigns(ctx context.Context) ([]models.Observation, error)
	SaveSigns(ctx context.Context, signs []models.Observation) error
}

// Gate reports whether the session is active.
type Gate interface {
	Active() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

func (f GateFunc) Active() bool { return f() }

// Listener is called with a snapshot of the collection after every change.
type Listener func(signs []models.Observation)

// SignRepository is the ordered, in-memory sign collection and the single
// source of truth for what the map shows.
type SignRepository struct {
	store SignStore
	gate  Gate
	log   *zap.Logger

	mu        sync.Mutex
	signs     []models.Observation
	listeners []Listener
}

// NewSignRepository returns an empty repository.
func NewSignRepository(store SignStore, gate Gate, log *zap.Logger) *SignRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &SignRepository{store: store, gate: gate, log: log}
}

// Subscribe registers l for change notifications.
func (r *SignRepository) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// LoadInitial replaces the collection with the stored one. Entries whose id
// was already seen are dropped.
func (r *SignRepository) LoadInitial(ctx context.Context) error {
	stored, err := r.store.LoadSigns(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(stored))
	signs := make([]models.Observation, 0, len(stored))
	for _, s := range stored {
		if seen[s.ID] {
			r.log.Warn("dropping duplicate stored sign", zap.String("id", s.ID))
			continue
		}
		seen[s.ID] = true
		signs = append(signs, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.signs = signs
	r.notifyLocked()
	return nil
}

// Append adds obs at the end of the collection. It is rejected when no
// session is active or the id already exists. If the collection cannot be
// saved the append is undone and the save error returned.
func (r *SignRepository) Append(ctx context.Context, obs models.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.gate.Active() {
		return ErrSessionInactive
	}
	if r.indexLocked(obs.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateObservation, obs.ID)
	}

	next := make([]models.Observation, 0, len(r.signs)+1)
	next = append(append(next, r.signs...), obs)
	if err := r.persistLocked(ctx, next); err != nil {
		return err
	}
	r.signs = next
	r.notifyLocked()
	return nil
}

// Remove deletes the observation with id and returns it. A failed save
// leaves the collection unchanged.
func (r *SignRepository) Remove(ctx context.Context, id string) (models.Observation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return models.Observation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := r.signs[i]
	next := append(r.signs[:i:i], r.signs[i+1:]...)
	if err := r.persistLocked(ctx, next); err != nil {
		return models.Observation{}, err
	}
	r.signs = next
	r.notifyLocked()
	return removed, nil
}

// Clear empties the collection. Nothing is written; logout purges the
// stored bucket separately.
func (r *SignRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.signs = nil
	r.notifyLocked()
}

// List returns a copy of the collection in order.
func (r *SignRepository) List() []models.Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Get returns the observation with id.
func (r *SignRepository) Get(id string) (models.Observation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.signs[i], true
	}
	return models.Observation{}, false
}

// Len returns the number of observations.
func (r *SignRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signs)
}

func (r *SignRepository) indexLocked(id string) int {
	for i, s := range r.signs {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (r *SignRepository) snapshotLocked() []models.Observation {
	out := make([]models.Observation, len(r.signs))
	copy(out, r.signs)
	return out
}

// persistLocked saves signs while a session is active.
func (r *SignRepository) persistLocked(ctx context.Context, signs []models.Observation) error {
	if !r.gate.Active() {
		return nil
	}
	if err := r.store.SaveSigns(ctx, signs); err != nil {
		r.log.Warn("signs not persisted", zap.Error(err))
		return err
	}
	return nil
}

func (r *SignRepository) notifyLocked() {
	snap := r.snapshotLocked()
	for _, l := range r.listeners {
		l(snap)
	}
}
