package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/roadsigns/internal/models"
)

type mockSignStore struct {
	LoadSignsFunc func(ctx context.Context) ([]models.Observation, error)
	saved         [][]models.Observation
	saveErr       error
}

func (m *mockSignStore) LoadSigns(ctx context.Context) ([]models.Observation, error) {
	if m.LoadSignsFunc == nil {
		return nil, nil
	}
	return m.LoadSignsFunc(ctx)
}

func (m *mockSignStore) SaveSigns(_ context.Context, signs []models.Observation) error {
	m.saved = append(m.saved, signs)
	return m.saveErr
}

func ids(signs []models.Observation) []string {
	out := make([]string, 0, len(signs))
	for _, s := range signs {
		out = append(out, s.ID)
	}
	return out
}

func active(v *bool) Gate { return GateFunc(func() bool { return *v }) }

func TestAppendRemove_PersistsAndNotifies(t *testing.T) {
	on := true
	store := &mockSignStore{}
	repo := NewSignRepository(store, active(&on), nil)

	var seen [][]string
	repo.Subscribe(func(signs []models.Observation) { seen = append(seen, ids(signs)) })

	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, models.Observation{ID: "a"}))
	require.NoError(t, repo.Append(ctx, models.Observation{ID: "b"}))
	removed, err := repo.Remove(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)

	assert.Equal(t, [][]string{{"a"}, {"a", "b"}, {"b"}}, seen)
	require.Len(t, store.saved, 3)
	assert.Equal(t, []string{"b"}, ids(store.saved[2]))
}

func TestRemoveLast_SavesEmptyCollection(t *testing.T) {
	on := true
	store := &mockSignStore{}
	repo := NewSignRepository(store, active(&on), nil)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, models.Observation{ID: "a"}))
	_, err := repo.Remove(ctx, "a")
	require.NoError(t, err)
	require.Len(t, store.saved, 2)
	assert.Empty(t, store.saved[1])
}

func TestAppend_Rejections(t *testing.T) {
	on := true
	store := &mockSignStore{}
	repo := NewSignRepository(store, active(&on), nil)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, models.Observation{ID: "a"}))
	assert.ErrorIs(t, repo.Append(ctx, models.Observation{ID: "a"}), ErrDuplicateObservation)

	on = false
	assert.ErrorIs(t, repo.Append(ctx, models.Observation{ID: "b"}), ErrSessionInactive)
	assert.Equal(t, 1, repo.Len())
	assert.Len(t, store.saved, 1)
}

func TestRemove_NotFound(t *testing.T) {
	on := true
	store := &mockSignStore{}
	repo := NewSignRepository(store, active(&on), nil)
	calls := 0
	repo.Subscribe(func([]models.Observation) { calls++ })

	_, err := repo.Remove(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, calls)
	assert.Empty(t, store.saved)
}

func TestRemove_WhileInactiveDoesNotPersist(t *testing.T) {
	on := true
	store := &mockSignStore{}
	repo := NewSignRepository(store, active(&on), nil)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, models.Observation{ID: "a"}))

	on = false
	_, err := repo.Remove(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, store.saved, 1)
}

func TestSaveFailure_LeavesCollectionUnchanged(t *testing.T) {
	on := true
	store := &mockSignStore{}
	repo := NewSignRepository(store, active(&on), nil)
	ctx := context.Background()

	var notified int
	repo.Subscribe(func([]models.Observation) { notified++ })
	require.NoError(t, repo.Append(ctx, models.Observation{ID: "a"}))

	diskFull := errors.New("disk full")
	store.saveErr = diskFull

	assert.ErrorIs(t, repo.Append(ctx, models.Observation{ID: "b"}), diskFull)
	assert.Equal(t, []string{"a"}, ids(repo.List()))

	_, err := repo.Remove(ctx, "a")
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, []string{"a"}, ids(repo.List()))
	assert.Equal(t, 1, notified)

	store.saveErr = nil
	require.NoError(t, repo.Append(ctx, models.Observation{ID: "b"}))
	assert.Equal(t, []string{"a", "b"}, ids(repo.List()))
}

func TestClear_NotifiesWithoutSaving(t *testing.T) {
	on := true
	store := &mockSignStore{}
	repo := NewSignRepository(store, active(&on), nil)
	require.NoError(t, repo.Append(context.Background(), models.Observation{ID: "a"}))

	var last []models.Observation
	repo.Subscribe(func(signs []models.Observation) { last = signs })
	repo.Clear()

	assert.NotNil(t, last)
	assert.Empty(t, last)
	assert.Len(t, store.saved, 1)
}

func TestLoadInitial_DropsDuplicates(t *testing.T) {
	at := time.Now()
	store := &mockSignStore{
		LoadSignsFunc: func(context.Context) ([]models.Observation, error) {
			return []models.Observation{{ID: "a", CapturedAt: at}, {ID: "b"}, {ID: "a"}}, nil
		},
	}
	on := true
	repo := NewSignRepository(store, active(&on), nil)
	var notified []string
	repo.Subscribe(func(signs []models.Observation) { notified = ids(signs) })

	require.NoError(t, repo.LoadInitial(context.Background()))
	assert.Equal(t, []string{"a", "b"}, ids(repo.List()))
	assert.Equal(t, []string{"a", "b"}, notified)

	got, ok := repo.Get("a")
	assert.True(t, ok)
	assert.True(t, got.CapturedAt.Equal(at))
	_, ok = repo.Get("zzz")
	assert.False(t, ok)
}

func TestLoadInitial_Error(t *testing.T) {
	wantErr := errors.New("read failed")
	store := &mockSignStore{
		LoadSignsFunc: func(context.Context) ([]models.Observation, error) { return nil, wantErr },
	}
	on := true
	repo := NewSignRepository(store, active(&on), nil)
	assert.ErrorIs(t, repo.LoadInitial(context.Background()), wantErr)
}

func TestList_ReturnsCopy(t *testing.T) {
	on := true
	repo := NewSignRepository(&mockSignStore{}, active(&on), nil)
	require.NoError(t, repo.Append(context.Background(), models.Observation{ID: "a"}))

	list := repo.List()
	list[0].ID = "changed"
	assert.Equal(t, []string{"a"}, ids(repo.List()))
}
