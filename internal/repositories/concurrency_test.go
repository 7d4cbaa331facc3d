package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type versionedThing struct {
	id         string
	rowVersion int64
	value      string
}

func (v *versionedThing) GetID() string          { return v.id }
func (v *versionedThing) GetRowVersion() int64   { return v.rowVersion }
func (v *versionedThing) SetRowVersion(rv int64) { v.rowVersion = rv }

// inMemoryStore mimics the compare-and-swap an UPDATE ... WHERE row_version
// clause performs.
type inMemoryStore struct {
	rows map[string]*versionedThing
}

func (s *inMemoryStore) getByID(ctx context.Context, id string) (*versionedThing, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (s *inMemoryStore) updateIfVersion(ctx context.Context, e *versionedThing, expected int64) (pgconn.CommandTag, error) {
	row, ok := s.rows[e.id]
	if !ok || row.rowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	cp := *e
	cp.rowVersion = expected + 1
	s.rows[e.id] = &cp
	return pgconn.CommandTag("UPDATE 1"), nil
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	store := &inMemoryStore{rows: map[string]*versionedThing{
		"a": {id: "a", rowVersion: 1, value: "old"},
	}}

	err := WithRetry(context.Background(), 3, "a", store.getByID, store.updateIfVersion,
		func(v *versionedThing) error {
			v.value = "new"
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "new", store.rows["a"].value)
	assert.Equal(t, int64(2), store.rows["a"].rowVersion)
}

func TestWithRetryMissingRow(t *testing.T) {
	store := &inMemoryStore{rows: map[string]*versionedThing{}}

	err := WithRetry(context.Background(), 3, "ghost", store.getByID, store.updateIfVersion,
		func(v *versionedThing) error { return nil })
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestWithRetryMutateErrorStopsLoop(t *testing.T) {
	store := &inMemoryStore{rows: map[string]*versionedThing{
		"a": {id: "a", rowVersion: 1},
	}}
	boom := errors.New("boom")
	calls := 0

	err := WithRetry(context.Background(), 3, "a", store.getByID, store.updateIfVersion,
		func(v *versionedThing) error {
			calls++
			return boom
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversFromOneRace(t *testing.T) {
	store := &inMemoryStore{rows: map[string]*versionedThing{
		"a": {id: "a", rowVersion: 1, value: "old"},
	}}

	raced := false
	getByID := func(ctx context.Context, id string) (*versionedThing, error) {
		row, err := store.getByID(ctx, id)
		if err != nil || row == nil {
			return row, err
		}
		if !raced {
			// A concurrent writer lands between our read and our update.
			raced = true
			stale := *row
			store.rows[id].rowVersion++
			return &stale, nil
		}
		return row, nil
	}

	err := WithRetry(context.Background(), 3, "a", getByID, store.updateIfVersion,
		func(v *versionedThing) error {
			v.value = "mine"
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "mine", store.rows["a"].value)
}

func TestWithRetryGivesUpUnderContention(t *testing.T) {
	store := &inMemoryStore{rows: map[string]*versionedThing{
		"a": {id: "a", rowVersion: 1},
	}}

	// Every read hands back a stale version, so every update misses.
	getByID := func(ctx context.Context, id string) (*versionedThing, error) {
		return &versionedThing{id: "a", rowVersion: 0}, nil
	}

	err := WithRetry(context.Background(), 3, "a", getByID, store.updateIfVersion,
		func(v *versionedThing) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contention")
}
