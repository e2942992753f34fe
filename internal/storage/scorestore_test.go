package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hepflow/vertexing/internal/vertexing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *ScoreStore {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewScoreStore(db)
	require.NoError(t, err)
	return store
}

func TestSaveAndLoadRun(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	vtx := r3.Vec{X: 1.5, Y: -2.5, Z: 30}
	scored := []vertexing.TrackAtVertex{
		{ID: "trk-a", Distance: 0.12, Compatibility: 1.44},
		{ID: "trk-b", Distance: 3.4, Compatibility: 115.6},
	}

	require.NoError(t, store.SaveRun("run-1", vtx, scored))

	got, err := store.LoadRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "trk-a", got[0].TrackID)
	assert.Equal(t, vtx, got[0].Vertex)
	assert.Equal(t, 0.12, got[0].Distance)
	assert.Equal(t, 1.44, got[0].Compatibility)
	assert.Equal(t, "trk-b", got[1].TrackID)
}

func TestRunsJoinByTrackID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	vtx := r3.Vec{X: 1}
	require.NoError(t, store.SaveRun("loose", vtx, []vertexing.TrackAtVertex{
		{ID: "trk-a", Distance: 0.5, Compatibility: 25},
	}))
	require.NoError(t, store.SaveRun("tight", vtx, []vertexing.TrackAtVertex{
		{ID: "trk-a", Distance: 0.4, Compatibility: 16},
	}))

	loose, err := store.LoadRun("loose")
	require.NoError(t, err)
	tight, err := store.LoadRun("tight")
	require.NoError(t, err)

	// A stable caller-assigned ID lets two tunings be compared per
	// track rather than per row position.
	require.Len(t, loose, 1)
	require.Len(t, tight, 1)
	assert.Equal(t, loose[0].TrackID, tight[0].TrackID)
	assert.Less(t, tight[0].Compatibility, loose[0].Compatibility)
}

func TestLoadUnknownRun(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	got, err := store.LoadRun("missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.SaveRun("first", r3.Vec{}, []vertexing.TrackAtVertex{{ID: "a"}}))
	require.NoError(t, store.SaveRun("second", r3.Vec{}, []vertexing.TrackAtVertex{{ID: "b"}}))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, runs)
}

func TestSaveEmptyRun(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.SaveRun("empty", r3.Vec{}, nil))

	got, err := store.LoadRun("empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}
