package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tidyxbrl/pkg/common/errors"
	"tidyxbrl/pkg/core/xbrl"
)

func sampleRun() *Run {
	return &Run{
		Source: "testdata/instance.xml",
		Table: &xbrl.Table{
			Columns: []string{"context", "instant", "datacode", "datavalue"},
			Rows: []xbrl.Row{
				{"context": "C1", "instant": "2020-12-26", "datacode": "Assets", "datavalue": "100"},
				{"context": "C2", "instant": "2020-12-26"},
			},
			Stats: xbrl.Stats{Contexts: 2, Facts: 1, JoinedFacts: 1},
		},
	}
}

func TestTableRepo_FileSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "runs")
	repo := NewTableRepo(nil, dir)
	require.NoError(t, repo.EnsureSchema(ctx))

	run := sampleRun()
	require.NoError(t, repo.Save(ctx, run))
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.False(t, run.CreatedAt.IsZero())
	assert.FileExists(t, filepath.Join(dir, run.ID.String()+".json"))

	loaded, err := repo.Load(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Source, loaded.Source)
	assert.Equal(t, run.Table.Columns, loaded.Table.Columns)
	assert.Equal(t, run.Table.Rows, loaded.Table.Rows)
	assert.Equal(t, run.Table.Stats, loaded.Table.Stats)
	assert.True(t, run.CreatedAt.Equal(loaded.CreatedAt))

	_, hasValue := loaded.Table.Rows[1].Get("datavalue")
	assert.False(t, hasValue, "nulls survive the round trip")
}

func TestTableRepo_LoadMissing(t *testing.T) {
	repo := NewTableRepo(nil, t.TempDir())

	_, err := repo.Load(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestTableRepo_List(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewTableRepo(nil, dir)

	older := sampleRun()
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRun()
	newer.Source = "https://example.test/filing.xml"
	newer.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	// Files that are not runs are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bogus.json"), []byte("{}"), 0644))

	runs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.Equal(t, 2, runs[0].Rows)
}

func TestTableRepo_ListEmptyDir(t *testing.T) {
	repo := NewTableRepo(nil, filepath.Join(t.TempDir(), "never-created"))
	runs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestTableRepo_SaveRejectsEmptyRun(t *testing.T) {
	repo := NewTableRepo(nil, t.TempDir())
	err := repo.Save(context.Background(), &Run{Source: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestInitDB_RequiresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	err := InitDB(context.Background(), "")
	assert.Error(t, err)
	assert.Nil(t, GetPool())
}
