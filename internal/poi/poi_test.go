package poi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-atlas/internal/db"
)

func TestNewDefaults(t *testing.T) {
	p := New("  ", 48.85, 2.35, "FR")
	require.Equal(t, DefaultName, p.Name)
	require.NotEmpty(t, p.ID)
	require.False(t, p.CreatedAt.IsZero())
	require.Equal(t, 2.35, p.Point().Lon())
	require.Equal(t, 48.85, p.Point().Lat())
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection([]POI{
		{ID: "a", Name: "Tower", Lat: 48.8584, Lng: 2.2945, CountryCode: "FR"},
		{ID: "b", Name: "Sea", Lat: 0, Lng: -30},
	})
	require.Len(t, fc.Features, 2)
	require.Equal(t, "a", fc.Features[0].ID)
	require.Equal(t, "Tower", fc.Features[0].Properties["name"])
	require.Equal(t, "FR", fc.Features[0].Properties["countryCode"])
	_, ok := fc.Features[1].Properties["countryCode"]
	require.False(t, ok)
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, empty)

	first, err := s.Create(ctx, POI{Name: "Trailhead", Lat: 46.5, Lng: 7.9, CountryCode: "CH"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second := New("", 41.9, 12.5, "IT")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second, err = s.Create(ctx, second)
	require.NoError(t, err)
	require.Equal(t, DefaultName, second.Name)

	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "Trailhead", got.Name)
	require.Equal(t, "CH", got.CountryCode)
	require.True(t, got.CreatedAt.Equal(first.CreatedAt))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, first.ID, all[0].ID)
	require.Equal(t, second.ID, all[1].ID)

	require.NoError(t, s.Delete(ctx, first.ID))
	require.ErrorIs(t, s.Delete(ctx, first.ID), ErrNotFound)

	_, err = s.Get(ctx, first.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreInMemory(t *testing.T) {
	exerciseStore(t, NewMemoryStore())

	s, err := NewFileStore("")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	created, err := s.Create(ctx, POI{Name: "Harbour", Lat: 43.3, Lng: 5.36})
	require.NoError(t, err)

	reloaded, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := reloaded.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Harbour", got.Name)
}

func TestFileStoreRefusesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pois.json")
	corrupt := []byte(`{"kept": {"id": "kept", "name": "Kept", "lat": 1, "lng"`)
	require.NoError(t, os.WriteFile(path, corrupt, 0644))

	_, err := NewFileStore(dir)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, corrupt, data, "an undecodable file is left untouched")
}

func TestFileStoreNullFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pois.json"), []byte("null"), 0644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), POI{Name: "After null", Lat: 2, Lng: 3})
	require.NoError(t, err)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestFileStoreRejectsDuplicateID(t *testing.T) {
	s := NewMemoryStore()
	p := New("one", 1, 1, "")
	_, err := s.Create(context.Background(), p)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), p)
	require.Error(t, err)
}

func TestDuckDBStore(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.Config{InMemory: true})
	require.NoError(t, err)
	defer conn.Close()

	s, err := NewDuckDBStore(ctx, conn)
	require.NoError(t, err)
	exerciseStore(t, s)
}
