package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", s.Path(), dbPath)
	}
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "vigil.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='settings'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("settings table not found: %v", err)
	}

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 1 {
		t.Errorf("SchemaVersion() = %d, want 1", version)
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Settings().SetFloat(KeyEARThreshold, 0.23); err != nil {
		t.Fatalf("SetFloat() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	got, err := s.Settings().GetFloat(KeyEARThreshold)
	if err != nil {
		t.Fatalf("GetFloat() error = %v", err)
	}
	if got != 0.23 {
		t.Errorf("GetFloat() = %f, want 0.23", got)
	}
}

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	t.Run("missing key", func(t *testing.T) {
		if _, err := repo.Get("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
		if err := repo.Delete("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set and overwrite", func(t *testing.T) {
		if err := repo.Set("camera.device", "0"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := repo.Set("camera.device", "2"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := repo.Get("camera.device")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "2" {
			t.Errorf("Get() = %s, want 2", got)
		}
	})

	t.Run("typed values", func(t *testing.T) {
		if err := repo.SetInt(KeyFatigueEventThreshold, 4); err != nil {
			t.Fatalf("SetInt() error = %v", err)
		}
		n, err := repo.GetInt(KeyFatigueEventThreshold)
		if err != nil || n != 4 {
			t.Errorf("GetInt() = %d, %v; want 4, nil", n, err)
		}

		if err := repo.SetFloat(KeyMARThreshold, 0.65); err != nil {
			t.Fatalf("SetFloat() error = %v", err)
		}
		f, err := repo.GetFloat(KeyMARThreshold)
		if err != nil || f != 0.65 {
			t.Errorf("GetFloat() = %f, %v; want 0.65, nil", f, err)
		}

		if err := repo.Set(KeyEARThreshold, "wide"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if _, err := repo.GetFloat(KeyEARThreshold); err == nil {
			t.Error("expected parse error for non-numeric value")
		}
	})

	t.Run("all and delete", func(t *testing.T) {
		all, err := repo.All()
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if len(all) != 4 {
			t.Errorf("All() returned %d settings, want 4: %v", len(all), all)
		}

		if err := repo.Delete("camera.device"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := repo.Get("camera.device"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
		}
	})
}
