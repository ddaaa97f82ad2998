package admins_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"telegram-archivebot/internal/admins"
)

func TestLoadSeedsAndPersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "admins.json")
	l, err := admins.Load(path, []int64{300, 100, 200})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if diff := cmp.Diff([]int64{100, 200, 300}, l.IDs()); diff != "" {
		t.Fatalf("IDs() mismatch (-want +got):\n%s", diff)
	}
	if !l.Contains(200) {
		t.Fatal("Contains(200) = false, want true")
	}
	if l.Contains(999) {
		t.Fatal("Contains(999) = true, want false")
	}

	// Снапшот создан при первой загрузке: повторная загрузка без seed
	// восстанавливает тот же список.
	again, err := admins.Load(path, nil)
	if err != nil {
		t.Fatalf("reload Load() error: %v", err)
	}
	if diff := cmp.Diff(l.IDs(), again.IDs()); diff != "" {
		t.Fatalf("reloaded IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotOverridesSeed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "admins.json")
	l, err := admins.Load(path, []int64{100})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err = l.Add(200); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	// Рестарт с другим seed: мутации из снапшота имеют приоритет.
	reloaded, err := admins.Load(path, []int64{100})
	if err != nil {
		t.Fatalf("reload Load() error: %v", err)
	}
	if !reloaded.Contains(200) {
		t.Fatal("admin added before restart was lost")
	}
}

func TestAddRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "admins.json")
	l, err := admins.Load(path, []int64{100})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	added, err := l.Add(200)
	if err != nil || !added {
		t.Fatalf("Add(200) = (%v, %v), want (true, nil)", added, err)
	}
	added, err = l.Add(200)
	if err != nil || added {
		t.Fatalf("repeated Add(200) = (%v, %v), want (false, nil)", added, err)
	}

	removed, err := l.Remove(200)
	if err != nil || !removed {
		t.Fatalf("Remove(200) = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = l.Remove(200)
	if err != nil || removed {
		t.Fatalf("repeated Remove(200) = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestRemoveLastAdminRejected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "admins.json")
	l, err := admins.Load(path, []int64{100})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if _, err = l.Remove(100); err == nil {
		t.Fatal("Remove() of the last admin succeeded, want error")
	}
	if !l.Contains(100) {
		t.Fatal("last admin was removed despite the error")
	}
}

func TestLoadEmptyRejected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "admins.json")
	if _, err := admins.Load(path, nil); err == nil {
		t.Fatal("Load() with empty seed and no snapshot succeeded, want error")
	}
}
