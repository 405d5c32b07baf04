package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileTokenRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")
	repo, err := NewFileTokenRepository(path)
	if err != nil {
		t.Fatalf("NewFileTokenRepository failed: %v", err)
	}

	if _, err := repo.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on empty store: err = %v, want ErrNotFound", err)
	}
	if err := repo.Save(ctx, "abc.def.ghi"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("Load() = %q, %v; want abc.def.ghi", got, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file mode = %v, want 0600", perm)
	}

	if err := repo.Save(ctx, "second"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got, _ := repo.Load(ctx); got != "second" {
		t.Fatalf("Load() after overwrite = %q, want second", got)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after Clear: err = %v, want ErrNotFound", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}

func TestFileTokenRepositoryBlankFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	repo, err := NewFileTokenRepository(path)
	if err != nil {
		t.Fatalf("NewFileTokenRepository failed: %v", err)
	}
	if _, err := repo.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on blank file: err = %v, want ErrNotFound", err)
	}
}

func TestRepositoriesRejectEmptyToken(t *testing.T) {
	file, err := NewFileTokenRepository(filepath.Join(t.TempDir(), "token"))
	if err != nil {
		t.Fatalf("NewFileTokenRepository failed: %v", err)
	}
	repos := map[string]TokenRepository{
		"file":   file,
		"memory": NewMemoryTokenRepository(),
	}
	for name, repo := range repos {
		t.Run(name, func(t *testing.T) {
			if err := repo.Save(context.Background(), ""); err == nil {
				t.Fatal("Save(\"\") succeeded, want error")
			}
		})
	}
}

func TestNewFileTokenRepositoryRequiresPath(t *testing.T) {
	if _, err := NewFileTokenRepository(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
