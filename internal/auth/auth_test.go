package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStaticSource(t *testing.T) {
	src := Static("tok-1")

	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token = %q, want tok-1", token)
	}

	src.Set("tok-2")
	token, _ = src.Token(context.Background())
	if token != "tok-2" {
		t.Errorf("token after Set = %q, want tok-2", token)
	}
}

func TestStaticSource_Empty(t *testing.T) {
	src := Static("")
	if _, err := src.Token(context.Background()); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("RT_TEST_TOKEN", "  env-tok \n")

	src := Env("RT_TEST_TOKEN")
	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "env-tok" {
		t.Errorf("token = %q, want env-tok (trimmed)", token)
	}

	t.Setenv("RT_TEST_TOKEN", "")
	if _, err := src.Token(context.Background()); err == nil {
		t.Error("expected error for unset variable")
	}
}

func TestFileSource_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("file-tok-1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := File(path)
	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "file-tok-1" {
		t.Errorf("token = %q, want file-tok-1", token)
	}

	// Rotate on disk; the next call must observe the new value.
	if err := os.WriteFile(path, []byte("file-tok-2"), 0o600); err != nil {
		t.Fatal(err)
	}
	token, _ = src.Token(context.Background())
	if token != "file-tok-2" {
		t.Errorf("token after rotation = %q, want file-tok-2", token)
	}
}

func TestFileSource_Missing(t *testing.T) {
	src := File(filepath.Join(t.TempDir(), "nope"))
	if _, err := src.Token(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
