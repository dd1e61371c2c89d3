package drive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my file (1).txt", "my_file__1_.txt"},
		{"../../etc/passwd", "passwd"},
		{"weird:chars?.log", "weird_chars_.log"},
	}
	for _, c := range cases {
		got, err := SanitizeName(c.in)
		if err != nil {
			t.Errorf("SanitizeName(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	for _, in := range []string{"", ".", "..", "///", "___"} {
		if _, err := SanitizeName(in); err == nil {
			t.Errorf("expected SanitizeName(%q) to fail", in)
		}
	}
}

func TestSaveAndOpen(t *testing.T) {
	store := newTestStore(t)

	info, err := store.Save("hello.txt", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if info.Name != "hello.txt" || info.Size != 11 {
		t.Errorf("unexpected file info: %+v", info)
	}

	reader, size, err := store.Open("hello.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reader.Close()

	if size != 11 {
		t.Errorf("expected size 11, got %d", size)
	}
	data, _ := io.ReadAll(reader)
	if string(data) != "hello world" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("f.txt", strings.NewReader("v1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Save("f.txt", strings.NewReader("v2 longer")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reader, size, err := store.Open("f.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reader.Close()
	if size != 9 {
		t.Errorf("expected overwritten size 9, got %d", size)
	}
}

func TestListHidesDotfiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if _, err := store.Save("visible.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing dotfile failed: %v", err)
	}

	files, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 || files[0].Name != "visible.txt" {
		t.Errorf("unexpected listing: %+v", files)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"../secret", "a/b", `a\b`, ".", "..", ""} {
		if _, _, err := store.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("expected ErrInvalidName for %q, got %v", name, err)
		}
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("gone.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete("gone.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("gone.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on repeat delete, got %v", err)
	}
	if _, _, err := store.Open("gone.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
