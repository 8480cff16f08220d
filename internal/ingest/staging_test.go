package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

func TestStaging_Write(t *testing.T) {
	s, err := NewStaging(filepath.Join(t.TempDir(), "staging"))
	if err != nil {
		t.Fatalf("NewStaging() error = %v", err)
	}

	a, err := s.Write(strings.NewReader("one"), ".JPG")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	b, err := s.Write(strings.NewReader("two"), ".JPG")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if a == b {
		t.Error("two staged files share a path")
	}
	if filepath.Dir(a) != s.Dir() {
		t.Errorf("staged file %s outside %s", a, s.Dir())
	}
	if filepath.Ext(a) != ".jpg" {
		t.Errorf("extension = %q, want .jpg", filepath.Ext(a))
	}
	if got, _ := os.ReadFile(a); string(got) != "one" {
		t.Errorf("content = %q, want one", got)
	}
}

func TestStaging_WriteErrorRemovesPartialFile(t *testing.T) {
	s, err := NewStaging(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Write(iotest.ErrReader(errors.New("client went away")), ".png"); !errors.Is(err, ErrIO) {
		t.Errorf("Write() error = %v, want ErrIO", err)
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("partial files left: %v", entries)
	}
}

func TestStaging_Sweep(t *testing.T) {
	s, err := NewStaging(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	old, _ := s.Write(strings.NewReader("old"), ".png")
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	fresh, _ := s.Write(strings.NewReader("fresh"), ".png")

	n, err := s.Sweep(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old staged file survived")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh staged file removed: %v", err)
	}
}

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"beach.jpg", "beach.jpg"},
		{"../../etc/passwd.png", "passwd.png"},
		{`C:\Users\me\Pictures\sunset.png`, "sunset.png"},
		{"", "upload"},
		{"/", "upload"},
	}
	for _, tt := range tests {
		if got := cleanFilename(tt.in); got != tt.want {
			t.Errorf("cleanFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueName(t *testing.T) {
	dir := t.TempDir()

	if got := uniqueName(dir, "a.jpg"); got != filepath.Join(dir, "a.jpg") {
		t.Errorf("free name = %s", got)
	}
	for _, name := range []string{"a.jpg", "a_1.jpg", "a_3.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := uniqueName(dir, "a.jpg"); got != filepath.Join(dir, "a_2.jpg") {
		t.Errorf("uniqueName() = %s, want a_2.jpg", got)
	}
}
