package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorePutAndURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "https://assets.example.com/static/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Put(context.Background(), "generations/o/g/clip.mp4", []byte("bytes"), "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "https://assets.example.com/static/generations/o/g/clip.mp4" {
		t.Errorf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations", "o", "g", "clip.mp4"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a/b/c.mp4", "a/b/c.mp4", false},
		{"/leading/slash.mp4", "leading/slash.mp4", false},
		{"./dotted/path.mp4", "dotted/path.mp4", false},
		{"a/../../escape.mp4", "", true},
		{"..", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := sanitizeKey(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("sanitizeKey(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("sanitizeKey(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
