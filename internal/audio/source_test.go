package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audiosub/internal/services"
)

// wavHeader is a minimal RIFF/WAVE header followed by silence.
func wavHeader() []byte {
	data := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
	return append(data, make([]byte, 64)...)
}

func TestSelectFileSniffsAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.wav")
	if err := os.WriteFile(path, wavHeader(), 0o644); err != nil {
		t.Fatal(err)
	}

	source, err := SelectFile(path)
	if err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}
	if source.DisplayName() != "interview.wav" {
		t.Fatalf("unexpected display name %q", source.DisplayName())
	}
	if !source.IsAudio() {
		t.Fatalf("expected audio mime type, got %q", source.MimeType())
	}
	if source.Size() != len(wavHeader()) {
		t.Fatalf("unexpected size %d", source.Size())
	}
}

func TestSelectFileAcceptsNonAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello there"), 0o644); err != nil {
		t.Fatal(err)
	}
	source, err := SelectFile(path)
	if err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}
	if source.IsAudio() {
		t.Fatalf("text file reported as audio (%q)", source.MimeType())
	}
}

func TestSelectFileRejectsEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp3")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{empty, filepath.Join(dir, "missing.mp3"), dir} {
		if _, err := SelectFile(path); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("SelectFile(%q): expected validation error, got %v", path, err)
		}
	}
}

func TestSourceIsImmutable(t *testing.T) {
	data := []byte("abc")
	source := NewSource(data, "audio/mpeg", "a.mp3")
	data[0] = 'z'
	got := source.Bytes()
	got[1] = 'z'
	if string(source.Bytes()) != "abc" {
		t.Fatalf("source payload mutated: %q", source.Bytes())
	}
}

func TestExceedsAdvisorySize(t *testing.T) {
	small := NewSource(make([]byte, 10), "audio/mpeg", "a.mp3")
	if small.ExceedsAdvisorySize() {
		t.Fatal("small clip flagged as oversized")
	}
	large := NewSource(make([]byte, AdvisoryMaxBytes+1), "audio/mpeg", "b.mp3")
	if !large.ExceedsAdvisorySize() {
		t.Fatal("large clip not flagged")
	}
}
