package storage

import (
	"io"
	"strings"
	"testing"
)

func TestArchiveSaveAndGet(t *testing.T) {
	arc, err := NewArchive(t.TempDir())
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}

	key, err := arc.Save("tests (final).json", []byte(`{"tests":[]}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(key, "-tests__final_.json") {
		t.Errorf("key = %q, want sanitized name suffix", key)
	}

	rc, err := arc.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"tests":[]}` {
		t.Errorf("round trip = %q", data)
	}
}

func TestArchiveGet_BadKey(t *testing.T) {
	arc, err := NewArchive(t.TempDir())
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b"} {
		if _, err := arc.Get(key); err == nil {
			t.Errorf("Get(%q) succeeded, want error", key)
		}
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"plain.json":      "plain.json",
		"../../etc/x":     "x",
		"weird name!.js":  "weird_name_.js",
		"":                "upload.json",
		"тесты.json":      "_____.json",
		"dir/inner.json":  "inner.json",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
