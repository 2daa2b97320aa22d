package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "module.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, body := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return zipPath
}

func TestExtractAll(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"orders/__init__.txt":    "init",
		"orders/lib/helpers.txt": "helpers",
	})
	dest := t.TempDir()

	if err := ExtractAll(zipPath, dest); err != nil {
		t.Fatalf("ExtractAll() err=%v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "orders", "lib", "helpers.txt"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "helpers" {
		t.Fatalf("content=%q, want %q", got, "helpers")
	}
}

func TestExtractAllRejectsEscapingEntries(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../evil.txt": "nope",
	})
	dest := t.TempDir()

	err := ExtractAll(zipPath, dest)
	if err == nil {
		t.Fatalf("expected zip-slip entry to be rejected")
	}
	if !strings.Contains(err.Error(), "escapes destination") {
		t.Fatalf("err=%v, want escape rejection", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt")); statErr == nil {
		t.Fatalf("escaping entry was written outside destination")
	}
}

func TestExtractAllMalformedArchive(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write bad zip: %v", err)
	}
	if err := ExtractAll(bad, t.TempDir()); err == nil {
		t.Fatalf("expected error for malformed archive")
	}
}

func TestExtractAllCreatesDestination(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"m/a.txt": "a"})
	dest := filepath.Join(t.TempDir(), "nested", "modules")

	if err := ExtractAll(zipPath, dest); err != nil {
		t.Fatalf("ExtractAll() err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "m", "a.txt")); err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
}
