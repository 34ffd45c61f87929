package feed

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stonelake/gemfeed/internal/catalog"
)

// buildZip assembles an in-memory archive from name -> content pairs.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	t.Run("single csv entry", func(t *testing.T) {
		payload := buildZip(t, map[string]string{
			"export_natural.csv": "a,b\n1,2\n",
		})

		text, err := Extract(payload)
		if err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
		if text != "a,b\n1,2\n" {
			t.Errorf("Extract() = %q", text)
		}
	})

	t.Run("csv extension matched case-insensitively", func(t *testing.T) {
		payload := buildZip(t, map[string]string{"EXPORT.CSV": "x\n"})

		text, err := Extract(payload)
		if err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
		if text != "x\n" {
			t.Errorf("Extract() = %q", text)
		}
	})

	t.Run("csv found among other entries", func(t *testing.T) {
		payload := buildZip(t, map[string]string{
			"readme.txt": "ignore me",
			"data.csv":   "id\nS1\n",
		})

		text, err := Extract(payload)
		if err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
		if text != "id\nS1\n" {
			t.Errorf("Extract() = %q", text)
		}
	})

	t.Run("utf8 BOM stripped from entry content", func(t *testing.T) {
		payload := buildZip(t, map[string]string{
			"data.csv": "\xEF\xBB\xBFid,carat\n",
		})

		text, err := Extract(payload)
		if err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
		if text != "id,carat\n" {
			t.Errorf("BOM not stripped: %q", text)
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := Extract([]byte("this is not an archive"))
		if !errors.Is(err, catalog.ErrArchiveCorrupt) {
			t.Errorf("expected ErrArchiveCorrupt, got %v", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := Extract(nil)
		if !errors.Is(err, catalog.ErrArchiveCorrupt) {
			t.Errorf("expected ErrArchiveCorrupt, got %v", err)
		}
	})

	t.Run("zero entries", func(t *testing.T) {
		payload := buildZip(t, nil)

		_, err := Extract(payload)
		if !errors.Is(err, catalog.ErrArchiveCorrupt) {
			t.Errorf("expected ErrArchiveCorrupt, got %v", err)
		}
	})

	t.Run("no csv entry", func(t *testing.T) {
		payload := buildZip(t, map[string]string{
			"readme.txt": "nothing useful",
			"data.json":  "{}",
		})

		_, err := Extract(payload)
		if !errors.Is(err, catalog.ErrNoDataFile) {
			t.Errorf("expected ErrNoDataFile, got %v", err)
		}
	})
}
