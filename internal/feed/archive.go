package feed

// archive.go opens the compressed feed payload and extracts its single
// delimited-text entry. The supplier ships one ZIP per export containing one
// CSV; anything else is treated as a broken dump.

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/stonelake/gemfeed/internal/catalog"
)

// dataFileExt is the extension of the archive entry holding the export.
const dataFileExt = ".csv"

// Extract opens payload as a ZIP archive, locates the CSV entry, and returns
// its decoded text. The content is materialized in one pass; export dumps
// are bounded by the supplier at a few hundred MB uncompressed.
//
// Returns catalog.ErrArchiveCorrupt when the payload is not a readable
// archive or holds zero entries, and catalog.ErrNoDataFile when no entry
// carries the expected extension.
func Extract(payload []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", catalog.ErrArchiveCorrupt, err)
	}

	if len(zr.File) == 0 {
		return "", fmt.Errorf("%w: zero entries", catalog.ErrArchiveCorrupt)
	}

	for _, entry := range zr.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), dataFileExt) {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open %s: %v", catalog.ErrArchiveCorrupt, entry.Name, err)
		}
		defer rc.Close()

		text, err := io.ReadAll(cleanReader(rc))
		if err != nil {
			return "", fmt.Errorf("%w: decode %s: %v", catalog.ErrArchiveCorrupt, entry.Name, err)
		}

		return string(text), nil
	}

	return "", fmt.Errorf("%w: no %s entry among %d files", catalog.ErrNoDataFile, dataFileExt, len(zr.File))
}
