// Package port implements bulk export and import of the CA configuration as
// a JSON archive on disk. Both directions iterate table by table, honour a
// cooperative stop flag between rows, and report per-table progress.
package port

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveFile is the name of the main document inside an archive directory.
const ArchiveFile = "caconf.json"

// filesDir holds externalized values referenced from the main document.
const filesDir = "files"

// fileRef marks a string value that has been externalized into the archive's
// files directory. The remainder of the string is the path relative to the
// archive root.
const fileRef = "@"

// DefaultInlineThreshold is the size in bytes above which certificate and
// configuration blobs are written as separate files instead of inline JSON
// values.
const DefaultInlineThreshold = 1024

// ErrCanceled is returned when an export or import run was stopped via the
// stop flag or the context before completing.
var ErrCanceled = errors.New("run canceled")

// Progress carries per-table row counts of a finished or aborted run.
type Progress struct {
	Counts map[string]int
}

func newProgress() *Progress {
	return &Progress{Counts: make(map[string]int)}
}

func (p *Progress) add(table string) {
	p.Counts[table]++
}

// Total returns the summed row count across tables.
func (p *Progress) Total() int {
	n := 0
	for _, c := range p.Counts {
		n += c
	}
	return n
}

// externalize writes value to the archive's files directory when it exceeds
// the threshold, returning a reference string; small values pass through
// unchanged. name must be unique within the archive.
func externalize(dir, name, value string, threshold int) (string, error) {
	if len(value) <= threshold {
		return value, nil
	}
	rel := filepath.Join(filesDir, name)
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return fileRef + filepath.ToSlash(rel), nil
}

// resolve reads back a value that externalize may have turned into a file
// reference. Plain values pass through unchanged.
func resolve(dir, value string) (string, error) {
	if !strings.HasPrefix(value, fileRef) {
		return value, nil
	}
	rel := filepath.FromSlash(strings.TrimPrefix(value, fileRef))
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		return "", fmt.Errorf("read externalized value %s: %w", rel, err)
	}
	return string(data), nil
}
