package storage

import (
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// BlobStore archives uploaded spreadsheets so an import can be traced back
// to the file it came from.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}

// ImportKey names the archive entry of one upload:
// imports/<academic year>/<random id>-<file name>.
func ImportKey(academicYear, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "upload"
	}
	year := strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(academicYear)
	if year == "" {
		year = "unknown"
	}
	return path.Join("imports", year, uuid.NewString()+"-"+name)
}
