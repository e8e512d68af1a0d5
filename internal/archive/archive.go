// Package archive is the catalog of dated snapshot archives.
//
// Archive names follow one fixed contract:
//
//	<name>_backup_<YYYY-MM-DD><suffix>
//
// where <name> is the base name of the backed-up directory and <suffix> is
// ".zip" or ".tar.zst". The date is read only from names of exactly that
// shape. Anything else carrying the suffix is listed without a date, which
// keeps it out of age-based retention.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raoulx24/dir-archiver/internal/config"
)

// DateLayout is the calendar date embedded in archive names.
const DateLayout = "2006-01-02"

const marker = "_backup_"

// Archive is one compressed snapshot file.
type Archive struct {
	Path    string
	Name    string
	Date    time.Time // midnight UTC of the embedded date; zero when HasDate is false
	HasDate bool
	Size    int64
	ModTime time.Time
}

// DateString renders the embedded date, or "-" for undated archives.
func (a Archive) DateString() string {
	if !a.HasDate {
		return "-"
	}
	return a.Date.Format(DateLayout)
}

// Suffix returns the file suffix used for a container format.
func Suffix(format string) string {
	if format == config.FormatTarZst {
		return ".tar.zst"
	}
	return ".zip"
}

// FileName builds the archive name for a target base name and date.
func FileName(name string, date time.Time, format string) string {
	return name + marker + date.Format(DateLayout) + Suffix(format)
}

// ParseName extracts the date from an archive file name. ok is false when
// the name does not follow the naming contract for this target name and
// format, or when the date is not a valid calendar date.
func ParseName(fileName, name, format string) (date time.Time, ok bool) {
	suffix := Suffix(format)
	prefix := name + marker

	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, suffix) {
		return time.Time{}, false
	}
	token := strings.TrimSuffix(strings.TrimPrefix(fileName, prefix), suffix)
	if len(token) != len(DateLayout) {
		return time.Time{}, false
	}

	d, err := time.Parse(DateLayout, token)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// FromFileInfo constructs an Archive from a file path and os.FileInfo.
func FromFileInfo(path string, info os.FileInfo, name, format string) Archive {
	a := Archive{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	a.Date, a.HasDate = ParseName(a.Name, name, format)
	return a
}

// List enumerates the archives in dir. A missing dir yields no archives.
// Only regular files carrying the format's suffix are returned, sorted by
// file name.
func List(dir, name, format string) ([]Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive dir %s: %w", dir, err)
	}

	suffix := Suffix(format)

	// os.ReadDir returns entries sorted by filename
	var archives []Archive
	for _, ent := range entries {
		fileName := ent.Name()
		if !ent.Type().IsRegular() || !strings.HasSuffix(fileName, suffix) {
			continue
		}
		// in-flight producer output
		if strings.HasPrefix(fileName, ".tmp-") {
			continue
		}

		full := filepath.Join(dir, fileName)
		info, err := ent.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", full, err)
		}

		archives = append(archives, FromFileInfo(full, info, name, format))
	}

	return archives, nil
}

// ListTarget lists the archives of a configured target.
func ListTarget(t config.Target, format string) ([]Archive, error) {
	return List(t.ArchiveDir(), t.Name(), format)
}

// Find returns the archive dated on day, if present.
func Find(archives []Archive, day time.Time) (Archive, bool) {
	want := day.Format(DateLayout)
	for _, a := range archives {
		if a.HasDate && a.Date.Format(DateLayout) == want {
			return a, true
		}
	}
	return Archive{}, false
}
