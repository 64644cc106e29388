package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/PedroLopes/ai-rename-images/internal/errs"
)

const (
	targetExistsErrorFormat = "%w: target already exists: %s"
	renameErrorFormat       = "%w: rename %s -> %s: %v"
	notADirectoryFormat     = "%w: not a directory: %s"
	listDirectoryFormat     = "list directory %s: %w"
)

// FS is the read and rename surface the rename task needs.
type FS interface {
	ReadFile(name string) ([]byte, error)
	Stat(name string) (fs.FileInfo, error)
	Rename(oldpath, newpath string) error
	ReadDir(name string) ([]fs.FileInfo, error)
}

// ---------- OS-backed implementation ----------

type OS struct{}

func NewOS() OS { return OS{} }

func (OS) ReadFile(name string) ([]byte, error)  { return os.ReadFile(filepath.Clean(name)) }
func (OS) Stat(name string) (fs.FileInfo, error) { return os.Stat(filepath.Clean(name)) }
func (OS) Rename(a, b string) error              { return os.Rename(a, b) }
func (OS) ReadDir(name string) ([]fs.FileInfo, error) {
	entries, err := os.ReadDir(filepath.Clean(name))
	if err != nil {
		return nil, err
	}
	infos := make([]fs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, infoErr := entry.Info()
		if infoErr != nil {
			if errors.Is(infoErr, fs.ErrNotExist) {
				continue
			}
			return nil, infoErr
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ---------- In-memory implementation (for tests/integration) ----------

type Mem struct{ Fs afero.Fs }

func NewMem() Mem { return Mem{Fs: afero.NewMemMapFs()} }

func (m Mem) ReadFile(name string) ([]byte, error) { return afero.ReadFile(m.Fs, filepath.Clean(name)) }

// WriteFile, MkdirAll and Chtimes build fixtures; they are outside FS.
func (m Mem) WriteFile(name string, b []byte, p os.FileMode) error {
	return afero.WriteFile(m.Fs, filepath.Clean(name), b, p)
}
func (m Mem) Stat(name string) (fs.FileInfo, error) { return m.Fs.Stat(filepath.Clean(name)) }
func (m Mem) Rename(a, b string) error              { return m.Fs.Rename(a, b) }
func (m Mem) MkdirAll(path string, p os.FileMode) error {
	return m.Fs.MkdirAll(filepath.Clean(path), p)
}
func (m Mem) ReadDir(name string) ([]fs.FileInfo, error) {
	return afero.ReadDir(m.Fs, filepath.Clean(name))
}
func (m Mem) Chtimes(name string, a time.Time, mt time.Time) error {
	return m.Fs.Chtimes(filepath.Clean(name), a, mt)
}

// ---------- High-level façade used by the rename task ----------

type Ops struct{ FS FS }

func NewOps(fs FS) Ops { return Ops{FS: fs} }

type FileInfo struct {
	AbsolutePath string
	Directory    string
	BaseName     string
	Extension    string
	SizeBytes    int64
	ModTime      time.Time
}

// NormalizeExtensions lowercases the allowlist and adds missing leading dots.
func NormalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, extension := range extensions {
		trimmed := strings.ToLower(strings.TrimSpace(extension))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

// ListImages returns the regular files directly inside directory whose
// extension case-insensitively matches the allowlist. Hidden files are skipped.
func (o Ops) ListImages(directory string, extensions []string) ([]FileInfo, error) {
	directoryInfo, statErr := o.FS.Stat(directory)
	if statErr != nil {
		return nil, fmt.Errorf(listDirectoryFormat, directory, statErr)
	}
	if !directoryInfo.IsDir() {
		return nil, fmt.Errorf(notADirectoryFormat, errs.ErrConfiguration, directory)
	}
	entries, readErr := o.FS.ReadDir(directory)
	if readErr != nil {
		return nil, fmt.Errorf(listDirectoryFormat, directory, readErr)
	}

	allowed := map[string]bool{}
	for _, extension := range NormalizeExtensions(extensions) {
		allowed[extension] = true
	}

	var out []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !entry.Mode().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		originalExtension := filepath.Ext(name)
		if !allowed[strings.ToLower(originalExtension)] {
			continue
		}
		out = append(out, FileInfo{
			AbsolutePath: filepath.Join(directory, name),
			Directory:    directory,
			BaseName:     strings.TrimSuffix(name, originalExtension),
			Extension:    originalExtension,
			SizeBytes:    entry.Size(),
			ModTime:      entry.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AbsolutePath < out[j].AbsolutePath })
	return out, nil
}

func (o Ops) ReadFile(path string) ([]byte, error) { return o.FS.ReadFile(path) }
func (o Ops) FileExists(p string) bool             { _, err := o.FS.Stat(p); return err == nil }

// ModTime returns the last-modified time of path.
func (o Ops) ModTime(path string) (time.Time, error) {
	info, err := o.FS.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// MoveFile renames from to to without overwriting an existing file.
func (o Ops) MoveFile(from, to string) error {
	if from != to && !strings.EqualFold(from, to) && o.FileExists(to) {
		return fmt.Errorf(targetExistsErrorFormat, errs.ErrFilesystem, to)
	}
	if err := o.FS.Rename(from, to); err != nil {
		return fmt.Errorf(renameErrorFormat, errs.ErrFilesystem, from, to, err)
	}
	return nil
}

// UniquePath appends delimiter and a counter to the stem of to until no file exists there.
func (o Ops) UniquePath(to string, delimiter string) string {
	candidate := to
	extension := filepath.Ext(to)
	stem := to[:len(to)-len(extension)]
	for index := 1; o.FileExists(candidate); index++ {
		candidate = fmt.Sprintf("%s%s%d%s", stem, delimiter, index, extension)
	}
	return candidate
}
