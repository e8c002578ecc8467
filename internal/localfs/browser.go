package localfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode"
	"unicode/utf8"
)

// ErrNoFiles is returned by Newest for a directory without regular files.
var ErrNoFiles = errors.New("no files in directory")

// FileEntry represents a file or directory in the local filesystem.
type FileEntry struct {
	Path    string // Full path to the file
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
	Mode    fs.FileMode
	Info    fs.FileInfo
}

// ListDirectory returns the entries of path filtered by opts, folders first,
// then by name using Less.
func ListDirectory(path string, opts ListOptions) ([]FileEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil && len(entries) == 0 {
		return nil, err
	}

	result := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !opts.IncludeHidden && IsHiddenName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed or unreadable since ReadDir.
			continue
		}
		if !opts.IncludeSpecial && !info.IsDir() && !info.Mode().IsRegular() {
			continue
		}

		result = append(result, FileEntry{
			Path:    filepath.Join(path, name),
			Name:    name,
			Size:    info.Size(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
			Info:    info,
		})
	}

	Sort(result)
	return result, nil
}

// Sort orders entries folders first, then by name using Less. Equal
// entries keep their relative order.
func Sort(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return Less(entries[i].Name, entries[j].Name)
	})
}

// Less reports whether s1 sorts before s2. Runes are compared one by one;
// identical runes match exactly, others are compared lower-cased. A proper
// prefix sorts first.
func Less(s1, s2 string) bool {
	for s1 != "" && s2 != "" {
		r1, size1 := utf8.DecodeRuneInString(s1)
		r2, size2 := utf8.DecodeRuneInString(s2)
		s1 = s1[size1:]
		s2 = s2[size2:]

		if r1 == r2 {
			continue
		}

		r1 = unicode.ToLower(r1)
		r2 = unicode.ToLower(r2)
		if r1 != r2 {
			return r1 < r2
		}
	}
	return s1 == "" && s2 != ""
}

// Newest returns the most recently modified regular file in dir. Hidden
// files are skipped.
func Newest(dir string) (FileEntry, error) {
	entries, err := ListDirectory(dir, ListOptions{})
	if err != nil {
		return FileEntry{}, err
	}

	var newest FileEntry
	found := false
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if !found || e.ModTime.After(newest.ModTime) {
			newest = e
			found = true
		}
	}
	if !found {
		return FileEntry{}, ErrNoFiles
	}
	return newest, nil
}
