// Package models defines the data types exchanged with the file server.
package models

import (
	"os"
	"time"
)

// DirectoryEntry is one item of a directory listing as sent by the server.
// ModTime is nanoseconds since the Unix epoch.
type DirectoryEntry struct {
	Name    string      `json:"name"`
	IsDir   bool        `json:"isdir"`
	Size    int64       `json:"size"`
	ModTime int64       `json:"modtime"`
	Mode    os.FileMode `json:"mode,omitempty"`
}

// Time returns the modification time.
func (e DirectoryEntry) Time() time.Time {
	return time.Unix(0, e.ModTime)
}

// EntryFromFileInfo converts a file stat into its wire form.
func EntryFromFileInfo(fi os.FileInfo) DirectoryEntry {
	return DirectoryEntry{
		Name:    fi.Name(),
		IsDir:   fi.IsDir(),
		Size:    fi.Size(),
		ModTime: fi.ModTime().UnixNano(),
		Mode:    fi.Mode(),
	}
}
