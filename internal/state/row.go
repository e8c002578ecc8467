package state

import (
	"fmt"
	"time"

	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/pathutil"
)

// Row classes
const (
	ClassFolder = "folder icon"
	ClassFile   = "file icon"
)

// DirSize is shown in the size column of folder rows.
const DirSize = "dir"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// Row is one rendered entry of the files list.
type Row struct {
	Name  string
	Href  string // folder: server path; file: relative download link
	Class string
	Size  string
	Date  string
	Entry models.DirectoryEntry
}

// IsFolder reports whether a click on the row navigates instead of downloading.
func (r Row) IsFolder() bool {
	return r.Class == ClassFolder
}

// MakeRow renders entry e of the directory currentPath. Dates are shown in loc.
func MakeRow(currentPath string, e models.DirectoryEntry, loc *time.Location) Row {
	row := Row{
		Name:  e.Name,
		Date:  FormatDate(e.ModTime, loc),
		Entry: e,
	}

	if e.IsDir {
		row.Href = pathutil.Join(currentPath, e.Name)
		row.Class = ClassFolder
		row.Size = DirSize
	} else {
		row.Href = constants.DownloadHrefPrefix + pathutil.Join(currentPath, e.Name)
		row.Class = ClassFile
		row.Size = FormatSize(e.Size)
	}
	return row
}

// FormatSize renders a byte count with two decimals and a binary unit:
// 0 -> "0.00 B", 1536 -> "1.50 KB".
func FormatSize(size int64) string {
	s := float64(size)
	i := 0
	for s >= 1024 && i < len(sizeUnits)-1 {
		s /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", s, sizeUnits[i])
}

// FormatDate renders nanoseconds since the epoch as local date and time.
func FormatDate(ns int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(0, ns).In(loc).Format(constants.DateTimeLayout)
}
