package pathutil

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/jmmpc/lisfy/internal/constants"
)

// UniqueName inserts a timestamp between a file's base name and its
// extension: "photo.jpg" -> "photo_2006-01-02_150405.jpg". Directory
// components, if any, are kept.
func UniqueName(filename string, t time.Time) string {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	return name + "_" + t.Format(constants.UniqueNameTimeLayout) + ext
}
