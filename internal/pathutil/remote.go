package pathutil

import (
	"path"
	"strings"
)

// Root is the top of the server's tree.
const Root = "/"

// Parent returns the parent of a server path: everything up to the last
// slash, or "/" when the last slash is the first character or absent.
//
//	Parent("/")      == "/"
//	Parent("/a")     == "/"
//	Parent("/a/b")   == "/a"
//	Parent("/a/b/c") == "/a/b"
func Parent(p string) string {
	i := strings.LastIndex(p, "/")
	if i > 0 {
		return p[:i]
	}
	return Root
}

// Join appends name to a server directory path. At the root the result is
// "/name" rather than "//name".
func Join(dir, name string) string {
	if dir == Root || dir == "" {
		return Root + name
	}
	return dir + "/" + name
}

// Clean normalizes user input into an absolute server path without a
// trailing slash. Relative input is resolved against cwd.
func Clean(cwd, p string) string {
	if p == "" {
		return cwd
	}
	if !strings.HasPrefix(p, "/") {
		p = Join(cwd, p)
	}
	return path.Clean(p)
}

// ContainsDotDot reports whether any element of v is "..". Both slash
// kinds separate elements.
func ContainsDotDot(v string) bool {
	if !strings.Contains(v, "..") {
		return false
	}
	for _, ent := range strings.FieldsFunc(v, isSlashRune) {
		if ent == ".." {
			return true
		}
	}
	return false
}

func isSlashRune(r rune) bool { return r == '/' || r == '\\' }
