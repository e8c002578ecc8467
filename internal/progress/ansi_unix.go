//go:build !windows

package progress

import "os"

// enableWindowsANSI is a no-op outside Windows.
func enableWindowsANSI(*os.File) {}
