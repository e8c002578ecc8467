package localfs

// ListOptions configures the behavior of ListDirectory.
type ListOptions struct {
	// IncludeHidden includes dot files in results.
	IncludeHidden bool

	// IncludeSpecial includes entries that are neither regular files nor
	// directories (sockets, devices, named pipes, symlinks to either).
	IncludeSpecial bool
}
