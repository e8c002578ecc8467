// Package state provides observable state containers for the browser.
// Containers publish events on every change so any renderer can subscribe.
package state

import (
	"context"
	"errors"
	"sync"

	"github.com/jmmpc/lisfy/internal/events"
)

// ErrNoSuchRow is returned when a click targets an index outside the list.
var ErrNoSuchRow = errors.New("no such row")

// Navigator is invoked with a folder row's href when the row is clicked.
type Navigator func(ctx context.Context, href string)

// FilesList holds the rendered rows in server order.
// Thread-safe for concurrent access.
type FilesList struct {
	mu       sync.RWMutex
	rows     []Row
	navigate Navigator
	eventBus *events.EventBus
}

// NewFilesList creates an empty list. navigate handles folder clicks.
func NewFilesList(eventBus *events.EventBus, navigate Navigator) *FilesList {
	return &FilesList{
		rows:     make([]Row, 0),
		navigate: navigate,
		eventBus: eventBus,
	}
}

// Clear removes all rows.
func (l *FilesList) Clear() {
	l.mu.Lock()
	l.rows = l.rows[:0]
	l.mu.Unlock()

	l.eventBus.PublishListChanged(0)
}

// Append adds a row at the end.
func (l *FilesList) Append(row Row) {
	l.mu.Lock()
	l.rows = append(l.rows, row)
	n := len(l.rows)
	l.mu.Unlock()

	l.eventBus.PublishListChanged(n)
}

// Replace clears the list and appends rows in one step, publishing a single event.
func (l *FilesList) Replace(rows []Row) {
	l.mu.Lock()
	l.rows = append(l.rows[:0], rows...)
	n := len(l.rows)
	l.mu.Unlock()

	l.eventBus.PublishListChanged(n)
}

// Rows returns a copy of the current rows.
func (l *FilesList) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Row, len(l.rows))
	copy(result, l.rows)
	return result
}

// Len returns the number of rows.
func (l *FilesList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

// Row returns the row at index i.
func (l *FilesList) Row(i int) (Row, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i < 0 || i >= len(l.rows) {
		return Row{}, false
	}
	return l.rows[i], true
}

// Find returns the index of the first row with the given name, or -1.
func (l *FilesList) Find(name string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, r := range l.rows {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// Click handles a click on row i. Folder clicks are intercepted: the
// navigator receives the row's href and handled is true. File clicks are
// not intercepted; the caller performs the default action (download).
func (l *FilesList) Click(ctx context.Context, i int) (row Row, handled bool, err error) {
	l.mu.RLock()
	if i < 0 || i >= len(l.rows) {
		l.mu.RUnlock()
		return Row{}, false, ErrNoSuchRow
	}
	row = l.rows[i]
	navigate := l.navigate
	l.mu.RUnlock()

	if !row.IsFolder() {
		return row, false, nil
	}
	if navigate != nil {
		navigate(ctx, row.Href)
	}
	return row, true, nil
}
