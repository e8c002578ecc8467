package shell

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmmpc/lisfy/internal/state"
	"github.com/jmmpc/lisfy/internal/transfer"
)

// Renderer serializes everything the shell prints.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewRenderer writes to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Write lets the renderer act as the log destination so log lines do not
// interleave with listings.
func (r *Renderer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Write(p)
}

// Println prints one block followed by a newline.
func (r *Renderer) Println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, s)
}

// Printf prints a formatted line.
func (r *Renderer) Printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// RenderHeader shows the back control and the current path.
func RenderHeader(path string, backEnabled bool) string {
	back := backOffStyle.Render("←")
	if backEnabled {
		back = backStyle.Render("←")
	}
	return back + " " + headerStyle.Render(path)
}

// RenderRows renders the list as numbered lines of size, date and name.
func RenderRows(rows []state.Row) string {
	if len(rows) == 0 {
		return emptyStyle.Render("(empty)")
	}
	var b strings.Builder
	for i, row := range rows {
		name := fileStyle.Render(row.Name)
		if row.IsFolder() {
			name = folderStyle.Render(row.Name + "/")
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			indexStyle.Render(fmt.Sprintf("%d", i+1)),
			sizeStyle.Render(row.Size),
			dateStyle.Render(row.Date),
			name,
		)
		b.WriteString(line)
		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderModal renders a notification box with its dismiss hint.
func RenderModal(text string) string {
	hint := modalHintStyle.Render("close: `close` or `dismiss`")
	return modalStyle.Render(text + "\n\n" + hint)
}

// RenderTransfers lists sessions, newest last.
func RenderTransfers(snaps []transfer.Snapshot) string {
	if len(snaps) == 0 {
		return emptyStyle.Render("(no transfers)")
	}
	var b strings.Builder
	for i, s := range snaps {
		line := fmt.Sprintf("%-8s %-11s %3d%%  %s", s.Type, s.State, s.Percent, s.Name)
		if s.Err != nil {
			line += "  " + transferStyle.Render(s.Err.Error())
		}
		b.WriteString(line)
		if i < len(snaps)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderHelp lists the commands.
func RenderHelp(cmds []command) string {
	var b strings.Builder
	for i, c := range cmds {
		b.WriteString(helpKeyStyle.Render(c.usage))
		b.WriteString(c.help)
		if i < len(cmds)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Prompt returns the input prompt for path.
func Prompt(path string) string {
	return promptStyle.Render("lisfy:"+path) + "> "
}
