package progress

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"unicode/utf8"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/events"
)

// Panel is the bottom upload panel: a file name and a "<n>%" progress text.
// It renders one mpb bar while visible. Without a terminal nothing is drawn
// and a single start line is printed instead.
type Panel struct {
	mu         sync.Mutex
	progress   *mpb.Progress
	bar        *mpb.Bar
	out        io.Writer
	isTerminal bool
	bus        *events.EventBus

	visible bool
	name    string
	percent int
}

// NewPanel creates a panel drawing on stderr.
func NewPanel(bus *events.EventBus) *Panel {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
	}
	return newPanel(os.Stderr, isTerminal, bus)
}

func newPanel(out io.Writer, isTerminal bool, bus *events.EventBus) *Panel {
	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(constants.ProgressUpdateInterval),
			mpb.WithWidth(60),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}
	return &Panel{
		progress:   p,
		out:        out,
		isTerminal: isTerminal,
		bus:        bus,
	}
}

// Show reveals the panel for name at 0%, replacing any bar already shown.
func (p *Panel) Show(name string) {
	p.mu.Lock()
	p.dropBarLocked()
	p.visible = true
	p.name = name
	p.percent = 0

	if p.isTerminal {
		label := truncateName(name, constants.MaxDisplayNameLength)
		p.bar = p.progress.New(100,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(label, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.Any(func(s decor.Statistics) string {
					return fmt.Sprintf("%d%%", s.Current)
				}, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(p.out, "Uploading %s\n", name)
	}
	p.mu.Unlock()

	p.bus.PublishPanel(true, name, 0, "0%")
}

// SetPercent updates the progress text. Ignored while hidden.
func (p *Panel) SetPercent(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	p.mu.Lock()
	if !p.visible || pct == p.percent {
		p.mu.Unlock()
		return
	}
	p.percent = pct
	name := p.name
	if p.bar != nil {
		p.bar.SetCurrent(int64(pct))
	}
	p.mu.Unlock()

	p.bus.PublishPanel(true, name, pct, fmt.Sprintf("%d%%", pct))
}

// Hide removes the panel. Hiding an already hidden panel does nothing.
func (p *Panel) Hide() {
	p.mu.Lock()
	if !p.visible {
		p.mu.Unlock()
		return
	}
	p.dropBarLocked()
	p.visible = false
	name := p.name
	p.mu.Unlock()

	p.bus.PublishPanel(false, name, 0, "")
}

// State returns what the panel currently shows.
func (p *Panel) State() (name string, percent int, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name, p.percent, p.visible
}

// Writer returns an io.Writer that prints above the bar while one is drawn.
func (p *Panel) Writer() io.Writer {
	if p.isTerminal {
		return p.progress
	}
	return p.out
}

// IsTerminal reports whether bars are drawn.
func (p *Panel) IsTerminal() bool {
	return p.isTerminal
}

// Close removes any bar and stops rendering.
func (p *Panel) Close() {
	p.Hide()
	p.progress.Shutdown()
}

func (p *Panel) dropBarLocked() {
	if p.bar != nil {
		p.bar.Abort(true)
		p.bar = nil
	}
}

// truncateName shortens s to maxLen runes, ending in an ellipsis.
func truncateName(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-1]) + "…"
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows.
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
