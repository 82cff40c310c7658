// Package report prints rdm results on the console: classified status
// lines, saved changes, merge conflicts, remotes and transfer progress.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/rdmcfg/rdm/git"
)

const (
	statusIndent = "    "
	defaultWidth = 80
)

var (
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faint  = lipgloss.NewStyle().Faint(true)
)

// Printer writes reports to one output.
type Printer struct {
	out   io.Writer
	tty   bool
	width int
}

// New creates a printer. Progress bars redraw in place only when out is a
// terminal.
func New(out io.Writer) *Printer {
	p := &Printer{out: out, width: defaultWidth}
	if f, ok := out.(*os.File); ok {
		p.tty = term.IsTerminal(int(f.Fd()))
		p.width = TerminalWidth(f)
	}
	return p
}

// TerminalWidth returns the width of f when it is a terminal, or a default
// width otherwise.
func TerminalWidth(f *os.File) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func (p *Printer) println(a ...any) {
	lipgloss.Fprintln(p.out, a...)
}

// StatusLabel returns the colored tag for a status, or "" for statuses
// that are never listed.
func StatusLabel(s git.FileStatus) string {
	switch s {
	case git.StagedNew:
		return green.Render("[new file]")
	case git.StagedModified:
		return yellow.Render("[modified]")
	case git.StagedDeleted:
		return red.Render("[removed]")
	case git.WorktreeModifiedUnsaved:
		return yellow.Render("[modified]") + red.Render("(unsaved)")
	case git.WorktreeDeletedUnsaved:
		return red.Render("[removed]") + red.Render("(unsaved)")
	case git.Untracked:
		return red.Render("[untracked]")
	default:
		return ""
	}
}

// Status prints the status of the configuration tree. A path with both
// staged and unsaved changes gets one line for each.
func (p *Printer) Status(entries []git.StatusEntry, untracked bool) {
	var lines []string
	for _, e := range entries {
		for _, s := range e.Statuses() {
			if s == git.Untracked && !untracked {
				continue
			}
			if label := StatusLabel(s); label != "" {
				lines = append(lines, statusIndent+label+" "+e.Path)
			}
		}
	}

	if len(lines) == 0 {
		p.println("No changes since last save.")
		return
	}
	p.println("Current status of your configuration:")
	for _, line := range lines {
		p.println(line)
	}
}

// Saved prints the changes recorded by a save, classified by their index
// status.
func (p *Printer) Saved(changes []git.StatusEntry) {
	for _, e := range changes {
		if label := StatusLabel(e.Index); label != "" {
			p.println(statusIndent + label + " " + e.Path)
		}
	}
}

// Conflicts lists the paths a merge left with conflict markers, followed
// by how to finish the merge.
func (p *Printer) Conflicts(paths []string) {
	for _, path := range paths {
		p.println("  " + red.Render(path))
	}
	p.println(faint.Render("Resolve the conflicts, then run `rdm config update' and `rdm config save'."))
}

// Remotes prints the registered remotes.
func (p *Printer) Remotes(remotes []git.Remote) {
	p.println("Available remotes:")
	for _, r := range remotes {
		p.println(fmt.Sprintf(" %s: %s", r.Name, r.URL))
	}
}

// Progress returns a callback that draws transfer progress as a bar. On a
// terminal the bar is redrawn in place; elsewhere each phase prints a
// single line once it completes.
func (p *Printer) Progress() func(git.Progress) {
	bar := &progressBar{printer: p}
	return bar.update
}

type progressBar struct {
	printer *Printer
	phase   git.Phase
	open    bool
	printed bool
}

func (b *progressBar) update(pr git.Progress) {
	p := b.printer

	if pr.Phase != b.phase {
		b.finishLine()
		b.phase = pr.Phase
		b.printed = false
	}
	if pr.Phase == git.PhaseDone {
		return
	}

	line := b.render(pr)
	if p.tty {
		lipgloss.Fprint(p.out, "\r"+line)
		b.open = true
		return
	}
	if pr.Total > 0 && pr.Current >= pr.Total && !b.printed {
		p.println(line)
		b.printed = true
	}
}

// finishLine terminates an in-place bar.
func (b *progressBar) finishLine() {
	if b.open {
		fmt.Fprintln(b.printer.out)
		b.open = false
	}
}

func phaseTitle(phase git.Phase) string {
	switch phase {
	case git.PhaseReceiving:
		return "Receiving objects"
	case git.PhaseResolving:
		return "Resolving deltas"
	case git.PhaseSending:
		return "Sending objects"
	default:
		return phase.String()
	}
}

// render formats "[title] ██████░░░░ cur/total size" to fit the width.
func (b *progressBar) render(pr git.Progress) string {
	label := "[" + phaseTitle(pr.Phase) + "]"
	counts := fmt.Sprintf("%d/%d", pr.Current, pr.Total)

	size := b.printer.width - ansi.StringWidth(label) - len(counts) - 3
	if pr.Throughput != "" {
		size -= len(pr.Throughput) + 1
	}
	size = min(max(size, 10), 50)

	filled := min(size*pr.Percent()/100, size)
	bar := green.Render(strings.Repeat("█", filled)) + faint.Render(strings.Repeat("░", size-filled))

	line := label + " " + bar + " " + counts
	if pr.Throughput != "" {
		line += " " + faint.Render(pr.Throughput)
	}
	return line
}
