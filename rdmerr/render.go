package rdmerr

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const indentStep = 2

// Render pretty-prints err and its causes, one layer per line, nesting each
// cause one level deeper and wrapping lines at width columns. A width of zero
// or less disables wrapping.
//
// Example:
//
//	error: push: Failed to update reference refs/heads/main with message: fetch first
//	  caused by: git push failed: ...
func Render(err error, width int) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	for depth, line := range layers(err) {
		label := "error: "
		if depth > 0 {
			label = "caused by: "
		}
		indent := strings.Repeat(" ", depth*indentStep)
		text := label + line
		if avail := width - len(indent); width > 0 && avail > 0 {
			text = ansi.Wordwrap(text, avail, "/")
		}
		for part := range strings.SplitSeq(text, "\n") {
			b.WriteString(indent)
			b.WriteString(part)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// layers flattens the error chain into rendered messages. Structured errors
// contribute their own text, delegating errors pass their prefix down to the
// next layer, and any other error ends the chain with its full message.
func layers(err error) []string {
	var out []string
	var prefix []string

	for err != nil {
		e, ok := err.(*Error)
		if !ok {
			out = append(out, joinPrefix(prefix, err.Error()))
			break
		}

		if e.Prefix != "" {
			prefix = append(prefix, string(e.Prefix))
		}
		if e.Text == "" {
			if e.Err == nil {
				out = append(out, joinPrefix(prefix, e.Kind.String()))
				break
			}
			err = e.Err
			continue
		}

		out = append(out, joinPrefix(prefix, e.Text))
		prefix = nil
		err = e.Err
	}
	return out
}

func joinPrefix(prefix []string, msg string) string {
	if len(prefix) == 0 {
		return msg
	}
	return strings.Join(prefix, ": ") + ": " + msg
}
