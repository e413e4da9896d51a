package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{" _        _     _                 ", "#38bdf8"},
	{"| |_ __ _| |__ | | ___  __ _ _   _", "#22d3ee"},
	{"| __/ _` | '_ \\| |/ _ \\/ _` | | | |", "#2dd4bf"},
	{"| || (_| | |_) | |  __/ (_| | |_| |", "#34d399"},
	{" \\__\\__,_|_.__/|_|\\___|\\__,_|\\__,_|", "#4ade80"},
}

// PrintBanner writes the tableau banner and the listen address to w.
// Colors are dropped when w is not a color terminal.
func PrintBanner(w io.Writer, version, addr string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s\n", out.String(version).Faint(), out.String("http://localhost"+addr).Underline())
	fmt.Fprintln(w)
}
