package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the server banner with the running version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   _____ _           _   _           _   ", "#818cf8"},
		{"  / ____| |         | | | |         | |  ", "#a78bfa"},
		{" | |    | |__   __ _| |_| |__   ___ | |_ ", "#c084fc"},
		{" | |    | '_ \\ / _` | __| '_ \\ / _ \\| __|", "#e879f9"},
		{" | |____| | | | (_| | |_| |_) | (_) | |_ ", "#f472b6"},
		{"  \\_____|_| |_|\\__,_|\\__|_.__/ \\___/ \\__|", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintf(w, "  %s\n\n", termenv.String("version "+version).Faint())
}
