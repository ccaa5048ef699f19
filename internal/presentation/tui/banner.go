package tui

import "fmt"

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _       _   _", "#34d399"},
	{" | |_ ___| |_| |__   ___ _ __", "#2dd4bf"},
	{" | __/ _ \\ __| '_ \\ / _ \\ '__|", "#22d3ee"},
	{" | ||  __/ |_| | | |  __/ |", "#38bdf8"},
	{"  \\__\\___|\\__|_| |_|\\___|_|", "#60a5fa"},
}

// PrintBanner writes the tether banner to the printer's writer.
func (p *Printer) PrintBanner() {
	fmt.Fprintln(p.w)
	for _, l := range bannerLines {
		fmt.Fprintln(p.w, p.out.String(l.text).Foreground(p.out.Color(l.color)))
	}
	fmt.Fprintln(p.w)
}
