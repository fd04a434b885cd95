// Command inspectprobe dumps what the converter sees in a probeinterface
// JSON file: probe name, electrode count, shank ids, contour size, and
// the shank thickness the reference table would supply.
package main

import (
	"flag"
	"fmt"
	"os"

	"pinpoint-converter/internal/probe"
	"pinpoint-converter/internal/refdata"
	"pinpoint-converter/internal/spikeif"
)

func main() {
	tablePath := flag.String("table", "", "probe reference CSV (default: embedded)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "[flags] <probe.json>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	src, err := spikeif.ParseFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var table *refdata.Table
	if *tablePath != "" {
		table, err = refdata.LoadFile(*tablePath)
	} else {
		table, err = refdata.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case src.Group != nil:
		g := src.Group
		fmt.Printf("Probe group: %s\n", g.Name)
		fmt.Printf("  Members:    %d\n", g.Members)
		fmt.Printf("  Electrodes: %d\n", len(g.Electrodes))
		fmt.Printf("  Contours:   %d\n", len(g.Contours))
		printThickness(table, g.Name)
	case src.Single != nil:
		d := src.Single
		fmt.Printf("Probe: %s\n", d.Name)
		if d.Manufacturer != "" {
			fmt.Printf("  Producer:   %s\n", d.Manufacturer)
		}
		fmt.Printf("  Electrodes: %d\n", len(d.Electrodes))
		fmt.Printf("  Shank ids:  %v\n", probe.ShankIDs(d.Electrodes))
		fmt.Printf("  Contour:    %d points\n", len(d.Contour))
		printThickness(table, d.Name)
	}
}

func printThickness(table *refdata.Table, name string) {
	if t, ok := table.ShankThickness(name); ok {
		fmt.Printf("  Thickness:  %g um\n", t)
	} else {
		fmt.Printf("  Thickness:  not in reference table\n")
	}
}
