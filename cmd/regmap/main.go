//go:build !tinygo

// Command regmap prints the inter-core router address map for a board
// config: one generate register per target and one status register per
// (target, source) pair.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"smpcore/config"
	"smpcore/hal"
)

func writeMap(w io.Writer, cores int, l hal.RouterLayout) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TARGET\tREGISTER\tSOURCE\tADDRESS\tBIT\n")
	for target := 0; target < cores; target++ {
		fmt.Fprintf(tw, "%d\tgenerate\t-\t0x%08x\t%#x\n", target, l.GenerateAddr(target), uint32(1)<<l.DoorbellBit)
		for source := 0; source < cores; source++ {
			fmt.Fprintf(tw, "%d\tstatus\t%d\t0x%08x\t%#x\n", target, source, l.StatusAddr(target, source), uint32(1)<<source)
		}
	}
	return tw.Flush()
}

func run(w io.Writer, path string, cores int) error {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if cores > 0 {
		cfg.Cores = cores
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return writeMap(w, cfg.Cores, cfg.Port().Router)
}

func main() {
	var path string
	var cores int
	flag.StringVar(&path, "config", "", "Board config (YAML). Defaults to the simulator board.")
	flag.IntVar(&cores, "cores", 0, "Override the core count.")
	flag.Parse()

	if err := run(os.Stdout, path, cores); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
