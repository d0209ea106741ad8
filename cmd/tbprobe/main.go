// Command tbprobe describes a raw CSV export: canonical headers, inferred
// column kinds, missing counts and, with -source, a dry-run clean.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"tbetl/internal/config"
	"tbetl/internal/datasource/file"
	"tbetl/internal/probe"
)

var (
	flagFile      = flag.String("file", "data/raw/tb_owid.csv", "CSV file to probe")
	flagDelimiter = flag.String("delimiter", ",", "CSV field delimiter (single character)")
	flagSource    = flag.String("source", "", "dry-run the cleaning chain of this source (owid, who)")
	flagConfig    = flag.String("config", "", "config file supplying cleaning thresholds for the dry run")
	flagJSON      = flag.Bool("json", false, "print JSON instead of CSV lines")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fatalf("%v", err)
	}
	res, err := probe.Probe(context.Background(), file.NewLocal(*flagFile), probe.Options{
		Comma:    probe.DecodeDelimiter(*flagDelimiter),
		Source:   *flagSource,
		Cleaning: cfg.Cleaning,
	})
	if err != nil {
		fatalf("probe %s: %v", *flagFile, err)
	}

	body := res.Text()
	if *flagJSON {
		if body, err = res.JSON(); err != nil {
			fatalf("encode: %v", err)
		}
	}
	os.Stdout.Write(body)
	if len(res.Issues) > 0 {
		os.Exit(2)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
