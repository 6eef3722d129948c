// Command phantom-report analyses daily fMRI phantom scans: it aggregates
// the motion-corrected series, segments phantom/ghost/noise regions,
// computes stability metrics, evaluates them against acceptance thresholds
// and renders per-scan and longitudinal HTML reports.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"
)

const usageText = `usage: phantom-report <command> [flags]

commands:
  run      analyse a single scan directory
  batch    analyse every scan directory under the data root
  trends   regenerate longitudinal trend pages from the database
  migrate  apply or inspect database schema migrations
  version  print build information
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	os.Exit(2)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("phantom-report: ")

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "run":
		err = cmdRun(args)
	case "batch":
		err = cmdBatch(args)
	case "trends":
		err = cmdTrends(args)
	case "migrate":
		err = cmdMigrate(args)
	case "version":
		err = cmdVersion(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}
