// Relift CLI - drives the simplification scheduler over function images
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/relift/action"
	"github.com/chazu/relift/ir"
	"github.com/chazu/relift/ir/image"
	"github.com/chazu/relift/manifest"
	"github.com/chazu/relift/rules"
	"github.com/chazu/relift/statdb"
)

var log = commonlog.GetLogger("relift")

// logSink routes transformation diagnostics into the logger.
type logSink struct{}

func (logSink) Printf(format string, args ...any) {
	log.Infof(format, args...)
}

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	pipelineName := flag.String("pipeline", "", "Pipeline to run (default from relift.toml, else 'decompile')")
	maxRestarts := flag.Int("max-restarts", 0, "Restart budget (default from relift.toml, else 5)")
	showStats := flag.Bool("stats", false, "Print per-rule statistics after each function")
	configDir := flag.String("C", ".", "Directory to search for relift.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: relift [options] image.fnimg...\n\n")
		fmt.Fprintf(os.Stderr, "Simplifies the lifted functions in the given images to a fixed point.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  relift main.fnimg                  # Run the configured pipeline\n")
		fmt.Fprintf(os.Stderr, "  relift -pipeline normalize a.fnimg # Run a specific pipeline\n")
		fmt.Fprintf(os.Stderr, "  relift -stats -v a.fnimg b.fnimg   # Report rule effectiveness\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	m, err := manifest.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading relift.toml: %v\n", err)
		os.Exit(1)
	}

	budget := *maxRestarts
	if budget <= 0 && m != nil {
		budget = m.Scheduler.MaxRestarts
	}

	reg, err := rules.NewRegistry(budget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building rule registry: %v\n", err)
		os.Exit(1)
	}
	if m != nil {
		if err := m.Apply(reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying relift.toml: %v\n", err)
			os.Exit(1)
		}
	}
	if *pipelineName != "" {
		if err := reg.SetCurrent(*pipelineName); err != nil {
			fmt.Fprintf(os.Stderr, "Error selecting pipeline: %v\n", err)
			os.Exit(1)
		}
	}

	var store *statdb.Store
	if m != nil && m.DatabasePath() != "" {
		store, err = statdb.Open(m.DatabasePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening stats database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	name, _ := reg.Current()
	failed := false
	for _, path := range flag.Args() {
		if err := processImage(reg, name, path, store, *showStats); err != nil {
			log.Errorf("%s: %v", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func processImage(reg *action.Registry, pipeline, path string, store *statdb.Store, showStats bool) error {
	fn, err := image.ReadFile(path)
	if err != nil {
		return err
	}
	fn.SetMessageSink(logSink{})

	// Each function gets its own tree so statistics are per run.
	tree, err := reg.CloneCurrentTree()
	if err != nil {
		return err
	}

	total := driveToFixedPoint(tree, fn)
	log.Infof("%s: %d ops, %d changes", fn.Name(), fn.NumOps(), total)
	for _, w := range fn.Warnings() {
		log.Noticef("%s: %s", fn.Name(), w)
	}

	if showStats {
		tree.PrintStatistics(os.Stdout)
	}
	if store != nil {
		runID, err := store.RecordRun(fn.Name(), pipeline, total, tree)
		if err != nil {
			return err
		}
		log.Infof("%s: recorded run %s", fn.Name(), runID)
	}
	return image.WriteFile(path, fn)
}

// driveToFixedPoint repeatedly performs the tree until a pass makes no
// changes. Breakpoints are a debugger feature; in batch mode a pause is
// simply resumed.
func driveToFixedPoint(tree action.Action, fn *ir.Function) int {
	total := 0
	for {
		res := tree.Perform(fn)
		if res == action.Paused {
			continue
		}
		if res == 0 {
			return total
		}
		total += res
	}
}
