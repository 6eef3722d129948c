package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/phantom-data/phantom.report/internal/config"
	"github.com/phantom-data/phantom.report/internal/db"
	"github.com/phantom-data/phantom.report/internal/qa"
	"github.com/phantom-data/phantom.report/internal/report"
	"github.com/phantom-data/phantom.report/internal/timeutil"
	"github.com/phantom-data/phantom.report/internal/version"
	"github.com/phantom-data/phantom.report/internal/volume"
)

// pipelineFromConfig assembles the analysis pipeline from the loaded config.
func pipelineFromConfig(cfg *config.Config) (*qa.Pipeline, error) {
	axis, err := volume.ParseAxis(cfg.GetPhaseEncodeAxis())
	if err != nil {
		return nil, err
	}
	return &qa.Pipeline{
		PhaseAxis:  axis,
		MaskOpts:   cfg.MaskOptions(),
		Thresholds: cfg.GetThresholds(),
	}, nil
}

// processScan analyses one scan directory end to end: metrics, plots,
// per-scan report and database record.
func processScan(pl *qa.Pipeline, store *db.DB, dir string) (*qa.Result, error) {
	res, err := pl.Run(dir)
	if err != nil {
		return nil, err
	}

	if err := report.PlotTimeSeries(res.Dir, res.TimeSeries, res.Detrend); err != nil {
		return nil, fmt.Errorf("plot time series: %w", err)
	}

	runID := uuid.NewString()
	if err := report.WriteScanReport(res, runID); err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.RecordRun(res.Info, runID, res.Evaluations); err != nil {
			return nil, err
		}
	}

	status := "PASS"
	if !qa.AllPass(res.Evaluations) {
		status = "FAIL"
	}
	log.Printf("%s: %s (scanner %s, %s)", dir, status, res.Info.ScannerSerial, res.Info.AcqDate)
	return res, nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config file")
	dir := fs.String("dir", "", "scan directory to analyse")
	noDB := fs.Bool("no-db", false, "skip recording metrics in the database")
	fs.Parse(args)

	if *dir == "" {
		return errors.New("-dir is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	pl, err := pipelineFromConfig(cfg)
	if err != nil {
		return err
	}

	var store *db.DB
	if !*noDB {
		store, err = db.New(cfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer store.Close()
	}

	_, err = processScan(pl, store, *dir)
	return err
}

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config file")
	root := fs.String("root", "", "data root (overrides config data_root)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	dataRoot := cfg.GetDataRoot()
	if *root != "" {
		dataRoot = *root
	}
	if dataRoot == "" {
		return errors.New("no data root: set -root or data_root in the config")
	}

	pl, err := pipelineFromConfig(cfg)
	if err != nil {
		return err
	}
	store, err := db.New(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	scans, err := discoverScans(dataRoot)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		return fmt.Errorf("no scan directories under %s", dataRoot)
	}
	log.Printf("batch: %d scan directories under %s", len(scans), dataRoot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scan directories are independent, so fan out across a bounded pool.
	// Database writes serialise inside RecordRun's transaction.
	var (
		wg     sync.WaitGroup
		sem    = make(chan struct{}, cfg.GetWorkers())
		mu     sync.Mutex
		failed int
	)
	for _, dir := range scans {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(dir string) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := processScan(pl, store, dir); err != nil {
				log.Printf("%s: %v", dir, err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(dir)
	}
	wg.Wait()

	if err := writeTrendPages(store, dataRoot); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(scans))
	}
	return nil
}

func cmdTrends(args []string) error {
	fs := flag.NewFlagSet("trends", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config file")
	root := fs.String("root", "", "data root (overrides config data_root)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	dataRoot := cfg.GetDataRoot()
	if *root != "" {
		dataRoot = *root
	}
	if dataRoot == "" {
		return errors.New("no data root: set -root or data_root in the config")
	}

	store, err := db.New(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	return writeTrendPages(store, dataRoot)
}

func cmdMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	store, err := db.Open(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	switch action {
	case "up":
		return store.MigrateUp()
	case "down":
		return store.MigrateDown()
	case "version":
		v, dirty, err := store.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Printf("schema version %d (dirty=%v)\n", v, dirty)
		return nil
	}
	return fmt.Errorf("unknown migrate action %q (want up, down or version)", action)
}

func cmdVersion(args []string) error {
	fmt.Printf("phantom-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	return nil
}

// discoverScans walks <root>/<scanner serial>/<YYYYMMDD> and returns the
// scan directories in sorted order. Entries whose names do not parse as
// scan dates are skipped.
func discoverScans(root string) ([]string, error) {
	scanners, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data root %s: %w", root, err)
	}

	var scans []string
	for _, sc := range scanners {
		if !sc.IsDir() {
			continue
		}
		dates, err := os.ReadDir(filepath.Join(root, sc.Name()))
		if err != nil {
			return nil, err
		}
		for _, d := range dates {
			if !d.IsDir() {
				continue
			}
			if _, err := timeutil.ParseScanDate(d.Name()); err != nil {
				continue
			}
			scans = append(scans, filepath.Join(root, sc.Name(), d.Name()))
		}
	}
	sort.Strings(scans)
	return scans, nil
}

// writeTrendPages regenerates the longitudinal trend page for every scanner
// recorded in the database.
func writeTrendPages(store *db.DB, dataRoot string) error {
	serials, err := store.Scanners()
	if err != nil {
		return err
	}
	for _, serial := range serials {
		dir := filepath.Join(dataRoot, serial)
		if _, err := os.Stat(dir); err != nil {
			log.Printf("trends: skipping %s: %v", serial, err)
			continue
		}
		if err := report.WriteTrendReport(store, serial, dir); err != nil {
			return err
		}
		n, err := store.ScanCount(serial)
		if err != nil {
			return err
		}
		log.Printf("trends: %s: %d sessions charted", serial, n)
	}
	return nil
}
