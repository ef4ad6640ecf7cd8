// Package prepare wires the lasprep stages, their backends and the command
// line configuration into the prepare command.
package prepare

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/aws/s3"
	"github.com/lidarhd/lasprep/boltdb"
	"github.com/lidarhd/lasprep/file"
	"github.com/lidarhd/lasprep/leveldb"
	"github.com/lidarhd/lasprep/pdal"
	"github.com/lidarhd/lasprep/report"
	"github.com/lidarhd/lasprep/termstat"
	"github.com/pkg/errors"
)

// Ledger backends.
const (
	LedgerNone    = "none"
	LedgerBolt    = "bolt"
	LedgerLevelDB = "leveldb"
)

// Main holds all config for a preparation run.
type Main struct {
	InputDir        string  `help:"Directory holding the las/ and orthos/ folders."`
	ColorizedDir    string  `help:"Directory receiving the colorized tiles and the manifest."`
	SplittedDir     string  `help:"Directory receiving sub-tiles, one folder per split and tile."`
	Resolution      string  `help:"Resolution tag of the orthoimages to color with: 0.1 or 2."`
	Split           bool    `help:"Cut every colorized tile into square sub-tiles."`
	SubtileLength   float64 `help:"Side of a sub-tile in the units of the point cloud."`
	SubtileBuffer   float64 `help:"Overlap added on each side of a sub-tile."`
	TrainFrac       float64 `help:"Fraction of tiles assigned to train."`
	ValFrac         float64 `help:"Fraction of tiles assigned to val. Test gets the rest."`
	Seed            int64   `help:"Seed of the split shuffle. 0 picks a fresh one and logs it."`
	ContinueOnError bool    `help:"Keep going when a tile fails and report every failure at the end."`
	Resume          bool    `help:"Skip tiles the ledger records as done. Needs a fixed seed and a persistent ledger."`
	DataFormat      int     `help:"LAS point format of the colorized tiles. 0 lets PDAL choose."`
	PDALPath        string  `flag:"pdal-path" help:"Path to the pdal executable."`
	Ledger          string  `help:"Tile ledger backend: none, bolt or leveldb."`
	LedgerPath      string  `help:"Ledger file (bolt) or directory (leveldb). Empty puts it in the colorized directory."`
	S3Bucket        string  `flag:"s3-bucket" help:"Download missing inputs from this S3 bucket first."`
	S3Prefix        string  `flag:"s3-prefix" help:"Key prefix of the las/ and orthos/ folders in the bucket."`
	S3Region        string  `flag:"s3-region" help:"AWS region of the bucket."`
	Report          bool    `help:"Render a chart of tiles per split next to the manifest."`
	Stats           bool    `help:"Print running counters to stderr."`
	LogPath         string  `help:"Log file to write to. Empty means stderr."`
	Verbose         bool    `help:"Enable verbose logging."`
	DryRun          bool    `help:"Match and assign tiles, print the plan and stop."`

	// Engine runs the pipelines. Nil means pdal at PDALPath.
	Engine lasprep.Engine `flag:"-"`

	log    lasprep.Logger
	ledger lasprep.Ledger
	stats  lasprep.Statter
	closer []io.Closer
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	def := lasprep.DefaultConfig()
	return &Main{
		InputDir:      "./data/download/",
		ColorizedDir:  def.ColorizedDir,
		SplittedDir:   def.SplittedDir,
		Resolution:    def.Resolution,
		SubtileLength: def.SubtileLength,
		TrainFrac:     def.TrainFrac,
		ValFrac:       def.ValFrac,
		PDALPath:      pdal.DefaultPath,
		Ledger:        LedgerNone,
		S3Region:      "eu-west-3",
	}
}

// Config returns the lasprep configuration described by m.
func (m *Main) Config() lasprep.Config {
	return lasprep.Config{
		ColorizedDir:    m.ColorizedDir,
		SplittedDir:     m.SplittedDir,
		Resolution:      m.Resolution,
		Split:           m.Split,
		SubtileLength:   m.SubtileLength,
		SubtileBuffer:   m.SubtileBuffer,
		TrainFrac:       m.TrainFrac,
		ValFrac:         m.ValFrac,
		Seed:            m.Seed,
		ContinueOnError: m.ContinueOnError,
		Resume:          m.Resume,
		DataFormat:      m.DataFormat,
		DryRun:          m.DryRun,
	}
}

// Run prepares the dataset.
func (m *Main) Run(ctx context.Context) (err error) {
	start := time.Now()
	if err := m.setup(); err != nil {
		return errors.Wrap(err, "setting up")
	}
	defer func() {
		if cerr := m.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	layout := file.NewLayout(m.InputDir)
	if m.S3Bucket != "" {
		f, err := s3.NewFetcher(layout,
			s3.OptFetchBucket(m.S3Bucket),
			s3.OptFetchPrefix(m.S3Prefix),
			s3.OptFetchRegion(m.S3Region),
			s3.OptFetchLogger(m.log),
		)
		if err != nil {
			return errors.Wrap(err, "getting s3 fetcher")
		}
		res, err := f.Fetch(ctx)
		if err != nil {
			return errors.Wrap(err, "fetching inputs")
		}
		m.log.Printf("fetched %d files from s3://%s, %d already present", res.Downloaded, m.S3Bucket, res.Skipped)
	}

	tiles, err := layout.Tiles()
	if err != nil {
		return errors.Wrap(err, "discovering tiles")
	}
	orthos, err := layout.Orthos(m.Resolution)
	if err != nil {
		return errors.Wrap(err, "discovering orthoimages")
	}
	m.log.Printf("found %d tiles and %d orthoimages at resolution %s", len(tiles), len(orthos), m.Resolution)

	p, err := lasprep.NewPreparer(m.Config(), m.Engine,
		lasprep.OptPrepLedger(m.ledger),
		lasprep.OptPrepStatter(m.stats),
		lasprep.OptPrepLogger(m.log),
	)
	if err != nil {
		return errors.Wrap(err, "creating preparer")
	}
	res, err := p.Run(ctx, tiles, orthos)
	if _, ok := err.(lasprep.RunErrors); err != nil && !ok {
		return errors.Wrap(err, "preparing tiles")
	}
	runErr := err

	if m.Report && !m.DryRun {
		chart := filepath.Join(m.ColorizedDir, report.ChartName)
		if err := report.WriteSplitChart(chart, res.Manifest.Counts()); err != nil {
			return errors.Wrap(err, "writing report")
		}
		m.log.Printf("wrote %s", chart)
	}
	if runErr != nil {
		m.logFailures()
		return runErr
	}
	m.log.Printf("done in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func (m *Main) validate() error {
	if m.InputDir == "" {
		return errors.New("input directory must be set")
	}
	switch m.Ledger {
	case LedgerNone, LedgerBolt, LedgerLevelDB:
	default:
		return errors.Errorf("unknown ledger backend %q, want one of none, bolt, leveldb", m.Ledger)
	}
	if m.Resume && m.Ledger == LedgerNone {
		return errors.New("resuming needs a bolt or leveldb ledger")
	}
	return errors.Wrap(m.Config().Validate(), "invalid configuration")
}

func (m *Main) setup() error {
	if err := m.validate(); err != nil {
		return errors.Wrap(err, "validating configuration")
	}

	// setup logging
	var logOut io.Writer = os.Stderr
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		m.closer = append(m.closer, f)
		logOut = f
	}
	m.log = lasprep.NewLogger(logOut, m.Verbose)

	if m.Engine == nil {
		eng := pdal.NewEngine(m.PDALPath)
		eng.Log = m.log
		m.Engine = eng
	}

	if m.Stats {
		ts := termstat.NewCollector(os.Stderr, 2*time.Second)
		m.closer = append(m.closer, ts)
		m.stats = ts
	} else {
		m.stats = lasprep.NopStatter{}
	}

	if m.DryRun {
		m.ledger = lasprep.NewMapLedger()
		return nil
	}
	switch m.Ledger {
	case LedgerBolt:
		path := m.ledgerPath("ledger.db")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.Wrap(err, "making ledger directory")
		}
		l, err := boltdb.NewLedger(path)
		if err != nil {
			return errors.Wrap(err, "opening bolt ledger")
		}
		m.ledger = l
	case LedgerLevelDB:
		l, err := leveldb.NewLedger(m.ledgerPath("ledger"))
		if err != nil {
			return errors.Wrap(err, "opening leveldb ledger")
		}
		m.ledger = l
	default:
		m.ledger = lasprep.NewMapLedger()
	}
	m.closer = append(m.closer, m.ledger)
	return nil
}

func (m *Main) ledgerPath(name string) string {
	if m.LedgerPath != "" {
		return m.LedgerPath
	}
	return filepath.Join(m.ColorizedDir, name)
}

// logFailures lists the failed tiles the ledger knows of, including those
// left over from previous runs.
func (m *Main) logFailures() {
	lister, ok := m.ledger.(lasprep.Lister)
	if !ok {
		return
	}
	recs, err := lister.Records()
	if err != nil {
		m.log.Printf("listing ledger: %v", err)
		return
	}
	for _, rec := range recs {
		if rec.Status == lasprep.StatusFailed {
			m.log.Printf("failed: %s (%s): %s", rec.Identifier, rec.Split, rec.Error)
		}
	}
}

func (m *Main) close() error {
	var first error
	for i := len(m.closer) - 1; i >= 0; i-- {
		if err := m.closer[i].Close(); err != nil && first == nil {
			first = errors.Wrap(err, "closing")
		}
	}
	m.closer = nil
	return first
}
