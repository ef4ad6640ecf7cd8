package lasprep

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lidarhd/lasprep/las"
	"github.com/pkg/errors"
)

// Config holds the settings of a preparation run.
type Config struct {
	ColorizedDir string
	SplittedDir  string
	Resolution   string

	// Split cuts every colorized tile into sub-tiles under SplittedDir.
	Split         bool
	SubtileLength float64
	SubtileBuffer float64

	TrainFrac float64
	ValFrac   float64
	// Seed fixes the shuffle of the split assignment. Zero picks a fresh
	// seed for every run.
	Seed int64

	ContinueOnError bool
	Resume          bool
	DataFormat      int
	DryRun          bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ColorizedDir:  "./data/colorized/",
		SplittedDir:   "./data/splitted/",
		Resolution:    Resolution10cm,
		SubtileLength: DefaultSubtileLength,
		TrainFrac:     0.6,
		ValFrac:       0.2,
	}
}

// Validate checks the configuration for values no run could succeed with.
func (c Config) Validate() error {
	if c.ColorizedDir == "" {
		return errors.New("colorized directory must be set")
	}
	if c.Split && c.SplittedDir == "" {
		return errors.New("splitted directory must be set when splitting")
	}
	if !ValidResolution(c.Resolution) {
		return errors.Errorf("unknown resolution %q, want one of %v", c.Resolution, Resolutions)
	}
	if c.TrainFrac < 0 || c.ValFrac < 0 || c.TrainFrac+c.ValFrac > 1 {
		return errors.Errorf("train and val fractions must be positive and sum to at most 1, got %v and %v", c.TrainFrac, c.ValFrac)
	}
	if c.Split && c.SubtileLength <= 0 {
		return errors.Errorf("sub-tile length must be positive, got %v", c.SubtileLength)
	}
	if c.SubtileBuffer < 0 {
		return errors.Errorf("sub-tile buffer can't be negative, got %v", c.SubtileBuffer)
	}
	if c.DataFormat != 0 && (c.DataFormat < 0 || c.DataFormat > 255 || !las.FormatHasColor(uint8(c.DataFormat))) {
		return errors.Errorf("point format %d carries no RGB", c.DataFormat)
	}
	if c.Resume && c.Seed == 0 {
		return errors.New("resuming needs a fixed seed, otherwise tiles would change split")
	}
	return nil
}

// Preparer turns tile archives and orthoimages into a colorized and
// optionally split dataset.
type Preparer struct {
	Matcher   *Matcher
	Assigner  *Assigner
	Extractor *Extractor
	Colorizer *Colorizer
	// Splitter is nil when tiles are not split.
	Splitter *Splitter

	Ledger Ledger
	Stats  Statter
	Log    Logger

	ManifestPath    string
	ContinueOnError bool
	Resume          bool
	DryRun          bool
}

// PreparerOption is a functional option for NewPreparer.
type PreparerOption func(p *Preparer)

// OptPrepLedger sets the ledger tile records are kept in.
func OptPrepLedger(l Ledger) PreparerOption {
	return func(p *Preparer) {
		p.Ledger = l
	}
}

// OptPrepStatter sets the stats collector.
func OptPrepStatter(s Statter) PreparerOption {
	return func(p *Preparer) {
		p.Stats = s
	}
}

// OptPrepLogger sets the logger of the preparer and of every stage.
func OptPrepLogger(l Logger) PreparerOption {
	return func(p *Preparer) {
		p.Log = l
	}
}

// OptPrepRand makes the split assignment draw from r instead of a source
// seeded from the configuration.
func OptPrepRand(r *rand.Rand) PreparerOption {
	return func(p *Preparer) {
		p.Assigner.rand = r
		p.Assigner.seed = 0
	}
}

// NewPreparer wires every stage for cfg, running pipelines on engine.
func NewPreparer(cfg Config, engine Engine, opts ...PreparerOption) (*Preparer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	matcher, err := NewMatcher(cfg.Resolution)
	if err != nil {
		return nil, errors.Wrap(err, "creating matcher")
	}
	var aopts []AssignerOption
	if cfg.Seed != 0 {
		aopts = append(aopts, OptAssignerSeed(cfg.Seed))
	}
	assigner, err := NewAssigner(cfg.TrainFrac, cfg.ValFrac, aopts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating assigner")
	}

	p := &Preparer{
		Matcher:         matcher,
		Assigner:        assigner,
		Extractor:       NewExtractor(cfg.ColorizedDir),
		Colorizer:       NewColorizer(engine),
		Ledger:          NewMapLedger(),
		Stats:           NopStatter{},
		Log:             NopLogger{},
		ManifestPath:    filepath.Join(cfg.ColorizedDir, ManifestName),
		ContinueOnError: cfg.ContinueOnError,
		Resume:          cfg.Resume,
		DryRun:          cfg.DryRun,
	}
	p.Colorizer.DataFormat = cfg.DataFormat
	if cfg.Split {
		p.Splitter = NewSplitter(engine, cfg.SplittedDir)
		p.Splitter.Length = cfg.SubtileLength
		p.Splitter.Buffer = cfg.SubtileBuffer
	}
	for _, opt := range opts {
		opt(p)
	}

	p.Extractor.Log = p.Log
	p.Colorizer.Log = p.Log
	if p.Splitter != nil {
		p.Splitter.Log = p.Log
	}
	return p, nil
}

// Result summarizes a run.
type Result struct {
	RunID string
	// Seed is the seed of the split shuffle, 0 when the source was injected
	// with OptPrepRand.
	Seed     int64
	Manifest *Manifest
	// Planned holds the split assignment; it is all a dry run produces.
	Planned   *Assignment
	Processed int
	Skipped   int
	// Failed lists the tiles which failed when the run continued on error.
	Failed RunErrors
}

// Run matches every tile to its orthoimage, assigns tiles to splits and
// then prepares them one at a time in train, val, test order. Matching
// errors abort the run before any file is written. A tile failure aborts the
// run unless ContinueOnError is set, in which case the failures are
// returned as RunErrors once every other tile is done. The manifest is
// written whenever the run gets to the end.
func (p *Preparer) Run(ctx context.Context, tiles, orthos []string) (*Result, error) {
	matched, err := p.Matcher.MatchAll(tiles, orthos)
	if err != nil {
		return nil, errors.Wrap(err, "matching tiles to orthoimages")
	}
	orthoOf := make(map[string]string, len(tiles))
	for i, tile := range tiles {
		orthoOf[tile] = matched[i]
	}

	res := &Result{
		RunID:    uuid.New().String(),
		Seed:     p.Assigner.Seed(),
		Manifest: NewManifest(),
		Planned:  p.Assigner.Assign(tiles),
	}
	if res.Seed != 0 {
		p.Log.Printf("run %s: %d tiles, split seed %d", res.RunID, len(tiles), res.Seed)
	} else {
		p.Log.Printf("run %s: %d tiles, split seed unknown (injected source)", res.RunID, len(tiles))
	}
	for _, s := range Splits {
		p.Log.Printf("%s: %d tiles", s, len(res.Planned.Group(s)))
	}

	if p.DryRun {
		err := res.Planned.Each(func(split Split, group []string) error {
			for _, tile := range group {
				if err := ctx.Err(); err != nil {
					return err
				}
				p.Log.Printf("would prepare %s with %s as %s", filepath.Base(tile), filepath.Base(orthoOf[tile]), split)
			}
			return nil
		})
		return res, err
	}

	if p.Splitter != nil {
		if err := os.MkdirAll(p.Splitter.OutputDir, 0755); err != nil {
			return nil, errors.Wrap(err, "making splitted directory")
		}
	}

	err = res.Planned.Each(func(split Split, group []string) error {
		for _, tile := range group {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := ExtractIdentifier(tile)
			if err != nil {
				return errors.Wrapf(err, "tile %s", tile)
			}
			rec := &TileRecord{
				Identifier:  id,
				ArchivePath: tile,
				OrthoPath:   orthoOf[tile],
				Split:       split,
				Status:      StatusPending,
				RunID:       res.RunID,
			}
			skipped, err := p.prepareTile(ctx, rec)
			if err != nil {
				terr := &TileError{Identifier: id, ArchivePath: tile, Err: err}
				p.Stats.Count("tiles.failed", 1, 1)
				p.Log.Printf("failed %v", terr)
				rec.Status = StatusFailed
				rec.Error = err.Error()
				if lerr := p.putRecord(rec); lerr != nil {
					p.Log.Printf("recording failure of %s: %v", id, lerr)
				}
				if !p.ContinueOnError {
					return terr
				}
				res.Failed = append(res.Failed, terr)
				continue
			}
			if skipped {
				res.Skipped++
			} else {
				res.Processed++
			}
			res.Manifest.Add(rec.Basename, split)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	if err := res.Manifest.WriteFile(p.ManifestPath); err != nil {
		return res, errors.Wrap(err, "writing manifest")
	}
	p.Log.Printf("run %s: prepared %d tiles, skipped %d, failed %d; manifest at %s",
		res.RunID, res.Processed, res.Skipped, len(res.Failed), p.ManifestPath)
	if len(res.Failed) > 0 {
		return res, res.Failed
	}
	return res, nil
}

// prepareTile extracts, colorizes and splits one tile, filling in rec as it
// goes. It reports whether the tile was skipped because a previous run
// already prepared it.
func (p *Preparer) prepareTile(ctx context.Context, rec *TileRecord) (skipped bool, err error) {
	if p.Resume {
		prev, err := p.Ledger.Get(rec.Identifier)
		if err != nil {
			return false, errors.Wrap(err, "reading ledger")
		}
		if prev != nil && prev.Status == StatusDone {
			if prev.Split != rec.Split {
				return false, errors.Errorf("tile was prepared as %s but is now assigned to %s", prev.Split, rec.Split)
			}
			rec.Basename = prev.Basename
			rec.Subtiles = prev.Subtiles
			p.Stats.Count("tiles.skipped", 1, 1)
			p.Log.Debugf("skipping %s, done in run %s", rec.Identifier, prev.RunID)
			return true, nil
		}
	}
	if err := p.putRecord(rec); err != nil {
		return false, err
	}

	start := time.Now()
	lasPath, err := p.Extractor.Extract(rec.ArchivePath)
	if err != nil {
		return false, errors.Wrap(err, "extracting")
	}
	p.Stats.Timing("tile.extract", time.Since(start), 1)
	rec.Basename = filepath.Base(lasPath)

	start = time.Now()
	if err := p.Colorizer.Colorize(ctx, lasPath, rec.OrthoPath); err != nil {
		return false, errors.Wrap(err, "colorizing")
	}
	p.Stats.Timing("tile.colorize", time.Since(start), 1)

	if p.Splitter != nil {
		start = time.Now()
		template, err := p.Splitter.Template(rec.Split, rec.Identifier)
		if err != nil {
			return false, err
		}
		subtiles, err := p.Splitter.Split(ctx, lasPath, template)
		if err != nil {
			return false, errors.Wrap(err, "splitting")
		}
		p.Stats.Timing("tile.split", time.Since(start), 1)
		p.Stats.Count("subtiles.written", int64(len(subtiles)), 1)
		rec.Subtiles = len(subtiles)
	}

	rec.Status = StatusDone
	if err := p.putRecord(rec); err != nil {
		return false, err
	}
	p.Stats.Count("tiles.processed", 1, 1)
	p.Log.Printf("prepared %s as %s (%s)", rec.Identifier, rec.Split, rec.Basename)
	return false, nil
}

func (p *Preparer) putRecord(rec *TileRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	return errors.Wrap(p.Ledger.Put(rec), "writing ledger")
}
