// Command seedfit fits track seeds from hit chains.
//
// Input is a JSON document of hits and chains (chains reference hits by
// their position in the hits array). Output is a JSON document of track
// records and rejections.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/trackfit/internal/config"
	"github.com/banshee-data/trackfit/internal/debug"
	"github.com/banshee-data/trackfit/internal/field"
	"github.com/banshee-data/trackfit/internal/fsutil"
	"github.com/banshee-data/trackfit/internal/monitoring"
	"github.com/banshee-data/trackfit/internal/seeding"
	"github.com/banshee-data/trackfit/internal/units"
	"github.com/banshee-data/trackfit/internal/version"
)

var (
	configPath = flag.String("config", "", "Tuning config (.json, .yaml); built-in defaults when empty")
	inputPath  = flag.String("input", "", "Input hits and chains (JSON)")
	outputPath = flag.String("output", "", "Output file; stdout when empty")
	workers    = flag.Int("workers", -1, "Parallel workers (-1 uses the config, 0 uses GOMAXPROCS)")
	unitsFlag  = flag.String("units", "", "Momentum units for output (gev, mev); config value when empty")
	verbosity  = flag.Int("v", -1, "Verbosity (-1 uses the config)")
	withDebug  = flag.Bool("debug", false, "Include per-step diagnostics in the output")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}
	if *inputPath == "" {
		log.Fatal("Input file is required")
	}
	opts := options{
		ConfigPath: *configPath,
		InputPath:  *inputPath,
		OutputPath: *outputPath,
		Workers:    *workers,
		Units:      *unitsFlag,
		Verbosity:  *verbosity,
		Debug:      *withDebug,
	}
	if err := run(context.Background(), fsutil.OSFileSystem{}, opts, os.Stdout); err != nil {
		log.Fatalf("seedfit: %v", err)
	}
}

type options struct {
	ConfigPath string
	InputPath  string
	OutputPath string
	Workers    int
	Units      string
	Verbosity  int
	Debug      bool
}

// input is the document read from -input.
type input struct {
	Hits   []inputHit  `json:"hits"`
	Chains [][]int     `json:"chains"`
	Field  *inputField `json:"field,omitempty"`
}

type inputHit struct {
	Layer uint8   `json:"layer"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	seeding.LocalError
}

// inputField selects a field map. Ignored when the config uses a constant
// field.
type inputField struct {
	Type string `json:"type"` // "constant", "solenoid" or "grid"

	Tesla      float64 `json:"tesla,omitempty"`
	HalfLength float64 `json:"half_length,omitempty"`
	Fringe     float64 `json:"fringe,omitempty"`

	R      []float64   `json:"r,omitempty"`
	Z      []float64   `json:"z,omitempty"`
	Values [][]float64 `json:"values,omitempty"`
}

func (f *inputField) fieldMap() (field.Map, error) {
	if f == nil {
		return nil, nil
	}
	switch f.Type {
	case "constant":
		return field.Constant(f.Tesla), nil
	case "solenoid":
		return field.Solenoid{Central: f.Tesla, HalfLength: f.HalfLength, Fringe: f.Fringe}, nil
	case "grid":
		return field.NewRZGrid(f.R, f.Z, f.Values)
	default:
		return nil, fmt.Errorf("unknown field type %q", f.Type)
	}
}

// output is the document written to -output.
type output struct {
	RunID      string          `json:"run_id"`
	Units      string          `json:"units"`
	Summary    seeding.Summary `json:"summary"`
	Records    []outputRecord  `json:"records"`
	Rejections []outputReject  `json:"rejections"`
	Debug      *debug.Report   `json:"debug,omitempty"`
}

type outputRecord struct {
	X0           float64   `json:"x0"`
	Y0           float64   `json:"y0"`
	Z0           float64   `json:"z0"`
	Slope        float64   `json:"slope"`
	QOverR       float64   `json:"q_over_r"`
	Pt           float64   `json:"pt"`
	PtErr        float64   `json:"pt_err"`
	Phi          float64   `json:"phi"`
	PhiErr       float64   `json:"phi_err"`
	ZErr         float64   `json:"z_err"`
	Curvature    float64   `json:"curvature"`
	CurvatureErr float64   `json:"curvature_err"`
	Chi2         float64   `json:"chi2"`
	NDF          int       `json:"ndf"`
	Cov          []float64 `json:"cov"`
	Hits         []int     `json:"hits"`
}

type outputReject struct {
	Chain  int    `json:"chain"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func loadConfig(fsys fsutil.FileSystem, opts options) (*config.TuningConfig, error) {
	if opts.ConfigPath == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfigFS(fsys, opts.ConfigPath)
}

func run(ctx context.Context, fsys fsutil.FileSystem, opts options, stdout io.Writer) error {
	tuning, err := loadConfig(fsys, opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	momentumUnits := tuning.GetMomentumUnits()
	if opts.Units != "" {
		if !units.IsValid(opts.Units) {
			return fmt.Errorf("invalid units %q, must be one of: %s", opts.Units, units.GetValidUnitsString())
		}
		momentumUnits = opts.Units
	}
	level := tuning.GetVerbosity()
	if opts.Verbosity >= 0 {
		level = opts.Verbosity
	}
	nWorkers := tuning.GetWorkers()
	if opts.Workers >= 0 {
		nWorkers = opts.Workers
	}

	data, err := fsys.ReadFile(opts.InputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var in input
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parse input %s: %w", opts.InputPath, err)
	}

	positions := make(seeding.PositionMap, len(in.Hits))
	errs := make(seeding.ErrorMap, len(in.Hits))
	keyIndex := make(map[seeding.HitKey]int, len(in.Hits))
	keys := make([]seeding.HitKey, len(in.Hits))
	for i, h := range in.Hits {
		k := seeding.NewHitKey(h.Layer, uint32(i))
		keys[i] = k
		keyIndex[k] = i
		positions[k] = seeding.Point3{X: h.X, Y: h.Y, Z: h.Z}
		errs[k] = h.LocalError
	}
	chains := make([][]seeding.HitKey, len(in.Chains))
	for c, refs := range in.Chains {
		chain := make([]seeding.HitKey, len(refs))
		for j, ref := range refs {
			if ref < 0 || ref >= len(keys) {
				return fmt.Errorf("chain %d references hit %d, have %d hits", c, ref, len(keys))
			}
			chain[j] = keys[ref]
		}
		chains[c] = chain
	}

	fm, err := in.Field.fieldMap()
	if err != nil {
		return fmt.Errorf("field: %w", err)
	}

	logger := monitoring.NewLogger("[Seedfit] ", level)
	if logger.Enabled(monitoring.Warning) {
		logger.Infof("%s: %d hits, %d chains, %d workers", version.String(), len(in.Hits), len(chains), nWorkers)
	}
	fitter := seeding.NewFitter(seeding.FitterConfigFromTuning(tuning), positions, errs, fm)
	fitter.SetLogger(logger)
	var collector *debug.Collector
	if opts.Debug {
		collector = debug.NewCollector()
		collector.SetEnabled(true)
		fitter.SetDebugCollector(collector)
	}

	var res seeding.Result
	if nWorkers == 1 {
		res = fitter.Fit(chains)
	} else {
		res, err = fitter.FitParallel(ctx, chains, nWorkers)
		if err != nil {
			return err
		}
	}
	logger.Infof("run %s: %d chains, %d accepted", res.Summary.RunID, res.Summary.Chains, res.Summary.Accepted)

	out := output{
		RunID:      res.Summary.RunID.String(),
		Units:      momentumUnits,
		Summary:    res.Summary,
		Records:    make([]outputRecord, 0, len(res.Records)),
		Rejections: make([]outputReject, 0, len(res.Rejections)),
	}
	for _, r := range res.Records {
		hits := make([]int, 0, r.NHits())
		for _, k := range r.Keys() {
			hits = append(hits, keyIndex[k])
		}
		out.Records = append(out.Records, outputRecord{
			X0:           r.X0,
			Y0:           r.Y0,
			Z0:           r.Z0,
			Slope:        r.Slope,
			QOverR:       r.QOverR,
			Pt:           units.ConvertMomentum(r.Pt, momentumUnits),
			PtErr:        units.ConvertMomentum(r.PtErr, momentumUnits),
			Phi:          r.Phi,
			PhiErr:       r.PhiErr,
			ZErr:         r.ZErr,
			Curvature:    r.Curvature,
			CurvatureErr: r.CurvatureErr,
			Chi2:         r.Chi2,
			NDF:          r.NDF,
			Cov:          r.Cov[:],
			Hits:         hits,
		})
	}
	for _, re := range res.Rejections {
		out.Rejections = append(out.Rejections, outputReject{
			Chain:  re.Chain,
			Kind:   re.Kind.Error(),
			Detail: re.Error(),
		})
	}
	if collector != nil {
		out.Debug = collector.Emit()
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	encoded = append(encoded, '\n')
	if opts.OutputPath == "" {
		_, err = stdout.Write(encoded)
		return err
	}
	if err := fsys.WriteFile(opts.OutputPath, encoded, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
