package seeding

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/banshee-data/trackfit/internal/debug"
	"github.com/banshee-data/trackfit/internal/field"
	"github.com/banshee-data/trackfit/internal/fit"
	"github.com/banshee-data/trackfit/internal/kalman"
	"github.com/banshee-data/trackfit/internal/monitoring"
	"github.com/banshee-data/trackfit/internal/units"
)

// DebugCollector receives per-chain diagnostics. *debug.Collector
// implements it; implementations used with FitParallel must be safe for
// concurrent use.
type DebugCollector interface {
	RecordSeed(rec debug.SeedRecord)
	RecordStep(rec debug.StepRecord)
	RecordRejection(rec debug.Rejection)
}

// Fitter fits hit chains into track records. Its collaborators are only
// read, so one Fitter may serve several goroutines.
type Fitter struct {
	cfg       FitterConfig
	positions PositionLookup
	errs      ErrorLookup
	field     field.Map
	errModel  ClusterErrorModel

	log   *monitoring.Logger
	debug DebugCollector
}

// NewFitter creates a fitter. errs may be nil when the config selects fixed
// cluster errors. fm may be nil when the config selects a constant field.
func NewFitter(cfg FitterConfig, positions PositionLookup, errs ErrorLookup, fm field.Map) *Fitter {
	return &Fitter{
		cfg:       cfg,
		positions: positions,
		errs:      errs,
		field:     field.Select(fm, cfg.UseConstField, cfg.ConstFieldTesla),
		errModel: ClusterErrorModel{
			UseFixed: cfg.UseFixedClusterError,
			Fixed:    cfg.FixedClusterError,
		},
	}
}

// SetLogger installs a diagnostic logger. nil silences the fitter.
func (f *Fitter) SetLogger(l *monitoring.Logger) { f.log = l }

// SetDebugCollector installs a collector for per-step diagnostics.
func (f *Fitter) SetDebugCollector(c DebugCollector) { f.debug = c }

// Config returns the fitter's configuration.
func (f *Fitter) Config() FitterConfig { return f.cfg }

// Summary counts the outcome of a batch.
type Summary struct {
	RunID         uuid.UUID
	Chains        int
	Accepted      int
	Malformed     int
	Degenerate    int
	Unstable      int
	Invalid       int
	FilterUpdates int
}

// Result is the output of a batch. Records keep the order of the accepted
// input chains.
type Result struct {
	Records    []TrackRecord
	Rejections []*RejectError
	Summary    Summary
}

func newResult(n int) Result {
	return Result{
		Records: make([]TrackRecord, 0, n),
		Summary: Summary{RunID: uuid.New(), Chains: n},
	}
}

func (r *Result) add(rec TrackRecord, err error) {
	if err == nil {
		r.Records = append(r.Records, rec)
		r.Summary.Accepted++
		r.Summary.FilterUpdates += (rec.NDF + 3) / 2
		return
	}
	var re *RejectError
	if !errors.As(err, &re) {
		re = reject(-1, ErrInvalidResult, "", err)
	}
	r.Rejections = append(r.Rejections, re)
	r.Summary.FilterUpdates += re.Updates
	switch {
	case errors.Is(re.Kind, ErrMalformedChain):
		r.Summary.Malformed++
	case errors.Is(re.Kind, ErrDegenerateFit):
		r.Summary.Degenerate++
	case errors.Is(re.Kind, ErrNumericalInstability):
		r.Summary.Unstable++
	default:
		r.Summary.Invalid++
	}
}

// Fit processes chains one after another.
func (f *Fitter) Fit(chains [][]HitKey) Result {
	res := newResult(len(chains))
	for i, chain := range chains {
		rec, err := f.FitChain(i, chain)
		res.add(rec, err)
	}
	f.logSummary(res.Summary)
	return res
}

func (f *Fitter) logSummary(s Summary) {
	if f.log.Enabled(monitoring.Warning) {
		f.log.Infof("run %s: %d chains, %d seeds, %d rejected", s.RunID, s.Chains, s.Accepted, s.Chains-s.Accepted)
	}
}

// FitChain fits one chain. index identifies the chain in diagnostics. On
// failure the error is a *RejectError.
func (f *Fitter) FitChain(index int, chain []HitKey) (TrackRecord, error) {
	rec, err := f.fitChain(index, chain)
	if err != nil {
		f.log.Warnf("%v", err)
		if f.debug != nil {
			f.debug.RecordRejection(debug.Rejection{
				Chain:  index,
				Kind:   err.Kind.Error(),
				Detail: err.Error(),
			})
		}
		return TrackRecord{}, err
	}
	return rec, nil
}

// chainFit carries the state of one chain through propagation.
type chainFit struct {
	index   int
	keys    []HitKey
	pos     []Point3
	track   *kalman.TrackParam
	initQPt float64
	updates int
	// r-phi error of the last filtered hit.
	lastRPhiErr float64
}

func (f *Fitter) fitChain(index int, chain []HitKey) (TrackRecord, *RejectError) {
	if len(chain) < 2 {
		return TrackRecord{}, reject(index, ErrMalformedChain, fmt.Sprintf("%d hits", len(chain)), nil)
	}
	if f.cfg.UseHitLimit && len(chain) < f.cfg.MinClustersPerTrack {
		return TrackRecord{}, reject(index, ErrMalformedChain,
			fmt.Sprintf("%d hits, minimum %d", len(chain), f.cfg.MinClustersPerTrack), nil)
	}

	keys := make([]HitKey, len(chain))
	copy(keys, chain)
	if keys[0].Layer() < keys[len(keys)-1].Layer() {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	pos := make([]Point3, len(keys))
	for i, k := range keys {
		p, err := f.positions.LookupPosition(k)
		if err != nil {
			return TrackRecord{}, reject(index, ErrMalformedChain, "position lookup", err)
		}
		pos[i] = p
	}

	cf := &chainFit{index: index, keys: keys, pos: pos}
	if rerr := f.seed(cf); rerr != nil {
		return TrackRecord{}, rerr
	}
	if rerr := f.propagate(cf); rerr != nil {
		return TrackRecord{}, rerr
	}
	return f.finalize(cf)
}

// seed initialises the state at the first hit from the chord to the second
// hit and a circle fit through all hits.
func (f *Fitter) seed(cf *chainFit) *RejectError {
	first, second := cf.pos[0], cf.pos[1]

	pts := make([]orb.Point, len(cf.pos))
	for i, p := range cf.pos {
		pts[i] = orb.Point{p.X, p.Y}
	}
	circle := fit.FitCircle(pts)
	f.log.Debugf("chain %d circle fit parameters: R=%g, X0=%g, Y0=%g", cf.index, circle.R, circle.X0, circle.Y0)
	if !circle.Valid() {
		return reject(cf.index, ErrDegenerateFit, fmt.Sprintf("circle radius %g", circle.R), nil)
	}

	// Second hit in the frame of the first.
	phi0 := first.Phi()
	c, s := math.Cos(phi0), math.Sin(phi0)
	dx := second.X*c + second.Y*s - first.Radius()
	dy := -second.X*s + second.Y*c
	dist := math.Hypot(dx, dy)
	if !(dist > 0) {
		return reject(cf.index, ErrDegenerateFit, "first two hits coincide", nil)
	}
	// The state describes the track moving towards increasing local X.
	dir := 1.0
	if dx < 0 {
		dir = -1
	}

	bz := f.field.Bz(first.X, first.Y, first.Z)
	initQPt := 1 / units.PtFromRadius(circle.R, bz)
	dphi := units.WrapDeltaPhi(second.Phi() - phi0)
	f.log.Debugf("chain %d dphi=%g", cf.index, dphi)
	if dphi < 0 {
		initQPt = -initQPt
	}
	if dir > 0 {
		initQPt = -initQPt
	}
	if math.IsNaN(initQPt) || math.IsInf(initQPt, 0) {
		return reject(cf.index, ErrDegenerateFit, fmt.Sprintf("initial q/pt %g at Bz=%g", initQPt, bz), nil)
	}

	t := kalman.NewTrackParam()
	t.SetX(first.Radius())
	t.SetY(0)
	t.SetZ(first.Z)
	t.SetSinPhi(dir * dy / dist)
	t.SetDzDs(dir * (second.Z - first.Z) / dist)
	t.SetQPt(initQPt)
	cf.track = t
	cf.initQPt = initQPt

	if f.debug != nil {
		f.debug.RecordSeed(seedRecord(cf, pts, circle))
	}
	return nil
}

// seedRecord adds the residuals of the circle and of a z(r) line fit to the
// seed diagnostics.
func seedRecord(cf *chainFit, xy []orb.Point, circle fit.Circle) debug.SeedRecord {
	rz := make([]orb.Point, len(cf.pos))
	for i, p := range cf.pos {
		rz[i] = orb.Point{p.Radius(), p.Z}
	}
	rec := debug.SeedRecord{
		Chain:             cf.index,
		R:                 circle.R,
		X0:                circle.X0,
		Y0:                circle.Y0,
		InitQPt:           cf.initQPt,
		MaxCircleResidual: maxAbs(fit.CircleResiduals(xy, circle)),
	}
	// Hits at a single radius have no z(r) line.
	if line := fit.FitLine(rz); line.Valid() {
		rec.LineSlope = line.Slope
		rec.LineIntercept = line.Intercept
		rec.MaxLineResidual = maxAbs(fit.LineResiduals(rz, line))
	}
	return rec
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// propagate walks the remaining hits: rotate to the hit azimuth, transport
// to its radius, filter. The first failure rejects the chain.
func (f *Fitter) propagate(cf *chainFit) *RejectError {
	t := cf.track
	maxSin := f.cfg.MaxSinPhi
	for i := 1; i < len(cf.pos); i++ {
		prev, hit := cf.pos[i-1], cf.pos[i]
		unstable := func(stage string, err error) *RejectError {
			re := reject(cf.index, ErrNumericalInstability, fmt.Sprintf("%s at hit %d", stage, i), err)
			re.Step = i
			re.Updates = cf.updates
			return re
		}

		newPhi := hit.Phi()
		if err := t.Rotate(newPhi-prev.Phi(), maxSin); err != nil {
			return unstable("rotate", err)
		}

		c, s := math.Cos(newPhi), math.Sin(newPhi)
		tx, ty := t.X()*c-t.Y()*s, t.X()*s+t.Y()*c
		bz := f.cfg.FieldScale * f.field.Bz(tx, ty, t.Z())
		if err := t.TransportToX(hit.Radius(), bz, maxSin); err != nil {
			return unstable("transport", err)
		}
		tx, ty = t.X()*c-t.Y()*s, t.X()*s+t.Y()*c
		tz := t.Z()

		var local LocalError
		if !f.errModel.UseFixed {
			var err error
			local, err = f.errs.LookupError(cf.keys[i])
			if err != nil {
				re := reject(cf.index, ErrMalformedChain, "error lookup", err)
				re.Step = i
				re.Updates = cf.updates
				return re
			}
		}
		global := f.errModel.Global(local, hit)
		err2Y, err2Z := f.errModel.Project(global, newPhi)

		hitY := -hit.X*s + hit.Y*c
		if err := t.Filter(hitY, hit.Z, err2Y, err2Z, maxSin); err != nil {
			return unstable("filter", err)
		}
		cf.updates++
		cf.lastRPhiErr = math.Sqrt(err2Y)

		if f.debug != nil {
			f.debug.RecordStep(debug.StepRecord{
				Chain:   cf.index,
				Step:    i,
				Layer:   cf.keys[i].Layer(),
				HitX:    hit.X,
				HitY:    hit.Y,
				HitZ:    hit.Z,
				TrackX:  tx,
				TrackY:  ty,
				TrackZ:  tz,
				HitErrX: math.Sqrt(global.At(0, 0)),
				HitErrY: math.Sqrt(global.At(1, 1)),
				HitErrZ: math.Sqrt(global.At(2, 2)),
				PhiErr:  cf.lastRPhiErr / hit.Radius(),
				Chi2:    t.Chi2(),
				NDF:     t.NDF(),
			})
		}
	}
	return nil
}

// finalize converts the local state at the last hit into a TrackRecord.
func (f *Fitter) finalize(cf *chainFit) (TrackRecord, *RejectError) {
	t := cf.track
	last := cf.pos[len(cf.pos)-1]
	phi := last.Phi()
	c, s := math.Cos(phi), math.Sin(phi)

	qpt := t.QPt()
	pt := math.Abs(1 / qpt)
	if len(cf.keys) < f.cfg.ShortChainHits {
		pt = math.Abs(1 / cf.initQPt)
	}
	ptErr := math.Sqrt(t.Err2QPt()) / (qpt * qpt)

	x0 := t.X()*c - t.Y()*s
	y0 := t.X()*s + t.Y()*c
	z0 := t.Z()
	zErr := math.Sqrt(t.Err2Z())

	r2 := t.X()*t.X() + t.Y()*t.Y()
	lastPhiErr := cf.lastRPhiErr / last.Radius()
	phiErr := math.Sqrt(lastPhiErr*lastPhiErr + t.X()*t.X()*t.Err2Y()/(r2*r2))

	bzT := f.field.Bz(x0, y0, z0)
	bz := f.cfg.FieldScale * bzT
	curvature := t.Kappa(bz)
	curvErr := math.Sqrt(t.Err2QPt()) * math.Abs(bz)

	sinPhi, dzds := t.SinPhi(), t.DzDs()
	pY := pt * sinPhi
	pX := t.SignCosPhi() * math.Sqrt(pt*pt-pY*pY)
	px := pX*c - pY*s
	py := pX*s + pY*c
	pz := pt * dzds

	rec := TrackRecord{
		X0:           x0,
		Y0:           y0,
		Z0:           z0,
		Slope:        pz / math.Hypot(px, py),
		QOverR:       units.QOverR(qpt, bzT),
		Pt:           pt,
		PtErr:        ptErr,
		Phi:          math.Atan2(py, px),
		PhiErr:       phiErr,
		ZErr:         zErr,
		Curvature:    curvature,
		CurvatureErr: curvErr,
		Chi2:         t.Chi2(),
		NDF:          t.NDF(),
		Cov:          t.Cov(),
		keys:         cf.keys,
	}

	checks := []struct {
		name string
		v    float64
	}{
		{"pt", rec.Pt},
		{"pt error", rec.PtErr},
		{"z", rec.Z0},
		{"z error", rec.ZErr},
		{"phi error", rec.PhiErr},
		{"curvature", rec.Curvature},
		{"curvature error", rec.CurvatureErr},
		{"sin phi", sinPhi},
		{"dz/ds", dzds},
		{"q/R", rec.QOverR},
		{"slope", rec.Slope},
	}
	for _, ch := range checks {
		if !isFinite(ch.v) {
			return TrackRecord{}, invalid(cf, fmt.Sprintf("%s is %g", ch.name, ch.v))
		}
	}
	for i, v := range rec.Cov {
		if !isFinite(v) {
			return TrackRecord{}, invalid(cf, fmt.Sprintf("covariance element %d is %g", i, v))
		}
	}
	return rec, nil
}

func invalid(cf *chainFit, detail string) *RejectError {
	re := reject(cf.index, ErrInvalidResult, detail, nil)
	re.Step = len(cf.pos) - 1
	re.Updates = cf.updates
	return re
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
