package seeding

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackfit/internal/config"
	"github.com/banshee-data/trackfit/internal/debug"
	"github.com/banshee-data/trackfit/internal/field"
	"github.com/banshee-data/trackfit/internal/kalman"
	"github.com/banshee-data/trackfit/internal/monitoring"
	"github.com/banshee-data/trackfit/internal/testutil"
	"github.com/banshee-data/trackfit/internal/units"
)

func TestFitChain_CurvatureRecovery(t *testing.T) {
	tests := []struct {
		name string
		turn float64
	}{
		{"counter-clockwise", 1},
		{"clockwise", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.Helix{R: 150, Phi0: 0.3, Turn: tt.turn, DzDs: 0.4}
			b := newBatch()
			chain := b.helixChain(h, 30, 80, 12)

			rec, err := b.fitter(constFieldConfig()).FitChain(0, chain)
			require.NoError(t, err)

			assert.InEpsilon(t, tt.turn/h.R, rec.Curvature, 0.01)
			assert.InEpsilon(t, -tt.turn/h.R, rec.QOverR, 0.01)
			assert.InEpsilon(t, units.PtFromRadius(h.R, 1.4), rec.Pt, 0.01)
			assert.InDelta(t, h.DzDs, rec.Slope, 0.01)
			assert.InDelta(t, h.DirectionAt(30), rec.Phi, 0.01)

			// Record sits at the last hit in traversal order, the innermost.
			inner := h.Hits([]float64{30})[0]
			assert.InDelta(t, inner[0], rec.X0, 1e-2)
			assert.InDelta(t, inner[1], rec.Y0, 1e-2)
			assert.InDelta(t, inner[2], rec.Z0, 1e-2)

			assert.Equal(t, -3+2*11, rec.NDF)
			assert.Less(t, rec.Chi2/float64(rec.NDF), 1.0)
			assert.Greater(t, rec.PtErr, 0.0)
			assert.Greater(t, rec.ZErr, 0.0)
			assert.Greater(t, rec.PhiErr, 0.0)
			assert.Greater(t, rec.CurvatureErr, 0.0)
		})
	}
}

func TestFitChain_KeysInTraversalOrder(t *testing.T) {
	h := testutil.Helix{R: 200, Phi0: -1.2, Turn: 1, DzDs: -0.2}
	hits := h.Hits(testutil.Radii(30, 60, 6))

	t.Run("ascending layers are reversed", func(t *testing.T) {
		b := newBatch()
		chain := b.add(hits)
		rec, err := b.fitter(constFieldConfig()).FitChain(0, chain)
		require.NoError(t, err)

		want := make([]HitKey, len(chain))
		for i, k := range chain {
			want[len(chain)-1-i] = k
		}
		assert.Equal(t, want, rec.Keys())
		assert.Equal(t, len(chain), rec.NHits())
	})

	t.Run("descending layers are kept", func(t *testing.T) {
		outerFirst := make([][3]float64, len(hits))
		layers := make([]uint8, len(hits))
		for i := range hits {
			outerFirst[i] = hits[len(hits)-1-i]
			layers[i] = uint8(len(hits) - 1 - i)
		}
		b := newBatch()
		chain := b.addKeys(outerFirst, layers)
		rec, err := b.fitter(constFieldConfig()).FitChain(0, chain)
		require.NoError(t, err)
		assert.Equal(t, chain, rec.Keys())
	})

	t.Run("records do not alias caller slices", func(t *testing.T) {
		b := newBatch()
		chain := b.add(hits)
		rec, err := b.fitter(constFieldConfig()).FitChain(0, chain)
		require.NoError(t, err)

		before := rec.Keys()
		chain[0] = 0
		got := rec.Keys()
		got[1] = 0
		assert.Equal(t, before, rec.Keys())
	})
}

func TestFit_Idempotent(t *testing.T) {
	b := newBatch()
	for i := 0; i < 5; i++ {
		h := testutil.Helix{R: 100 + 40*float64(i), Phi0: float64(i), Turn: float64(1 - 2*(i%2)), DzDs: 0.1 * float64(i)}
		b.helixChain(h, 25, 70, 10+i)
	}
	f := b.fitter(constFieldConfig())

	first := f.Fit(b.chains)
	second := f.Fit(b.chains)
	require.Len(t, first.Records, 5)
	if diff := cmp.Diff(first.Records, second.Records, cmp.AllowUnexported(TrackRecord{})); diff != "" {
		t.Errorf("refit differs (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first.Summary.RunID, second.Summary.RunID)
}

func TestFit_ShortChainsRejected(t *testing.T) {
	b := newBatch()
	one := b.add([][3]float64{{10, 0, 0}})
	f := b.fitter(constFieldConfig())

	for _, chain := range [][]HitKey{nil, {}, one} {
		_, err := f.FitChain(0, chain)
		assert.ErrorIs(t, err, ErrMalformedChain)
	}

	res := f.Fit([][]HitKey{nil, one})
	assert.Empty(t, res.Records)
	assert.Equal(t, 2, res.Summary.Malformed)
	assert.Equal(t, 0, res.Summary.FilterUpdates)
}

func TestFitChain_HitLimit(t *testing.T) {
	h := testutil.Helix{R: 120, Turn: -1, DzDs: 0.1}
	b := newBatch()
	chain := b.helixChain(h, 30, 50, 3)

	cfg := constFieldConfig()
	cfg.UseHitLimit = true
	cfg.MinClustersPerTrack = 5
	_, err := b.fitter(cfg).FitChain(0, chain)
	assert.ErrorIs(t, err, ErrMalformedChain)

	var re *RejectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.Updates)

	cfg.UseHitLimit = false
	_, err = b.fitter(cfg).FitChain(0, chain)
	assert.NoError(t, err)
}

func TestFitChain_FirstTransportViolatesBound(t *testing.T) {
	h := testutil.Helix{R: 100, Phi0: 0.5, Turn: 1}
	b := newBatch()
	chain := b.helixChain(h, 10, 30, 3)

	// The seed q/pt assumes the nominal scale; an inflated scale bends the
	// track far past sin(phi) = 1 within the first step.
	cfg := constFieldConfig()
	cfg.FieldScale = 1000
	_, err := b.fitter(cfg).FitChain(7, chain)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumericalInstability)
	assert.ErrorIs(t, err, kalman.ErrSinPhiBound)

	var re *RejectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 7, re.Chain)
	assert.Equal(t, 1, re.Step)
	assert.Equal(t, 0, re.Updates)
	assert.Contains(t, re.Error(), "transport")
}

func TestFitChain_TwoHitSeedScenario(t *testing.T) {
	b := newBatch()
	chain := b.addKeys([][3]float64{
		{10, 0, 0},
		{9.95, 1.0, 0.1},
		{9.8, 2.0, 0.2},
	}, []uint8{2, 1, 0})

	collector := debug.NewCollector()
	collector.SetEnabled(true)
	f := b.fitter(constFieldConfig())
	f.SetDebugCollector(collector)

	_, _ = f.FitChain(0, chain)
	report := collector.Emit()
	require.NotNil(t, report)
	require.Len(t, report.Seeds, 1)

	qpt := report.Seeds[0].InitQPt
	assert.False(t, math.IsNaN(qpt) || math.IsInf(qpt, 0), "init q/pt %g", qpt)
	// Azimuth grows from the first to the second hit while the chord points
	// inwards: clockwise bending, positive q/pt.
	assert.Greater(t, qpt, 0.0)
	assert.InDelta(t, 1/units.PtFromRadius(report.Seeds[0].R, 1.4), qpt, 1e-9)
}

func TestFitChain_ShortChainUsesSeedPt(t *testing.T) {
	h := testutil.Helix{R: 150, Phi0: 2, Turn: 1, DzDs: 0.2}
	b := newBatch()
	chain := b.helixChain(h, 30, 60, 5)

	collector := debug.NewCollector()
	collector.SetEnabled(true)
	f := b.fitter(constFieldConfig())
	f.SetDebugCollector(collector)

	rec, err := f.FitChain(0, chain)
	require.NoError(t, err)
	report := collector.Emit()
	require.Len(t, report.Seeds, 1)
	assert.Equal(t, math.Abs(1/report.Seeds[0].InitQPt), rec.Pt)
}

func TestFitChain_DegenerateFit(t *testing.T) {
	b := newBatch()
	chain := b.add([][3]float64{{10, 0, 0}, {20, 0, 1}, {30, 0, 2}})
	_, err := b.fitter(constFieldConfig()).FitChain(0, chain)
	assert.ErrorIs(t, err, ErrDegenerateFit)
}

func TestFitChain_LookupFailures(t *testing.T) {
	h := testutil.Helix{R: 150, Turn: 1}

	t.Run("missing position", func(t *testing.T) {
		b := newBatch()
		chain := b.helixChain(h, 30, 60, 5)
		delete(b.pos, chain[2])
		_, err := b.fitter(constFieldConfig()).FitChain(0, chain)
		assert.ErrorIs(t, err, ErrMalformedChain)
		assert.ErrorIs(t, err, ErrUnknownHit)
	})

	t.Run("missing error", func(t *testing.T) {
		b := newBatch()
		chain := b.helixChain(h, 30, 60, 5)
		delete(b.errs, chain[0])
		_, err := b.fitter(constFieldConfig()).FitChain(0, chain)
		assert.ErrorIs(t, err, ErrMalformedChain)
		assert.ErrorIs(t, err, ErrUnknownHit)
	})

	t.Run("fixed errors need no error lookup", func(t *testing.T) {
		b := newBatch()
		chain := b.helixChain(h, 30, 60, 5)
		cfg := constFieldConfig()
		cfg.UseFixedClusterError = true
		cfg.FixedClusterError = [3]float64{0.01, 0.01, 0.01}
		_, err := NewFitter(cfg, b.pos, nil, nil).FitChain(0, chain)
		assert.NoError(t, err)
	})
}

func TestFitChain_NonFiniteResultRejected(t *testing.T) {
	h := testutil.Helix{R: 150, Turn: -1, DzDs: 0.1}
	b := newBatch()
	chain := b.helixChain(h, 20, 40, 5)

	// Only the final position, at the innermost hit, sees a broken field.
	fm := field.Func(func(x, y, z float64) float64 {
		if math.Hypot(x, y) < 20.5 {
			return math.NaN()
		}
		return 1.4
	})
	f := NewFitter(DefaultFitterConfig(), b.pos, b.errs, fm)
	_, err := f.FitChain(0, chain)
	assert.ErrorIs(t, err, ErrInvalidResult)

	var re *RejectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 4, re.Updates)
}

func TestFitChain_NonUniformField(t *testing.T) {
	h := testutil.Helix{R: 150, Phi0: 1, Turn: 1, DzDs: 0.1}
	b := newBatch()
	chain := b.helixChain(h, 30, 80, 12)

	var mu sync.Mutex
	var calls int
	fm := field.Func(func(x, y, z float64) float64 {
		mu.Lock()
		calls++
		mu.Unlock()
		return 1.4
	})
	_, err := NewFitter(DefaultFitterConfig(), b.pos, b.errs, fm).FitChain(0, chain)
	require.NoError(t, err)
	// Seed, one per transport, one at the end.
	assert.Equal(t, 1+11+1, calls)
}

func TestFit_SummaryAndDiagnostics(t *testing.T) {
	b := newBatch()
	good := b.helixChain(testutil.Helix{R: 150, Turn: 1, DzDs: 0.1}, 30, 80, 12)
	short := b.add([][3]float64{{10, 0, 0}})
	degenerate := b.add([][3]float64{{10, 0, 0}, {20, 0, 1}, {30, 0, 2}})

	collector := debug.NewCollector()
	collector.SetEnabled(true)
	var lines []string
	logger := &monitoring.Logger{
		Prefix:    "[Fitter] ",
		Verbosity: monitoring.Warning,
		Sink: func(format string, v ...interface{}) {
			lines = append(lines, fmt.Sprintf(format, v...))
		},
	}

	f := b.fitter(constFieldConfig())
	f.SetDebugCollector(collector)
	f.SetLogger(logger)
	res := f.Fit([][]HitKey{good, short, degenerate})

	assert.Len(t, res.Records, 1)
	assert.Equal(t, 3, res.Summary.Chains)
	assert.Equal(t, 1, res.Summary.Accepted)
	assert.Equal(t, 1, res.Summary.Malformed)
	assert.Equal(t, 1, res.Summary.Degenerate)
	assert.Equal(t, 11, res.Summary.FilterUpdates)
	require.Len(t, res.Rejections, 2)
	assert.Equal(t, 1, res.Rejections[0].Chain)
	assert.Equal(t, 2, res.Rejections[1].Chain)

	report := collector.Emit()
	require.NotNil(t, report)
	require.Len(t, report.Seeds, 1)
	seed := report.Seeds[0]
	assert.InEpsilon(t, 150, seed.R, 1e-6)
	assert.Less(t, seed.MaxCircleResidual, 1e-6)
	assert.InDelta(t, 0.1, seed.LineSlope, 0.01)
	assert.Less(t, seed.MaxLineResidual, 0.1)
	require.Len(t, report.Steps, 11)
	for i, s := range report.Steps {
		assert.Equal(t, 0, s.Chain)
		assert.Equal(t, i+1, s.Step)
		assert.Equal(t, good[len(good)-2-i].Layer(), s.Layer)
		assert.Equal(t, -3+2*(i+1), s.NDF)
		assert.InDelta(t, math.Hypot(s.HitX, s.HitY), math.Hypot(s.TrackX, s.TrackY), 0.5)
	}
	require.Len(t, report.Rejections, 2)
	assert.Equal(t, ErrMalformedChain.Error(), report.Rejections[0].Kind)
	assert.Equal(t, ErrDegenerateFit.Error(), report.Rejections[1].Kind)

	var warnings int
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "[Fitter] "), l)
		if strings.Contains(l, "WARNING: ") {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestFitterConfigFromTuning(t *testing.T) {
	tc := config.DefaultTuningConfig()
	useConst := true
	scale := -0.003
	minHits := 7
	tc.UseConstField = &useConst
	tc.FieldScale = &scale
	tc.MinClustersPerTrack = &minHits
	tc.FixedClusterError = []float64{0.1, 0.2, 0.3}

	cfg := FitterConfigFromTuning(tc)
	assert.True(t, cfg.UseConstField)
	assert.Equal(t, -0.003, cfg.FieldScale)
	assert.Equal(t, 7, cfg.MinClustersPerTrack)
	assert.Equal(t, [3]float64{0.1, 0.2, 0.3}, cfg.FixedClusterError)
	assert.Equal(t, 10, cfg.ShortChainHits)

	def := DefaultFitterConfig()
	assert.True(t, def.UseHitLimit)
	assert.Equal(t, 3, def.MinClustersPerTrack)
	assert.Equal(t, 1.0, def.MaxSinPhi)
	assert.InDelta(t, units.DefaultFieldScale, def.FieldScale, 1e-15)
}

func TestHitKey(t *testing.T) {
	k := NewHitKey(47, 123456)
	assert.Equal(t, uint8(47), k.Layer())
	assert.Equal(t, "47:123456", k.String())
	assert.Less(t, uint64(NewHitKey(3, 1<<31)), uint64(NewHitKey(4, 0)))
}
