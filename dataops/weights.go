package dataops

import (
	"math"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/stat"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

// WeightOptions selects the terms entering the per-galaxy lensing weight.
type WeightOptions struct {
	// IsDeltaSigma weights for the excess-surface-density estimator by the
	// inverse squared critical surface density; off, the geometric term is
	// one (plain shear stacking).
	IsDeltaSigma bool

	// UsePhotoZ replaces point redshifts with each source's sampled
	// redshift density in the geometric term.
	UsePhotoZ bool

	// UseShapeNoise adds the intrinsic ellipticity variance of the sample to
	// the shape term.
	UseShapeNoise bool

	// UseShapeError adds each source's measurement errors to the shape term.
	UseShapeError bool
}

// WeightData carries the per-source columns the weight terms draw from. The
// shape components are always required; the remaining columns only when the
// options demand them.
type WeightData struct {
	ZSource []float64

	// PzBins and PzPdf sample each source's redshift density; the grids may
	// differ per source.
	PzBins [][]float64
	PzPdf  [][]float64

	Shape1    []float64
	Shape2    []float64
	Shape1Err []float64
	Shape2Err []float64
}

// ComputeGalaxyWeights returns the per-source stacking weight
// w = w_geo * w_shape. The geometric term downweights sources with poor
// lensing geometry; the shape term downweights noisy shape measurements.
func ComputeGalaxyWeights(zLens float64, c cosmo.Cosmology, data WeightData, opts WeightOptions) ([]float64, error) {
	n, err := weightSampleSize(data, opts)
	if err != nil {
		return nil, err
	}

	geo := make([]float64, n)
	for i := range geo {
		geo[i] = 1
	}
	if opts.IsDeltaSigma {
		if c == nil {
			return nil, errs.Missingf("excess-surface-density weights", "cosmology")
		}
		for i := 0; i < n; i++ {
			var sc float64
			if opts.UsePhotoZ {
				sc, err = SigmaCritEff(c, zLens, data.PzBins[i], data.PzPdf[i])
				if err != nil {
					return nil, err
				}
			} else {
				sc = c.CriticalSurfaceDensity(zLens, data.ZSource[i])
			}
			if math.IsInf(sc, 1) {
				geo[i] = 0
				continue
			}
			geo[i] = 1 / (sc * sc)
		}
	}

	if !opts.UseShapeNoise && !opts.UseShapeError {
		return geo, nil
	}

	var noise float64
	if opts.UseShapeNoise {
		noise = stat.Variance(data.Shape1, nil) + stat.Variance(data.Shape2, nil)
	}
	shape := make([]float64, n)
	for i := 0; i < n; i++ {
		err2 := noise
		if opts.UseShapeError {
			err2 += data.Shape1Err[i]*data.Shape1Err[i] + data.Shape2Err[i]*data.Shape2Err[i]
		}
		if err2 <= 0 {
			shape[i] = 1
			continue
		}
		shape[i] = 1 / err2
	}
	return vek.Mul(geo, shape), nil
}

// weightSampleSize validates that every column the options require is
// present with a consistent length, enumerating all missing names at once.
// Shape components are required regardless of the selected terms: they are
// what the weights will be applied to.
func weightSampleSize(data WeightData, opts WeightOptions) (int, error) {
	var missing []string
	n := -1
	mismatch := false
	check := func(name string, m int, ok bool) {
		if !ok {
			missing = append(missing, name)
			return
		}
		if n < 0 {
			n = m
		} else if m != n {
			mismatch = true
		}
	}

	check("e1", len(data.Shape1), data.Shape1 != nil)
	check("e2", len(data.Shape2), data.Shape2 != nil)
	if opts.IsDeltaSigma {
		if opts.UsePhotoZ {
			check("pzbins", len(data.PzBins), data.PzBins != nil)
			check("pzpdf", len(data.PzPdf), data.PzPdf != nil)
		} else {
			check("z", len(data.ZSource), data.ZSource != nil)
		}
	}
	if opts.UseShapeError {
		check("e1_err", len(data.Shape1Err), data.Shape1Err != nil)
		check("e2_err", len(data.Shape2Err), data.Shape2Err != nil)
	}

	if len(missing) > 0 {
		return 0, errs.Missingf("galaxy weights", missing...)
	}
	if mismatch {
		return 0, errs.Configf("weight columns", "", "all columns must have the same length")
	}
	return n, nil
}

// ComputeBackgroundProbability returns, per source, the probability of lying
// behind the lens: a hard indicator on point redshifts, or the integrated
// tail of the sampled density when usePhotoZ is set.
func ComputeBackgroundProbability(zLens float64, zSource []float64, pzBins, pzPdf [][]float64, usePhotoZ bool) ([]float64, error) {
	if usePhotoZ {
		if pzBins == nil || pzPdf == nil {
			return nil, errs.Missingf("background probability", "pzbins", "pzpdf")
		}
		if len(pzBins) != len(pzPdf) {
			return nil, errs.Configf("pzbins/pzpdf", "", "need one density per source")
		}
		out := make([]float64, len(pzBins))
		for i := range pzBins {
			p, err := TailProbability(pzBins[i], pzPdf[i], zLens)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}

	if zSource == nil {
		return nil, errs.Missingf("background probability", "z")
	}
	out := make([]float64, len(zSource))
	for i, z := range zSource {
		if z > zLens {
			out[i] = 1
		}
	}
	return out, nil
}
