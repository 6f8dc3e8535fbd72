package dataops

import (
	"math"

	"gonum.org/v1/gonum/integrate"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

// Photo-z helpers. Each source carries its redshift probability density
// sampled on a grid; the integrals below run on that grid with the
// trapezoidal rule, so an unnormalized density is acceptable wherever a
// ratio is taken.

// PdfAverage returns the probability-weighted average of f over the sampled
// density, int p(z) f(z) dz / int p(z) dz.
func PdfAverage(pzBins, pzPdf []float64, f func(z float64) float64) (float64, error) {
	if len(pzBins) != len(pzPdf) || len(pzBins) < 2 {
		return 0, errs.Configf("pzbins/pzpdf", "", "need matching grids with at least two samples")
	}
	norm := integrate.Trapezoidal(pzBins, pzPdf)
	if norm <= 0 {
		return 0, errs.Domainf("pzpdf", norm, "density must have positive mass")
	}
	weighted := make([]float64, len(pzBins))
	for i, z := range pzBins {
		weighted[i] = pzPdf[i] * f(z)
	}
	return integrate.Trapezoidal(pzBins, weighted) / norm, nil
}

// SigmaCritEff returns the effective critical surface density of a source
// with the sampled redshift density: the harmonic probability-weighted mean
// 1 / <1/Sigma_crit>. Sources in front of the lens contribute zero inverse
// density, so a density entirely below the lens redshift yields +Inf.
func SigmaCritEff(c cosmo.Cosmology, zLens float64, pzBins, pzPdf []float64) (float64, error) {
	if c == nil {
		return 0, errs.Missingf("effective critical surface density", "cosmology")
	}
	inv, err := PdfAverage(pzBins, pzPdf, func(z float64) float64 {
		sc := c.CriticalSurfaceDensity(zLens, z)
		if math.IsInf(sc, 1) {
			return 0
		}
		return 1 / sc
	})
	if err != nil {
		return 0, err
	}
	if inv == 0 {
		return math.Inf(1), nil
	}
	return 1 / inv, nil
}

// TailProbability returns P(z > zCut) for the sampled density, interpolating
// linearly inside the grid segment that straddles the cut.
func TailProbability(pzBins, pzPdf []float64, zCut float64) (float64, error) {
	if len(pzBins) != len(pzPdf) || len(pzBins) < 2 {
		return 0, errs.Configf("pzbins/pzpdf", "", "need matching grids with at least two samples")
	}
	norm := integrate.Trapezoidal(pzBins, pzPdf)
	if norm <= 0 {
		return 0, errs.Domainf("pzpdf", norm, "density must have positive mass")
	}
	if zCut <= pzBins[0] {
		return 1, nil
	}
	last := len(pzBins) - 1
	if zCut >= pzBins[last] {
		return 0, nil
	}

	var tail float64
	for i := 0; i < last; i++ {
		lo, hi := pzBins[i], pzBins[i+1]
		if hi <= zCut {
			continue
		}
		if lo >= zCut {
			tail += 0.5 * (pzPdf[i] + pzPdf[i+1]) * (hi - lo)
			continue
		}
		// Partial segment: integrate the linear density from the cut.
		frac := (zCut - lo) / (hi - lo)
		pCut := pzPdf[i] + frac*(pzPdf[i+1]-pzPdf[i])
		tail += 0.5 * (pCut + pzPdf[i+1]) * (hi - zCut)
	}
	return tail / norm, nil
}
