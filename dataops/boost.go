package dataops

import (
	"math"

	"github.com/rancesol/CLMM/errs"
)

// Boost factors model the dilution of the stacked signal by cluster members
// that leak into the source sample. Profiles are corrected by division.

// BoostModel names a supported boost-factor shape.
type BoostModel string

const (
	BoostNFW      BoostModel = "nfw_boost"
	BoostPowerlaw BoostModel = "powerlaw_boost"
)

// ComputeNFWBoost evaluates the boost factor of a projected NFW member
// distribution with scale radius rscale (same unit as rvals) and central
// amplitude boost0.
func ComputeNFWBoost(rvals []float64, rscale, boost0 float64) ([]float64, error) {
	if rscale <= 0 {
		return nil, errs.Domainf("rscale", rscale, "boost scale radius must be positive")
	}
	out := make([]float64, len(rvals))
	for i, r := range rvals {
		x := r / rscale
		out[i] = 1 + boost0*nfwBoostShape(x)
	}
	return out, nil
}

// nfwBoostShape is (1 - f(x)) / (x^2 - 1) with
// f(x) = atanh(sqrt(1-x^2))/sqrt(1-x^2) inside the scale radius and
// atan(sqrt(x^2-1))/sqrt(x^2-1) outside; the x -> 1 limit is 1/3.
func nfwBoostShape(x float64) float64 {
	d := x*x - 1
	if math.Abs(d) < 1e-7 {
		return 1.0 / 3.0
	}
	var f float64
	if x < 1 {
		s := math.Sqrt(-d)
		f = math.Atanh(s) / s
	} else {
		s := math.Sqrt(d)
		f = math.Atan(s) / s
	}
	return (1 - f) / d
}

// ComputePowerlawBoost evaluates the power-law boost factor
// 1 + boost0 (r/rscale)^alpha. The conventional slope is alpha = -1.
func ComputePowerlawBoost(rvals []float64, rscale, boost0, alpha float64) ([]float64, error) {
	if rscale <= 0 {
		return nil, errs.Domainf("rscale", rscale, "boost scale radius must be positive")
	}
	out := make([]float64, len(rvals))
	for i, r := range rvals {
		out[i] = 1 + boost0*math.Pow(r/rscale, alpha)
	}
	return out, nil
}

// CorrectWithBoostValues divides profile values and their errors by
// precomputed boost factors.
func CorrectWithBoostValues(profileVals, profileErrs, boostFactors []float64) ([]float64, []float64, error) {
	n := len(profileVals)
	if len(boostFactors) != n || (profileErrs != nil && len(profileErrs) != n) {
		return nil, nil, errs.Configf("boost factors", "", "must match the profile")
	}
	vals := make([]float64, n)
	var errsOut []float64
	if profileErrs != nil {
		errsOut = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		vals[i] = profileVals[i] / boostFactors[i]
		if errsOut != nil {
			errsOut[i] = profileErrs[i] / boostFactors[i]
		}
	}
	return vals, errsOut, nil
}

// CorrectWithBoostModel evaluates a named boost model at the profile radii
// and applies it.
func CorrectWithBoostModel(rvals, profileVals, profileErrs []float64, model BoostModel, rscale, boost0 float64) ([]float64, []float64, error) {
	var (
		boost []float64
		err   error
	)
	switch model {
	case BoostNFW:
		boost, err = ComputeNFWBoost(rvals, rscale, boost0)
	case BoostPowerlaw:
		boost, err = ComputePowerlawBoost(rvals, rscale, boost0, -1)
	default:
		return nil, nil, errs.Configf("boost model", string(model),
			"supported: nfw_boost, powerlaw_boost")
	}
	if err != nil {
		return nil, nil, err
	}
	return CorrectWithBoostValues(profileVals, profileErrs, boost)
}
