package dataops

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
	"github.com/rancesol/CLMM/gcdata"
	"github.com/rancesol/CLMM/units"
)

// BinMethod selects how radial bin edges are placed.
type BinMethod string

const (
	// BinEvenWidth places edges uniformly in separation.
	BinEvenWidth BinMethod = "evenwidth"

	// BinEvenLog10Width places edges uniformly in log10(separation).
	BinEvenLog10Width BinMethod = "evenlog10width"

	// BinEqualOccupation places edges at separation quantiles so each bin
	// holds the same number of sources.
	BinEqualOccupation BinMethod = "equaloccupation"
)

// ErrorModel selects the statistical error attached to each binned average.
type ErrorModel string

const (
	// ErrSTE is the standard error of the weighted mean.
	ErrSTE ErrorModel = "ste"

	// ErrSTD is the weighted standard deviation of the bin members.
	ErrSTD ErrorModel = "std"
)

// MakeBins builds nbins+1 monotonically increasing bin edges on
// [rmin, rmax]. The equal-occupation method additionally needs the source
// separations it should balance.
func MakeBins(rmin, rmax float64, nbins int, method BinMethod, sourceSeps []float64) ([]float64, error) {
	if nbins < 1 {
		return nil, errs.Configf("nbins", fmt.Sprint(nbins), "need at least one bin")
	}
	if math.IsNaN(rmin) || math.IsNaN(rmax) || rmin >= rmax {
		return nil, errs.Domainf("rmin/rmax", rmin, "bin range must satisfy rmin < rmax")
	}
	if rmin < 0 {
		return nil, errs.Domainf("rmin", rmin, "separations are non-negative")
	}
	if method == "" {
		method = BinEvenWidth
	}

	edges := make([]float64, nbins+1)
	switch method {
	case BinEvenWidth:
		floats.Span(edges, rmin, rmax)
	case BinEvenLog10Width:
		if rmin <= 0 {
			return nil, errs.Domainf("rmin", rmin, "log-spaced bins need rmin > 0")
		}
		floats.Span(edges, math.Log10(rmin), math.Log10(rmax))
		for i, e := range edges {
			edges[i] = math.Pow(10, e)
		}
		// Pin the ends against round-off so edge membership matches the
		// requested range exactly.
		edges[0], edges[nbins] = rmin, rmax
	case BinEqualOccupation:
		if len(sourceSeps) == 0 {
			return nil, errs.Missingf("equal-occupation bins", "source separations")
		}
		kept := make([]float64, 0, len(sourceSeps))
		for _, s := range sourceSeps {
			if s >= rmin && s <= rmax && !math.IsNaN(s) {
				kept = append(kept, s)
			}
		}
		if len(kept) < 2 {
			return nil, errs.Domainf("source separations", float64(len(kept)),
				"too few sources in the bin range for equal occupation")
		}
		sort.Float64s(kept)
		for i := range edges {
			p := float64(i) / float64(nbins)
			edges[i] = stat.Quantile(p, stat.LinInterp, kept, nil)
		}
	default:
		return nil, errs.Configf("bin method", string(method),
			"supported: evenwidth, evenlog10width, equaloccupation")
	}
	return edges, nil
}

// digitize returns the bin index of x given sorted edges, or -1 when x falls
// outside. The upper edge of the last bin is inclusive.
func digitize(x float64, edges []float64) int {
	if math.IsNaN(x) || x < edges[0] || x > edges[len(edges)-1] {
		return -1
	}
	if x == edges[len(edges)-1] {
		return len(edges) - 2
	}
	idx := sort.SearchFloat64s(edges, x)
	if idx < len(edges) && edges[idx] == x {
		// Left edges belong to the bin they open.
		return idx
	}
	return idx - 1
}

// RadialAverages holds per-bin weighted statistics from
// ComputeRadialAverages.
type RadialAverages struct {
	// MeanX and MeanY are the weighted means of separation and component.
	MeanX []float64
	MeanY []float64

	// YErr combines the statistical scatter with the per-point measurement
	// errors in quadrature.
	YErr []float64

	// Counts is the number of finite members per bin.
	Counts []int

	// BinIndex maps every input row to its bin, -1 for rows that are
	// non-finite or fall outside the edges.
	BinIndex []int
}

// ComputeRadialAverages bins y against x and returns weighted per-bin
// averages. Rows where either x or y is non-finite are dropped. Weights
// default to one and are renormalized within each bin; yerr, when given,
// carries per-point measurement errors that are added in quadrature to the
// statistical term.
func ComputeRadialAverages(x, y, weights, yerr []float64, edges []float64, model ErrorModel) (*RadialAverages, error) {
	n := len(x)
	if len(y) != n {
		return nil, errs.Configf("x/y", "", "arrays must have the same length")
	}
	if weights != nil && len(weights) != n {
		return nil, errs.Configf("weights", "", "must match the data arrays")
	}
	if yerr != nil && len(yerr) != n {
		return nil, errs.Configf("yerr", "", "must match the data arrays")
	}
	if len(edges) < 2 {
		return nil, errs.Configf("bins", "", "need at least two bin edges")
	}
	if model == "" {
		model = ErrSTE
	}
	if model != ErrSTE && model != ErrSTD {
		return nil, errs.Configf("error model", string(model), "supported: ste, std")
	}

	nbins := len(edges) - 1
	res := &RadialAverages{
		MeanX:    make([]float64, nbins),
		MeanY:    make([]float64, nbins),
		YErr:     make([]float64, nbins),
		Counts:   make([]int, nbins),
		BinIndex: make([]int, n),
	}

	wsum := make([]float64, nbins)
	for i := 0; i < n; i++ {
		res.BinIndex[i] = -1
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		b := digitize(x[i], edges)
		if b < 0 {
			continue
		}
		res.BinIndex[i] = b
		res.Counts[b]++
		wsum[b] += weightAt(weights, i)
	}

	// Accumulate with weights renormalized to unit sum per bin.
	w2sum := make([]float64, nbins)
	sumY2 := make([]float64, nbins)
	dataErr2 := make([]float64, nbins)
	for i := 0; i < n; i++ {
		b := res.BinIndex[i]
		if b < 0 {
			continue
		}
		w := weightAt(weights, i) / wsum[b]
		res.MeanX[b] += w * x[i]
		res.MeanY[b] += w * y[i]
		sumY2[b] += w * y[i] * y[i]
		w2sum[b] += w * w
		if yerr != nil {
			dataErr2[b] += w * w * yerr[i] * yerr[i]
		}
	}
	for b := 0; b < nbins; b++ {
		if res.Counts[b] == 0 {
			res.MeanX[b] = math.NaN()
			res.MeanY[b] = math.NaN()
			res.YErr[b] = math.NaN()
			continue
		}
		statErr2 := sumY2[b] - res.MeanY[b]*res.MeanY[b]
		if statErr2 < 0 {
			statErr2 = 0
		}
		if model == ErrSTE {
			statErr2 *= w2sum[b]
		}
		res.YErr[b] = math.Sqrt(statErr2 + dataErr2[b])
	}
	return res, nil
}

func weightAt(weights []float64, i int) float64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}

// ProfileOptions configures MakeRadialProfile.
type ProfileOptions struct {
	// AngsepUnits is the unit of the input separations (default radians).
	AngsepUnits units.Unit

	// BinUnits is the unit of the output profile radii (default radians).
	// Converting to a physical unit requires Cosmo and ZLens.
	BinUnits units.Unit

	// Bins gives explicit edges in BinUnits. When nil, NBins evenwidth bins
	// spanning the data are used.
	Bins []float64

	// NBins is the automatic bin count (default 10).
	NBins int

	// BinMethod places the automatic edges (default evenwidth).
	BinMethod BinMethod

	// ErrorModel defaults to ErrSTE.
	ErrorModel ErrorModel

	// IncludeEmptyBins keeps zero-count bins in the output table.
	IncludeEmptyBins bool

	// Weights are per-source averaging weights (default uniform).
	Weights []float64

	// ComponentErrors holds optional per-source measurement errors for each
	// component, parallel to the components slice; nil entries are allowed.
	ComponentErrors [][]float64

	// Cosmo and ZLens support angular-physical unit conversion.
	Cosmo cosmo.Cosmology
	ZLens float64

	// GalaxyIDs, when set, produce a per-bin member list for bins holding
	// more than one source.
	GalaxyIDs []int64

	// Logger receives diagnostics; nil means slog.Default().
	Logger *slog.Logger
}

// Profile is the binned output of MakeRadialProfile.
type Profile struct {
	// Table holds radius_min, radius, radius_max, one value and error column
	// per component, and n_src.
	Table *gcdata.Table

	// BinIndex maps every input source to its bin in the pre-filter edge
	// numbering, -1 for out-of-range or non-finite sources.
	BinIndex []int

	// GalIDs lists member IDs for bins with more than one source, keyed by
	// the pre-filter bin index. Nil unless GalaxyIDs were supplied.
	GalIDs map[int][]int64
}

// MakeRadialProfile bins one or more per-source components into a radial
// profile table. Separations are converted from AngsepUnits to BinUnits
// before binning.
func MakeRadialProfile(components [][]float64, names []string, angsep []float64, opts ProfileOptions) (*Profile, error) {
	if len(components) == 0 || len(components) != len(names) {
		return nil, errs.Configf("components", "", "need one name per component column")
	}
	n := len(angsep)
	for i, comp := range components {
		if len(comp) != n {
			return nil, errs.Configf("components", names[i], "must match the separations")
		}
	}
	if opts.ComponentErrors != nil && len(opts.ComponentErrors) != len(components) {
		return nil, errs.Configf("component errors", "", "need one entry per component")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	inUnits := opts.AngsepUnits
	if inUnits == "" {
		inUnits = units.Radians
	}
	binUnits := opts.BinUnits
	if binUnits == "" {
		binUnits = units.Radians
	}
	seps := angsep
	if inUnits != binUnits {
		var err error
		seps, err = units.Convert(angsep, inUnits, binUnits, opts.ZLens, opts.Cosmo)
		if err != nil {
			return nil, err
		}
	}

	edges := opts.Bins
	if edges == nil {
		nbins := opts.NBins
		if nbins == 0 {
			nbins = 10
		}
		lo, hi := finiteRange(seps)
		var err error
		edges, err = MakeBins(lo, hi, nbins, opts.BinMethod, seps)
		if err != nil {
			return nil, err
		}
	}
	if !sort.Float64sAreSorted(edges) {
		return nil, errs.Configf("bins", "", "edges must be increasing")
	}

	nbins := len(edges) - 1
	cols := map[string][]float64{
		"radius_min": make([]float64, nbins),
		"radius_max": make([]float64, nbins),
	}
	for b := 0; b < nbins; b++ {
		cols["radius_min"][b] = edges[b]
		cols["radius_max"][b] = edges[b+1]
	}

	var (
		radius   []float64
		counts   []int
		binIndex []int
	)
	compMeans := make([][]float64, len(components))
	compErrs := make([][]float64, len(components))
	for ci, comp := range components {
		var yerr []float64
		if opts.ComponentErrors != nil {
			yerr = opts.ComponentErrors[ci]
		}
		avg, err := ComputeRadialAverages(seps, comp, opts.Weights, yerr, edges, opts.ErrorModel)
		if err != nil {
			return nil, err
		}
		compMeans[ci] = avg.MeanY
		compErrs[ci] = avg.YErr
		if ci == 0 {
			radius = avg.MeanX
			counts = avg.Counts
			binIndex = avg.BinIndex
		}
	}

	keep := make([]int, 0, nbins)
	for b := 0; b < nbins; b++ {
		if opts.IncludeEmptyBins || counts[b] > 0 {
			keep = append(keep, b)
		}
	}
	if len(keep) == 0 {
		log.Warn("radial profile has no populated bins", "nbins", nbins)
	}

	table := gcdata.New()
	addKept := func(name string, src []float64) error {
		out := make([]float64, len(keep))
		for i, b := range keep {
			out[i] = src[b]
		}
		return table.AddColumn(name, out)
	}
	if err := addKept("radius_min", cols["radius_min"]); err != nil {
		return nil, err
	}
	if err := addKept("radius", radius); err != nil {
		return nil, err
	}
	if err := addKept("radius_max", cols["radius_max"]); err != nil {
		return nil, err
	}
	for ci, name := range names {
		if err := addKept(name, compMeans[ci]); err != nil {
			return nil, err
		}
		if err := addKept(name+"_err", compErrs[ci]); err != nil {
			return nil, err
		}
	}
	nsrc := make([]float64, len(keep))
	for i, b := range keep {
		nsrc[i] = float64(counts[b])
	}
	if err := table.AddColumn("n_src", nsrc); err != nil {
		return nil, err
	}
	table.Meta["bin_units"] = string(binUnits)
	if opts.Cosmo != nil {
		table.Meta["cosmo"] = opts.Cosmo.Describe()
	}

	prof := &Profile{Table: table, BinIndex: binIndex}
	if opts.GalaxyIDs != nil {
		if len(opts.GalaxyIDs) != n {
			return nil, errs.Configf("galaxy ids", "", "must match the separations")
		}
		prof.GalIDs = make(map[int][]int64)
		for i, b := range binIndex {
			if b >= 0 && counts[b] > 1 {
				prof.GalIDs[b] = append(prof.GalIDs[b], opts.GalaxyIDs[i])
			}
		}
	}
	return prof, nil
}

func finiteRange(xs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
