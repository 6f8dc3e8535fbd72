// Package cluster ties one galaxy cluster's position and source catalog to
// the data operations, carrying derived columns between the steps of the
// measurement.
package cluster

import (
	"log/slog"
	"math"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/dataops"
	"github.com/rancesol/CLMM/errs"
	"github.com/rancesol/CLMM/gcdata"
	"github.com/rancesol/CLMM/units"
)

// Catalog column names written and read by the methods below.
const (
	ColRA            = "ra"
	ColDec           = "dec"
	ColZ             = "z"
	ColE1            = "e1"
	ColE2            = "e2"
	ColE1Err         = "e1_err"
	ColE2Err         = "e2_err"
	ColTheta         = "theta"
	ColTangential    = "et"
	ColCross         = "ex"
	ColSigmaCrit     = "sigma_c"
	ColWeight        = "w_ls"
	ColPBackground   = "p_background"
	ColProfileShear  = "gt"
	ColProfileCross  = "gx"
	ColProfileRadius = "radius"
)

// GalaxyCluster holds one cluster and its source galaxy catalog.
type GalaxyCluster struct {
	ID  string
	RA  float64
	Dec float64
	Z   float64

	// Galcat is the source catalog. Derived columns are written back here.
	Galcat *gcdata.Table

	// PzBins and PzPdf optionally sample each source's photometric redshift
	// density, parallel to the catalog rows.
	PzBins [][]float64
	PzPdf  [][]float64

	// Profile is the last radial profile built from this catalog.
	Profile *dataops.Profile

	validate bool
	log      *slog.Logger
}

// Option configures a GalaxyCluster.
type Option func(*GalaxyCluster)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *GalaxyCluster) { c.log = l }
}

// WithValidation toggles input validation (on by default).
func WithValidation(on bool) Option {
	return func(c *GalaxyCluster) { c.validate = on }
}

// New builds a GalaxyCluster, checking the position and redshift.
func New(id string, ra, dec, z float64, galcat *gcdata.Table, opts ...Option) (*GalaxyCluster, error) {
	c := &GalaxyCluster{
		ID:       id,
		RA:       ra,
		Dec:      dec,
		Z:        z,
		Galcat:   galcat,
		validate: true,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.validate {
		if id == "" {
			return nil, errs.Configf("cluster id", id, "must not be empty")
		}
		if ra < -360 || ra > 360 {
			return nil, errs.Domainf("ra", ra, "right ascension must lie in [-360, 360] degrees")
		}
		if dec < -90 || dec > 90 {
			return nil, errs.Domainf("dec", dec, "declination must lie in [-90, 90] degrees")
		}
		if z < 0 || math.IsNaN(z) {
			return nil, errs.Domainf("z", z, "cluster redshift must be non-negative")
		}
	}
	if c.Galcat == nil {
		c.Galcat = gcdata.New()
	}
	return c, nil
}

// AddCriticalSurfaceDensity computes the per-source critical surface density
// and stores it in the sigma_c column. With usePdz, each source's sampled
// redshift density yields the effective (harmonic mean) value instead of the
// point estimate.
func (c *GalaxyCluster) AddCriticalSurfaceDensity(cm cosmo.Cosmology, usePdz bool) error {
	if cm == nil {
		return errs.Missingf("critical surface density", "cosmology")
	}
	n := c.Galcat.Len()
	sigmaC := make([]float64, n)
	if usePdz {
		if c.PzBins == nil || c.PzPdf == nil {
			return errs.Missingf("critical surface density", "pzbins", "pzpdf")
		}
		if len(c.PzBins) != n || len(c.PzPdf) != n {
			return errs.Configf("pzbins/pzpdf", "", "need one density per catalog row")
		}
		for i := 0; i < n; i++ {
			sc, err := dataops.SigmaCritEff(cm, c.Z, c.PzBins[i], c.PzPdf[i])
			if err != nil {
				return err
			}
			sigmaC[i] = sc
		}
	} else {
		zs, err := c.Galcat.Column(ColZ)
		if err != nil {
			return err
		}
		for i, z := range zs {
			sigmaC[i] = cm.CriticalSurfaceDensity(c.Z, z)
		}
	}
	c.overwriteWarn(ColSigmaCrit)
	if err := c.Galcat.AddColumn(ColSigmaCrit, sigmaC); err != nil {
		return err
	}
	c.Galcat.Meta["cosmo"] = cm.Describe()
	return nil
}

// ComponentsConfig configures ComputeTangentialAndCrossComponents.
type ComponentsConfig struct {
	// Shape1 and Shape2 name the catalog shape columns (default e1, e2).
	Shape1 string
	Shape2 string

	// Geometry defaults to curved-sky.
	Geometry dataops.Geometry

	// IsDeltaSigma scales the components by sigma_c, computing it first when
	// Cosmo is given and the column is absent.
	IsDeltaSigma bool
	UsePdz       bool
	Cosmo        cosmo.Cosmology
}

// ComputeTangentialAndCrossComponents projects the catalog shapes onto the
// tangential and cross directions around the cluster center and stores the
// theta, et and ex columns.
func (c *GalaxyCluster) ComputeTangentialAndCrossComponents(cfg ComponentsConfig) (theta, et, ex []float64, err error) {
	s1name, s2name := cfg.Shape1, cfg.Shape2
	if s1name == "" {
		s1name = ColE1
	}
	if s2name == "" {
		s2name = ColE2
	}
	cols, err := c.Galcat.Columns(ColRA, ColDec, s1name, s2name)
	if err != nil {
		return nil, nil, nil, err
	}
	ra, dec, e1, e2 := cols[0], cols[1], cols[2], cols[3]

	var sigmaC []float64
	if cfg.IsDeltaSigma {
		if !c.Galcat.HasColumn(ColSigmaCrit) {
			if cfg.Cosmo == nil {
				return nil, nil, nil, errs.Missingf("excess-surface-density components", ColSigmaCrit)
			}
			if err := c.AddCriticalSurfaceDensity(cfg.Cosmo, cfg.UsePdz); err != nil {
				return nil, nil, nil, err
			}
		}
		sigmaC, err = c.Galcat.Column(ColSigmaCrit)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	theta, et, ex, err = dataops.ComputeTangentialAndCrossComponents(
		c.RA, c.Dec, ra, dec, e1, e2,
		dataops.ComponentsOptions{Geometry: cfg.Geometry, SigmaCrit: sigmaC, Logger: c.log})
	if err != nil {
		return nil, nil, nil, err
	}

	for _, col := range []string{ColTheta, ColTangential, ColCross} {
		c.overwriteWarn(col)
	}
	if err := c.Galcat.AddColumn(ColTheta, theta); err != nil {
		return nil, nil, nil, err
	}
	if err := c.Galcat.AddColumn(ColTangential, et); err != nil {
		return nil, nil, nil, err
	}
	if err := c.Galcat.AddColumn(ColCross, ex); err != nil {
		return nil, nil, nil, err
	}
	return theta, et, ex, nil
}

// ComputeBackgroundProbability stores each source's probability of lying
// behind the cluster in the p_background column.
func (c *GalaxyCluster) ComputeBackgroundProbability(usePdz bool) ([]float64, error) {
	var (
		zs  []float64
		err error
	)
	if !usePdz {
		zs, err = c.Galcat.Column(ColZ)
		if err != nil {
			return nil, err
		}
	}
	p, err := dataops.ComputeBackgroundProbability(c.Z, zs, c.PzBins, c.PzPdf, usePdz)
	if err != nil {
		return nil, err
	}
	c.overwriteWarn(ColPBackground)
	if err := c.Galcat.AddColumn(ColPBackground, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ComputeGalaxyWeights derives per-source stacking weights from the catalog
// and stores them in the w_ls column.
func (c *GalaxyCluster) ComputeGalaxyWeights(cm cosmo.Cosmology, opts dataops.WeightOptions) ([]float64, error) {
	data := dataops.WeightData{PzBins: c.PzBins, PzPdf: c.PzPdf}
	if col, err := c.Galcat.Column(ColZ); err == nil {
		data.ZSource = col
	}
	cols, err := c.Galcat.Columns(ColE1, ColE2)
	if err != nil {
		return nil, err
	}
	data.Shape1, data.Shape2 = cols[0], cols[1]
	if opts.UseShapeError {
		cols, err := c.Galcat.Columns(ColE1Err, ColE2Err)
		if err != nil {
			return nil, err
		}
		data.Shape1Err, data.Shape2Err = cols[0], cols[1]
	}
	w, err := dataops.ComputeGalaxyWeights(c.Z, cm, data, opts)
	if err != nil {
		return nil, err
	}
	c.overwriteWarn(ColWeight)
	if err := c.Galcat.AddColumn(ColWeight, w); err != nil {
		return nil, err
	}
	return w, nil
}

// MakeRadialProfile bins the stored tangential and cross components into a
// radial profile, renaming them gt and gx, and keeps the result on the
// cluster.
func (c *GalaxyCluster) MakeRadialProfile(opts dataops.ProfileOptions) (*dataops.Profile, error) {
	cols, err := c.Galcat.Columns(ColTheta, ColTangential, ColCross)
	if err != nil {
		return nil, err
	}
	theta, et, ex := cols[0], cols[1], cols[2]

	if opts.Weights == nil && c.Galcat.HasColumn(ColWeight) {
		opts.Weights, _ = c.Galcat.Column(ColWeight)
	}
	if opts.Cosmo != nil && opts.ZLens == 0 {
		opts.ZLens = c.Z
	}
	if opts.GalaxyIDs == nil && c.Galcat.HasIDs() {
		opts.GalaxyIDs, _ = c.Galcat.IDs()
	}
	if opts.Logger == nil {
		opts.Logger = c.log
	}
	if opts.AngsepUnits == "" {
		opts.AngsepUnits = units.Radians
	}

	prof, err := dataops.MakeRadialProfile(
		[][]float64{et, ex}, []string{ColProfileShear, ColProfileCross}, theta, opts)
	if err != nil {
		return nil, err
	}
	if c.Profile != nil {
		c.log.Warn("replacing existing radial profile", "cluster", c.ID)
	}
	c.Profile = prof
	return prof, nil
}

// SetRALower rewrites the cluster and catalog right ascensions into the
// 360-degree window starting at raLow.
func (c *GalaxyCluster) SetRALower(raLow float64) error {
	c.RA = wrapRA(c.RA, raLow)
	if !c.Galcat.HasColumn(ColRA) {
		return nil
	}
	ra, err := c.Galcat.Column(ColRA)
	if err != nil {
		return err
	}
	out := make([]float64, len(ra))
	for i, r := range ra {
		out[i] = wrapRA(r, raLow)
	}
	return c.Galcat.AddColumn(ColRA, out)
}

func wrapRA(ra, raLow float64) float64 {
	out := math.Mod(ra-raLow, 360)
	if out < 0 {
		out += 360
	}
	return out + raLow
}

func (c *GalaxyCluster) overwriteWarn(col string) {
	if c.Galcat.HasColumn(col) {
		c.log.Warn("overwriting existing catalog column", "cluster", c.ID, "column", col)
	}
}
