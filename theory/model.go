// Package theory models the weak-lensing signal of a parametric dark-matter
// halo: radial density, projected surface densities, shear, convergence,
// reduced shear, magnification and magnification bias, under discrete,
// distribution-based and pre-averaged source-redshift treatments.
package theory

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

// Approx selects the evaluation order for distribution- and beta-mode
// observables. ApproxNone means the exact formula (per-galaxy in discrete
// mode, full PDF integration in distribution mode).
type Approx string

const (
	ApproxNone   Approx = ""
	ApproxOrder1 Approx = "order1"
	ApproxOrder2 Approx = "order2"
)

// BetaMoments carries pre-averaged lensing-efficiency moments.
type BetaMoments struct {
	Mean       float64 // <beta_s>
	SquareMean float64 // <beta_s^2>
}

// SourceRedshift describes the background source population. Exactly one
// field must be set.
type SourceRedshift struct {
	// Discrete holds per-galaxy redshifts: either one value shared by all
	// radii or one value per radius.
	Discrete []float64

	// Distribution is an (optionally unnormalized) redshift density.
	Distribution func(z float64) float64

	// Beta supplies the efficiency moments directly, bypassing
	// integration.
	Beta *BetaMoments
}

// DiscreteSources describes sources with known individual redshifts.
func DiscreteSources(z ...float64) SourceRedshift {
	return SourceRedshift{Discrete: z}
}

// DistributionSources describes sources drawn from a redshift density.
func DistributionSources(p func(z float64) float64) SourceRedshift {
	return SourceRedshift{Distribution: p}
}

// BetaSources describes sources through pre-averaged efficiency moments.
func BetaSources(mean, squareMean float64) SourceRedshift {
	return SourceRedshift{Beta: &BetaMoments{Mean: mean, SquareMean: squareMean}}
}

// DefaultZInf is the reference redshift standing in for an infinitely
// distant source.
const DefaultZInf = 1000.0

// Modeling owns the halo profile parameters and a cosmology, and evaluates
// lensing observables. It is not safe for concurrent mutation: callers that
// share a Modeling across goroutines must serialize the setters against the
// Eval methods.
type Modeling struct {
	mass          float64
	concentration float64
	massdef       MassDef
	delta         int
	family        ProfileFamily
	einastoSlope  float64

	cosmo    cosmo.Cosmology
	zInf     float64
	validate bool
	log      *slog.Logger

	profile *haloProfile // nil until SetHaloDensityProfile succeeds
	twoHalo *twoHaloState
}

// ModelingOption configures a Modeling at construction.
type ModelingOption func(*Modeling)

// WithLogger injects the diagnostics sink. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ModelingOption {
	return func(m *Modeling) { m.log = l }
}

// WithValidation toggles eager input validation. Disable only in inner loops
// with known-good inputs.
func WithValidation(on bool) ModelingOption {
	return func(m *Modeling) { m.validate = on }
}

// WithZInf overrides the reference "infinite" source redshift.
func WithZInf(z float64) ModelingOption {
	return func(m *Modeling) { m.zInf = z }
}

// NewModeling returns an unconfigured model: SetHaloDensityProfile, SetMass,
// SetConcentration and SetCosmo must succeed before observables can be
// evaluated.
func NewModeling(opts ...ModelingOption) *Modeling {
	m := &Modeling{
		zInf:     DefaultZInf,
		validate: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// SetCosmo injects the distance engine.
func (m *Modeling) SetCosmo(c cosmo.Cosmology) error {
	if c == nil {
		return errs.Missingf("SetCosmo", "cosmology")
	}
	m.cosmo = c
	m.twoHalo = nil
	return nil
}

// SetMass sets M_Delta in solar masses.
func (m *Modeling) SetMass(mdelta float64) error {
	if m.validate && (mdelta <= 0 || math.IsNaN(mdelta) || math.IsInf(mdelta, 0)) {
		return errs.Domainf("mdelta", mdelta, "must be a positive finite mass")
	}
	m.mass = mdelta
	return nil
}

// SetConcentration sets c_Delta.
func (m *Modeling) SetConcentration(cdelta float64) error {
	if m.validate && (cdelta <= 0 || math.IsNaN(cdelta) || math.IsInf(cdelta, 0)) {
		return errs.Domainf("cdelta", cdelta, "must be a positive finite concentration")
	}
	m.concentration = cdelta
	return nil
}

// SetEinastoSlope sets the Einasto alpha parameter. It is a capability error
// on any other profile family.
func (m *Modeling) SetEinastoSlope(alpha float64) error {
	if m.profile == nil || m.family != ProfileEinasto {
		return &errs.CapabilityError{Op: "SetEinastoSlope", Backend: string(m.family)}
	}
	p, err := resolveProfile(ProfileEinasto, alpha)
	if err != nil {
		return err
	}
	m.einastoSlope = alpha
	m.profile = p
	return nil
}

// EinastoSlope returns the configured alpha, or a capability error on
// non-Einasto profiles.
func (m *Modeling) EinastoSlope() (float64, error) {
	if m.profile == nil || m.family != ProfileEinasto {
		return 0, &errs.CapabilityError{Op: "EinastoSlope", Backend: string(m.family)}
	}
	return m.einastoSlope, nil
}

// Mass returns M_Delta.
func (m *Modeling) Mass() float64 { return m.mass }

// Concentration returns c_Delta.
func (m *Modeling) Concentration() float64 { return m.concentration }

// Family returns the configured profile family.
func (m *Modeling) Family() ProfileFamily { return m.family }

// MassDefinition returns the configured mass definition and overdensity.
func (m *Modeling) MassDefinition() (MassDef, int) { return m.massdef, m.delta }

// DefaultEinastoSlope is used when an Einasto profile is configured without
// an explicit slope.
const DefaultEinastoSlope = 0.25

// SetHaloDensityProfile configures (or reconfigures) the profile strategy.
// A call with the currently configured triple is a no-op; any change
// re-resolves the strategy.
func (m *Modeling) SetHaloDensityProfile(family ProfileFamily, massdef MassDef, delta int) error {
	if m.validate {
		switch massdef {
		case MassDefMean, MassDefCritical, MassDefVirial:
		default:
			return errs.Configf("massdef", string(massdef), "supported: mean, critical, virial")
		}
		if delta <= 0 {
			return errs.Domainf("delta_mdef", float64(delta), "must be a positive integer")
		}
	}
	if m.profile != nil && family == m.family && massdef == m.massdef && delta == m.delta {
		return nil
	}
	alpha := m.einastoSlope
	if family == ProfileEinasto && alpha == 0 {
		alpha = DefaultEinastoSlope
	}
	p, err := resolveProfile(family, alpha)
	if err != nil {
		return err
	}
	m.family = family
	m.massdef = massdef
	m.delta = delta
	m.einastoSlope = p.alpha
	m.profile = p
	return nil
}

// ready reports whether all preconditions for observable evaluation hold.
func (m *Modeling) ready() error {
	var missing []string
	if m.cosmo == nil {
		missing = append(missing, "cosmology")
	}
	if m.profile == nil {
		missing = append(missing, "halo density profile")
	}
	if m.mass <= 0 {
		missing = append(missing, "mass")
	}
	if m.concentration <= 0 {
		missing = append(missing, "concentration")
	}
	if len(missing) > 0 {
		return errs.Missingf("halo modeling", missing...)
	}
	return nil
}

func (m *Modeling) checkRadii(name string, r []float64) error {
	if !m.validate {
		return nil
	}
	if len(r) == 0 {
		return errs.Missingf("radius array", name)
	}
	for _, v := range r {
		if v < 0 || math.IsNaN(v) {
			return errs.Domainf(name, v, "radii must be non-negative")
		}
	}
	return nil
}

func (m *Modeling) checkRedshift(name string, z float64) error {
	if !m.validate {
		return nil
	}
	if z < 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return errs.Domainf(name, z, "redshift must be non-negative and finite")
	}
	return nil
}

// haloScale holds the physical scale of the profile at a cluster redshift.
type haloScale struct {
	rdelta float64 // overdensity radius, Mpc
	rs     float64 // scale radius, Mpc
	rhoS   float64 // characteristic density, Msun/Mpc^3
}

func (m *Modeling) scaleAt(zCl float64) haloScale {
	deltaEff, rhoRef := m.overdensityFactor(zCl)
	rdelta := math.Cbrt(3 * m.mass / (4 * math.Pi * deltaEff * rhoRef))
	rs := rdelta / m.concentration
	rhoS := m.mass / (4 * math.Pi * rs * rs * rs * m.profile.enclosedMass(m.concentration))
	return haloScale{rdelta: rdelta, rs: rs, rhoS: rhoS}
}

// Eval3DDensity returns rho(r) in Msun/Mpc^3 at 3D radii r3d (Mpc) for a
// cluster at zCl.
func (m *Modeling) Eval3DDensity(r3d []float64, zCl float64) ([]float64, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if err := m.checkRadii("r3d", r3d); err != nil {
		return nil, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return nil, err
	}
	sc := m.scaleAt(zCl)
	out := make([]float64, len(r3d))
	for i, r := range r3d {
		if r == 0 {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = sc.rhoS * m.profile.density(r/sc.rs)
	}
	return out, nil
}

// EvalSurfaceDensity returns Sigma(R) in Msun/Mpc^2 at projected radii
// rProj (Mpc).
func (m *Modeling) EvalSurfaceDensity(rProj []float64, zCl float64) ([]float64, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if err := m.checkRadii("r_proj", rProj); err != nil {
		return nil, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return nil, err
	}
	sc := m.scaleAt(zCl)
	out := make([]float64, len(rProj))
	for i, r := range rProj {
		out[i] = sc.rhoS * sc.rs * m.profile.surfaceDensityShape(r/sc.rs)
	}
	return out, nil
}

// EvalMeanSurfaceDensity returns SigmaBar(<R) in Msun/Mpc^2.
func (m *Modeling) EvalMeanSurfaceDensity(rProj []float64, zCl float64) ([]float64, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if err := m.checkRadii("r_proj", rProj); err != nil {
		return nil, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return nil, err
	}
	sc := m.scaleAt(zCl)
	out := make([]float64, len(rProj))
	for i, r := range rProj {
		out[i] = sc.rhoS * sc.rs * m.profile.meanSurfaceDensityShape(r/sc.rs)
	}
	return out, nil
}

// EvalExcessSurfaceDensity returns DeltaSigma = SigmaBar(<R) - Sigma(R).
func (m *Modeling) EvalExcessSurfaceDensity(rProj []float64, zCl float64) ([]float64, error) {
	mean, err := m.EvalMeanSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}
	sigma, err := m.EvalSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(mean))
	for i := range mean {
		out[i] = mean[i] - sigma[i]
	}
	return out, nil
}

// EvalCriticalSurfaceDensity returns Sigma_crit(zLens, z) per source, +Inf
// for sources at or in front of the lens.
func (m *Modeling) EvalCriticalSurfaceDensity(zLens float64, zSrc []float64) ([]float64, error) {
	if m.cosmo == nil {
		return nil, errs.Missingf("critical surface density", "cosmology")
	}
	if err := m.checkRedshift("z_len", zLens); err != nil {
		return nil, err
	}
	out := make([]float64, len(zSrc))
	for i, z := range zSrc {
		if m.validate && (z < 0 || math.IsNaN(z)) {
			return nil, errs.Domainf("z_src", z, "redshift must be non-negative")
		}
		out[i] = m.cosmo.CriticalSurfaceDensity(zLens, z)
	}
	return out, nil
}

// EvalCriticalSurfaceDensityEff returns the effective critical surface
// density for a source photo-z PDF sampled on pzBins:
// Sigma_crit,eff = [ int p(z)/Sigma_crit(z) dz ]^-1 with p normalized on the
// grid. Foreground support contributes zero through the +Inf of Sigma_crit.
func (m *Modeling) EvalCriticalSurfaceDensityEff(zLens float64, pzBins, pzPdf []float64) (float64, error) {
	if m.cosmo == nil {
		return 0, errs.Missingf("effective critical surface density", "cosmology")
	}
	if err := m.checkRedshift("z_len", zLens); err != nil {
		return 0, err
	}
	if len(pzBins) != len(pzPdf) || len(pzBins) < 2 {
		return 0, errs.Configf("pz_grid", "", "pzBins and pzPdf must be equal-length with at least 2 points")
	}
	kernel := make([]float64, len(pzBins))
	for i, z := range pzBins {
		sc := m.cosmo.CriticalSurfaceDensity(zLens, z)
		kernel[i] = pzPdf[i] / sc // zero where sc is +Inf
	}
	norm := integrate.Trapezoidal(pzBins, pzPdf)
	integral := integrate.Trapezoidal(pzBins, kernel)
	if integral <= 0 || norm <= 0 {
		return math.Inf(1), nil
	}
	return norm / integral, nil
}

// observable identifies which lensing quantity an evaluation produces.
type observable int

const (
	obsTangentialShear observable = iota
	obsConvergence
	obsReducedShear
	obsMagnification
	obsMagnificationBias
)

// nullValue is the lensing-null substitution for foreground sources.
func (o observable) nullValue() float64 {
	switch o {
	case obsMagnification, obsMagnificationBias:
		return 1
	default:
		return 0
	}
}

// linear reports whether the observable is linear in the lensing efficiency,
// which makes the moment-only exact average valid without an approximation
// order.
func (o observable) linear() bool {
	return o == obsTangentialShear || o == obsConvergence
}

func (o observable) String() string {
	switch o {
	case obsTangentialShear:
		return "tangential shear"
	case obsConvergence:
		return "convergence"
	case obsReducedShear:
		return "reduced tangential shear"
	case obsMagnification:
		return "magnification"
	default:
		return "magnification bias"
	}
}

// EvalTangentialShear computes gamma_t at projected radii rProj for the
// given source treatment.
func (m *Modeling) EvalTangentialShear(rProj []float64, zCl float64, src SourceRedshift, approx Approx) ([]float64, error) {
	return m.evalObservable(obsTangentialShear, rProj, zCl, src, approx, 0)
}

// EvalConvergence computes kappa = Sigma/Sigma_crit.
func (m *Modeling) EvalConvergence(rProj []float64, zCl float64, src SourceRedshift, approx Approx) ([]float64, error) {
	return m.evalObservable(obsConvergence, rProj, zCl, src, approx, 0)
}

// EvalReducedTangentialShear computes g_t = gamma_t / (1 - kappa).
func (m *Modeling) EvalReducedTangentialShear(rProj []float64, zCl float64, src SourceRedshift, approx Approx) ([]float64, error) {
	return m.evalObservable(obsReducedShear, rProj, zCl, src, approx, 0)
}

// EvalMagnification computes mu = 1/((1-kappa)^2 - gamma_t^2). Only the
// tangential shear enters, which is exact for spherically averaged profiles.
func (m *Modeling) EvalMagnification(rProj []float64, zCl float64, src SourceRedshift, approx Approx) ([]float64, error) {
	return m.evalObservable(obsMagnification, rProj, zCl, src, approx, 0)
}

// EvalMagnificationBias computes mu^(alpha-1) for a cumulative source count
// slope alpha.
func (m *Modeling) EvalMagnificationBias(rProj []float64, zCl float64, src SourceRedshift, approx Approx, alpha float64) ([]float64, error) {
	if m.validate && (math.IsNaN(alpha) || math.IsInf(alpha, 0)) {
		return nil, errs.Domainf("alpha", alpha, "count slope must be finite")
	}
	return m.evalObservable(obsMagnificationBias, rProj, zCl, src, approx, alpha)
}

// validateSourceMode enforces the (z_src_info, approx) pairing rules.
func validateSourceMode(o observable, src SourceRedshift, approx Approx) error {
	set := 0
	if src.Discrete != nil {
		set++
	}
	if src.Distribution != nil {
		set++
	}
	if src.Beta != nil {
		set++
	}
	if set != 1 {
		return errs.Configf("z_src_info", "", "exactly one source description must be set")
	}
	switch approx {
	case ApproxNone, ApproxOrder1, ApproxOrder2:
	default:
		return errs.Configf("approx", string(approx), "supported: order1, order2 or none")
	}
	if src.Discrete != nil && approx != ApproxNone {
		return errs.Configf("approx", string(approx), "approximations require a distribution or beta source description")
	}
	if src.Beta != nil && approx == ApproxNone && !o.linear() {
		return errs.Configf("approx", string(approx), o.String()+" with beta sources requires order1 or order2")
	}
	return nil
}

func (m *Modeling) evalObservable(o observable, rProj []float64, zCl float64, src SourceRedshift, approx Approx, alpha float64) ([]float64, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if err := m.checkRadii("r_proj", rProj); err != nil {
		return nil, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return nil, err
	}
	if err := validateSourceMode(o, src, approx); err != nil {
		return nil, err
	}

	switch {
	case src.Discrete != nil:
		return m.evalDiscrete(o, rProj, zCl, src.Discrete, alpha)
	case src.Distribution != nil && approx == ApproxNone:
		return m.evalDistributionExact(o, rProj, zCl, src.Distribution, alpha)
	default:
		moments, err := m.sourceMoments(zCl, src)
		if err != nil {
			return nil, err
		}
		return m.evalApprox(o, rProj, zCl, moments, approx, alpha)
	}
}

// pointObservable evaluates the exact single-source formula at one radius.
func pointObservable(o observable, deltaSigma, sigma, sigmaCrit, alpha float64) float64 {
	gamma := deltaSigma / sigmaCrit
	kappa := sigma / sigmaCrit
	switch o {
	case obsTangentialShear:
		return gamma
	case obsConvergence:
		return kappa
	case obsReducedShear:
		return gamma / (1 - kappa)
	case obsMagnification:
		return 1 / ((1-kappa)*(1-kappa) - gamma*gamma)
	default:
		mu := 1 / ((1-kappa)*(1-kappa) - gamma*gamma)
		return math.Pow(mu, alpha-1)
	}
}

// evalDiscrete handles per-galaxy redshifts with scalar broadcasting on
// either side. Sources at or in front of the cluster produce the
// lensing-null value with a warning, never an error.
func (m *Modeling) evalDiscrete(o observable, rProj []float64, zCl float64, zSrc []float64, alpha float64) ([]float64, error) {
	if m.validate {
		for _, z := range zSrc {
			if z < 0 || math.IsNaN(z) {
				return nil, errs.Domainf("z_src", z, "redshift must be non-negative")
			}
		}
	}
	n := len(rProj)
	if len(zSrc) > n {
		if n != 1 {
			return nil, errs.Configf("z_src", "", "z_src length must be 1 or match r_proj")
		}
		n = len(zSrc)
	} else if len(zSrc) != 1 && len(zSrc) != n {
		return nil, errs.Configf("z_src", "", "z_src length must be 1 or match r_proj")
	}

	deltaSigma, err := m.EvalExcessSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}
	sigma, err := m.EvalSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	foreground := 0
	for i := 0; i < n; i++ {
		ri := i
		if len(rProj) == 1 {
			ri = 0
		}
		zi := i
		if len(zSrc) == 1 {
			zi = 0
		}
		if zSrc[zi] <= zCl {
			out[i] = o.nullValue()
			foreground++
			continue
		}
		sc := m.cosmo.CriticalSurfaceDensity(zCl, zSrc[zi])
		out[i] = pointObservable(o, deltaSigma[ri], sigma[ri], sc, alpha)
	}
	if foreground > 0 {
		m.log.Warn("sources at or below the cluster redshift give no lensing signal; substituting null values",
			"observable", o.String(), "count", foreground, "z_cluster", zCl)
	}
	return out, nil
}

// distributionQuadNodes is the Gauss-Legendre order for redshift-PDF
// averages, shared with the BetaAverager so the exact and approximate paths
// agree on quadrature.
const distributionQuadNodes = 128

// evalDistributionExact averages the exact observable over the source
// redshift density: <f>(r) = int p(z) f(r,z) dz / int p(z) dz on
// [zCl + cut, zMax].
func (m *Modeling) evalDistributionExact(o observable, rProj []float64, zCl float64, p func(float64) float64, alpha float64) ([]float64, error) {
	deltaSigma, err := m.EvalExcessSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}
	sigma, err := m.EvalSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}
	zmin := zCl + DefaultDeltaZCut
	zmax := DefaultZMax
	norm := quad.Fixed(p, zmin, zmax, distributionQuadNodes, nil, 0)
	if norm <= 0 {
		return nil, errs.Domainf("z_distrib", norm, "distribution has no support behind the cluster")
	}
	out := make([]float64, len(rProj))
	for i := range rProj {
		num := quad.Fixed(func(z float64) float64 {
			sc := m.cosmo.CriticalSurfaceDensity(zCl, z)
			return p(z) * pointObservable(o, deltaSigma[i], sigma[i], sc, alpha)
		}, zmin, zmax, distributionQuadNodes, nil, 0)
		out[i] = num / norm
	}
	return out, nil
}

// sourceMoments resolves <beta_s>, <beta_s^2> either from the supplied pair
// or by integrating the distribution.
func (m *Modeling) sourceMoments(zCl float64, src SourceRedshift) (BetaMoments, error) {
	if src.Beta != nil {
		b := *src.Beta
		if m.validate && (b.Mean <= 0 || b.SquareMean <= 0) {
			return BetaMoments{}, errs.Domainf("beta_s_mean", b.Mean, "efficiency moments must be positive")
		}
		return b, nil
	}
	avg := NewBetaAverager(m.cosmo)
	avg.Distribution = src.Distribution
	mean, err := avg.BetaSMean(zCl, m.zInf)
	if err != nil {
		return BetaMoments{}, err
	}
	square, err := avg.BetaSSquareMean(zCl, m.zInf)
	if err != nil {
		return BetaMoments{}, err
	}
	return BetaMoments{Mean: mean, SquareMean: square}, nil
}

// evalApprox applies the order1/order2 expansion in the efficiency moments
// to the reference-redshift observables. order2 reduces exactly to order1
// when SquareMean -> Mean^2.
func (m *Modeling) evalApprox(o observable, rProj []float64, zCl float64, b BetaMoments, approx Approx, alpha float64) ([]float64, error) {
	deltaSigma, err := m.EvalExcessSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}
	sigma, err := m.EvalSurfaceDensity(rProj, zCl)
	if err != nil {
		return nil, err
	}
	scInf := m.cosmo.CriticalSurfaceDensity(zCl, m.zInf)

	bs := b.Mean
	bs2 := b.SquareMean
	if approx == ApproxOrder1 || approx == ApproxNone {
		bs2 = bs * bs
	}

	out := make([]float64, len(rProj))
	for i := range rProj {
		gammaInf := deltaSigma[i] / scInf
		kappaInf := sigma[i] / scInf
		switch o {
		case obsTangentialShear:
			out[i] = bs * gammaInf
		case obsConvergence:
			out[i] = bs * kappaInf
		case obsReducedShear:
			first := bs * gammaInf / (1 - bs*kappaInf)
			out[i] = first * (1 + (bs2/(bs*bs)-1)*bs*kappaInf)
		case obsMagnification:
			out[i] = 1 + 2*bs*kappaInf + 3*bs2*kappaInf*kappaInf + bs2*gammaInf*gammaInf
		default: // obsMagnificationBias
			out[i] = 1 + (alpha-1)*2*bs*kappaInf +
				(2*alpha-1)*(alpha-1)*bs2*kappaInf*kappaInf +
				(alpha-1)*bs2*gammaInf*gammaInf
		}
	}
	return out, nil
}

// EvalRdelta returns the overdensity radius r_Delta in Mpc at zCl.
func (m *Modeling) EvalRdelta(zCl float64) (float64, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return 0, err
	}
	return m.scaleAt(zCl).rdelta, nil
}

// EvalMassInRadius returns the enclosed mass M(<r) in Msun using the
// profile-family enclosed-mass form normalized at r_Delta/c_Delta.
func (m *Modeling) EvalMassInRadius(r3d []float64, zCl float64) ([]float64, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if err := m.checkRadii("r3d", r3d); err != nil {
		return nil, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return nil, err
	}
	sc := m.scaleAt(zCl)
	norm := m.profile.enclosedMass(m.concentration)
	out := make([]float64, len(r3d))
	for i, r := range r3d {
		out[i] = m.mass * m.profile.enclosedMass(r/sc.rs) / norm
	}
	return out, nil
}

// ConvertMassConcentration re-expresses (mass, concentration) under a target
// (family, massdef, overdensity[, einastoSlope]): the physical profile is
// held fixed, the target overdensity radius is found by root-finding on the
// mean enclosed density, and the pair is read off there. Converting to the
// current configuration returns (mass, concentration) unchanged.
func (m *Modeling) ConvertMassConcentration(zCl float64, family ProfileFamily, massdef MassDef, delta int, einastoSlope float64) (float64, float64, error) {
	if err := m.ready(); err != nil {
		return 0, 0, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return 0, 0, err
	}
	if _, err := resolveProfile(family, pickSlope(family, einastoSlope)); err != nil {
		return 0, 0, err
	}
	switch massdef {
	case MassDefMean, MassDefCritical, MassDefVirial:
	default:
		return 0, 0, errs.Configf("massdef", string(massdef), "supported: mean, critical, virial")
	}
	if delta <= 0 {
		return 0, 0, errs.Domainf("delta_mdef", float64(delta), "must be a positive integer")
	}

	sc := m.scaleAt(zCl)
	deltaEff, rhoRef := m.overdensityFor(massdef, delta, zCl)

	// Mean enclosed density minus the target threshold; strictly
	// decreasing in r, so the root is unique.
	f := func(r float64) float64 {
		enclosed := 4 * math.Pi * sc.rhoS * sc.rs * sc.rs * sc.rs * m.profile.enclosedMass(r/sc.rs)
		return enclosed - 4.0/3.0*math.Pi*r*r*r*deltaEff*rhoRef
	}
	rTarget, err := brentRoot(f, sc.rdelta/100, sc.rdelta*100, 1e-12)
	if err != nil {
		return 0, 0, err
	}
	massTarget := 4 * math.Pi * sc.rhoS * sc.rs * sc.rs * sc.rs * m.profile.enclosedMass(rTarget/sc.rs)
	return massTarget, rTarget / sc.rs, nil
}

func pickSlope(family ProfileFamily, slope float64) float64 {
	if family == ProfileEinasto && slope == 0 {
		return DefaultEinastoSlope
	}
	if family != ProfileEinasto {
		return DefaultEinastoSlope // ignored by resolveProfile
	}
	return slope
}

// overdensityFor returns the effective overdensity and reference density for
// an arbitrary definition at redshift z (see overdensityFactor for the
// configured one).
func (m *Modeling) overdensityFor(massdef MassDef, delta int, z float64) (float64, float64) {
	saved, savedDelta := m.massdef, m.delta
	m.massdef, m.delta = massdef, delta
	d, rho := m.overdensityFactor(z)
	m.massdef, m.delta = saved, savedDelta
	return d, rho
}
