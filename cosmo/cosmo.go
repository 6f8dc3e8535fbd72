// Package cosmo defines the cosmological distance capability consumed by the
// theory and dataops packages, and provides a reference flat LCDM
// implementation. The lensing core only ever calls through the Cosmology
// interface; any external distance engine satisfying it can be injected.
package cosmo

import "math"

// Physical constants, CODATA 2018 + IAU 2015 nominal values.
const (
	// CLightKMS is the speed of light in km/s.
	CLightKMS = 2.99792458e5

	// GNewt is the gravitational constant in m^3 kg^-1 s^-2.
	GNewt = 6.67430e-11

	// PcToMeter is one parsec in meters.
	PcToMeter = 3.085677581491367e16

	// SolarMass is the nominal solar mass in kg (GM_sun / G).
	SolarMass = 1.988409871e30
)

// MpcToMeter is one megaparsec in meters.
const MpcToMeter = PcToMeter * 1.0e6

// SigmaCritPrefactor is c^2/(4 pi G) expressed in Msun/Mpc, so that
// Sigma_crit = SigmaCritPrefactor * D_s / (D_l * D_ls) is in Msun/Mpc^2 when
// the angular diameter distances are in Mpc.
var SigmaCritPrefactor = (CLightKMS * 1e3) * (CLightKMS * 1e3) /
	(4 * math.Pi * GNewt) * MpcToMeter / SolarMass

// Cosmology is the black-box distance engine required by the lensing core.
// All distances are angular diameter distances in Mpc, densities in
// Msun/Mpc^3, surface densities in Msun/Mpc^2.
type Cosmology interface {
	// AngularDiameterDistance returns D_A(z) in Mpc.
	AngularDiameterDistance(z float64) float64

	// AngularDiameterDistanceZ1Z2 returns D_A(z1, z2) in Mpc for z2 >= z1.
	AngularDiameterDistanceZ1Z2(z1, z2 float64) float64

	// CriticalSurfaceDensity returns Sigma_crit(zLens, zSource) in
	// Msun/Mpc^2. Implementations must return +Inf when zSource <= zLens:
	// sources not behind the lens carry no signal.
	CriticalSurfaceDensity(zLens, zSource float64) float64

	// CriticalDensity returns the critical density of the universe at z.
	CriticalDensity(z float64) float64

	// MeanMatterDensity returns the mean matter density at z.
	MeanMatterDensity(z float64) float64

	// RadToMpc converts an angle in radians to a transverse physical
	// distance in Mpc at redshift z.
	RadToMpc(angle, z float64) float64

	// MpcToRad converts a transverse physical distance in Mpc to an angle
	// in radians at redshift z.
	MpcToRad(dist, z float64) float64

	// Describe returns a short descriptor recorded in profile metadata so
	// results can be traced back to the cosmology that produced them.
	Describe() string
}

// PowerSpectrum is the optional capability needed by the two-halo term.
// Cosmologies that cannot evaluate a linear matter power spectrum simply do
// not implement it, and the two-halo operations report a capability error.
type PowerSpectrum interface {
	// LinearMatterPower returns P(k, z) in Mpc^3 for k in 1/Mpc.
	LinearMatterPower(k, z float64) float64
}
