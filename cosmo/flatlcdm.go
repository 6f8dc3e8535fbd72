package cosmo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// comovingQuadNodes is the Gauss-Legendre order used for the comoving
// distance integral. The integrand 1/E(z) is smooth, so a moderate fixed
// order holds relative errors well below 1e-8 out to z ~ 1100.
const comovingQuadNodes = 60

// FlatLCDM is a reference flat LCDM distance engine. It exists so the module
// is usable and testable without an external cosmology backend; production
// pipelines are expected to inject their own Cosmology implementation.
type FlatLCDM struct {
	// H0 is the Hubble constant in km/s/Mpc.
	H0 float64

	// OmegaDM0 and OmegaB0 are the dark matter and baryon density
	// parameters today. OmegaM0 = OmegaDM0 + OmegaB0.
	OmegaDM0 float64
	OmegaB0  float64

	// Ns is the scalar spectral index and Sigma8 the power spectrum
	// normalization, used only by the linear matter power spectrum.
	Ns     float64
	Sigma8 float64

	pknorm float64 // lazily computed sigma8 normalization
}

// NewFlatLCDM returns a flat LCDM cosmology with the given parameters.
func NewFlatLCDM(h0, omegaDM0, omegaB0 float64) *FlatLCDM {
	return &FlatLCDM{
		H0:       h0,
		OmegaDM0: omegaDM0,
		OmegaB0:  omegaB0,
		Ns:       0.96,
		Sigma8:   0.8,
	}
}

// OmegaM0 returns the total matter density parameter today.
func (c *FlatLCDM) OmegaM0() float64 { return c.OmegaDM0 + c.OmegaB0 }

// efunc is E(z) = H(z)/H0 for a flat universe.
func (c *FlatLCDM) efunc(z float64) float64 {
	om := c.OmegaM0()
	return math.Sqrt(om*math.Pow(1+z, 3) + (1 - om))
}

// hubbleDistance is c/H0 in Mpc.
func (c *FlatLCDM) hubbleDistance() float64 {
	return CLightKMS / c.H0
}

// comovingDistance returns the line-of-sight comoving distance in Mpc.
func (c *FlatLCDM) comovingDistance(z float64) float64 {
	if z <= 0 {
		return 0
	}
	integral := quad.Fixed(func(zp float64) float64 {
		return 1.0 / c.efunc(zp)
	}, 0, z, comovingQuadNodes, nil, 0)
	return c.hubbleDistance() * integral
}

// AngularDiameterDistance returns D_A(z) in Mpc.
func (c *FlatLCDM) AngularDiameterDistance(z float64) float64 {
	return c.comovingDistance(z) / (1 + z)
}

// AngularDiameterDistanceZ1Z2 returns D_A(z1, z2) in Mpc. For a flat
// universe this is the difference of comoving distances scaled by 1/(1+z2).
func (c *FlatLCDM) AngularDiameterDistanceZ1Z2(z1, z2 float64) float64 {
	return (c.comovingDistance(z2) - c.comovingDistance(z1)) / (1 + z2)
}

// CriticalSurfaceDensity returns Sigma_crit in Msun/Mpc^2, +Inf for sources
// at or in front of the lens.
func (c *FlatLCDM) CriticalSurfaceDensity(zLens, zSource float64) float64 {
	if zSource <= zLens {
		return math.Inf(1)
	}
	dl := c.AngularDiameterDistance(zLens)
	ds := c.AngularDiameterDistance(zSource)
	dls := c.AngularDiameterDistanceZ1Z2(zLens, zSource)
	return SigmaCritPrefactor * ds / (dl * dls)
}

// CriticalDensity returns rho_crit(z) = 3 H(z)^2 / (8 pi G) in Msun/Mpc^3.
func (c *FlatLCDM) CriticalDensity(z float64) float64 {
	hz := c.H0 * c.efunc(z) * 1e3 / MpcToMeter // 1/s
	rhoSI := 3 * hz * hz / (8 * math.Pi * GNewt)
	return rhoSI * MpcToMeter * MpcToMeter * MpcToMeter / SolarMass
}

// MeanMatterDensity returns rho_m(z) = Omega_m rho_crit,0 (1+z)^3.
func (c *FlatLCDM) MeanMatterDensity(z float64) float64 {
	return c.OmegaM0() * c.CriticalDensity(0) * math.Pow(1+z, 3)
}

// RadToMpc converts an angle in radians to physical Mpc at redshift z.
func (c *FlatLCDM) RadToMpc(angle, z float64) float64 {
	return angle * c.AngularDiameterDistance(z)
}

// MpcToRad converts a physical distance in Mpc to radians at redshift z.
func (c *FlatLCDM) MpcToRad(dist, z float64) float64 {
	return dist / c.AngularDiameterDistance(z)
}

// Describe returns a parameter descriptor recorded in profile metadata.
func (c *FlatLCDM) Describe() string {
	return fmt.Sprintf("FlatLCDM(H0=%g, Odm0=%g, Ob0=%g, ns=%g, sigma8=%g)",
		c.H0, c.OmegaDM0, c.OmegaB0, c.Ns, c.Sigma8)
}
