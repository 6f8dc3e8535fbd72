package cosmo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Linear matter power spectrum from the Eisenstein & Hu (1998) zero-baryon
// transfer function, normalized to Sigma8 and evolved with the Carroll,
// Press & Turner (1992) growth factor. Accurate to a few percent, which is
// enough for the two-halo term; pipelines needing better should inject a
// Boltzmann-code cosmology instead.

const tcmb = 2.7255 // K

// transferEH98 is the zero-baryon (no-wiggle) transfer function, k in 1/Mpc.
func (c *FlatLCDM) transferEH98(k float64) float64 {
	h := c.H0 / 100
	om := c.OmegaM0()
	omh2 := om * h * h
	obh2 := c.OmegaB0 * h * h
	theta := tcmb / 2.7

	// Sound horizon approximation, EH98 eq. 26 (Mpc).
	s := 44.5 * math.Log(9.83/omh2) / math.Sqrt(1+10*math.Pow(obh2, 0.75))

	// Shape-parameter suppression, EH98 eqs. 30-31.
	fb := c.OmegaB0 / om
	alphaGamma := 1 - 0.328*math.Log(431*omh2)*fb + 0.38*math.Log(22.3*omh2)*fb*fb
	gammaEff := om * h * (alphaGamma + (1-alphaGamma)/(1+math.Pow(0.43*k*s, 4)))

	q := k / h * theta * theta / gammaEff
	l0 := math.Log(2*math.E + 1.8*q)
	c0 := 14.2 + 731.0/(1+62.5*q)
	return l0 / (l0 + c0*q*q)
}

// growth is the CPT92 linear growth factor normalized to growth(0) = 1.
func (c *FlatLCDM) growth(z float64) float64 {
	return c.growthUnnorm(z) / c.growthUnnorm(0)
}

func (c *FlatLCDM) growthUnnorm(z float64) float64 {
	om := c.OmegaM0()
	e2 := om*math.Pow(1+z, 3) + (1 - om)
	omz := om * math.Pow(1+z, 3) / e2
	olz := (1 - om) / e2
	g := 2.5 * omz / (math.Pow(omz, 4.0/7.0) - olz + (1+omz/2)*(1+olz/70))
	return g / (1 + z)
}

// sigmaR2Unnorm is the unnormalized variance of the density field smoothed
// with a top-hat of radius r (Mpc) at z=0, using P(k) = k^ns T(k)^2.
func (c *FlatLCDM) sigmaR2Unnorm(r float64) float64 {
	integrand := func(lnk float64) float64 {
		k := math.Exp(lnk)
		x := k * r
		w := 3 * (math.Sin(x) - x*math.Cos(x)) / (x * x * x)
		t := c.transferEH98(k)
		// d sigma^2 / d ln k = k^3 P(k) W^2 / (2 pi^2)
		return k * k * k * math.Pow(k, c.Ns) * t * t * w * w / (2 * math.Pi * math.Pi)
	}
	return quad.Fixed(integrand, math.Log(1e-5), math.Log(1e2), 200, nil, 0)
}

// LinearMatterPower returns P(k, z) in Mpc^3 for k in 1/Mpc, implementing
// the optional PowerSpectrum capability.
func (c *FlatLCDM) LinearMatterPower(k, z float64) float64 {
	if k <= 0 {
		return 0
	}
	if c.pknorm == 0 {
		r8 := 8 / (c.H0 / 100) // 8 Mpc/h in Mpc
		c.pknorm = c.Sigma8 * c.Sigma8 / c.sigmaR2Unnorm(r8)
	}
	t := c.transferEH98(k)
	d := c.growth(z)
	return c.pknorm * math.Pow(k, c.Ns) * t * t * d * d
}
