// Package units converts distances between angular and physical unit
// systems. Conversions within one system are fixed rescalings; crossing from
// angular to physical (or back) goes through the cosmology's angular
// diameter distance and therefore requires a lens redshift.
package units

import (
	"math"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

// Unit identifies a supported distance unit. Matching is case-insensitive in
// Parse; the canonical spellings follow the catalog convention.
type Unit string

const (
	Radians Unit = "radians"
	Degrees Unit = "degrees"
	Arcmin  Unit = "arcmin"
	Arcsec  Unit = "arcsec"
	Pc      Unit = "pc"
	Kpc     Unit = "kpc"
	Mpc     Unit = "mpc"
)

// toRadians holds the factor from each angular unit to radians.
var toRadians = map[Unit]float64{
	Radians: 1,
	Degrees: math.Pi / 180,
	Arcmin:  math.Pi / 180 / 60,
	Arcsec:  math.Pi / 180 / 3600,
}

// toMpc holds the factor from each physical unit to Mpc.
var toMpc = map[Unit]float64{
	Pc:  1e-6,
	Kpc: 1e-3,
	Mpc: 1,
}

// Parse maps a case-insensitive unit name to its Unit, or reports a
// configuration error for unknown names.
func Parse(name string) (Unit, error) {
	u := Unit(lower(name))
	if _, ok := toRadians[u]; ok {
		return u, nil
	}
	if _, ok := toMpc[u]; ok {
		return u, nil
	}
	return "", errs.Configf("unit", name, "supported: radians, degrees, arcmin, arcsec, pc, kpc, mpc")
}

// IsAngular reports whether u measures an angle.
func IsAngular(u Unit) bool {
	_, ok := toRadians[u]
	return ok
}

// Convert converts dist from unit u1 to unit u2. Crossing between angular
// and physical units requires a positive redshift and a cosmology; a purely
// angular or purely physical conversion needs neither.
func Convert(dist []float64, u1, u2 Unit, redshift float64, c cosmo.Cosmology) ([]float64, error) {
	out := make([]float64, len(dist))
	switch {
	case IsAngular(u1) && IsAngular(u2):
		f := toRadians[u1] / toRadians[u2]
		for i, d := range dist {
			out[i] = d * f
		}
	case !IsAngular(u1) && !IsAngular(u2):
		f := toMpc[u1] / toMpc[u2]
		for i, d := range dist {
			out[i] = d * f
		}
	default:
		if c == nil {
			return nil, errs.Missingf("angular-physical unit conversion", "cosmology")
		}
		if redshift <= 0 {
			return nil, errs.Domainf("redshift", redshift, "must be positive for angular-physical conversion")
		}
		if IsAngular(u1) {
			for i, d := range dist {
				out[i] = c.RadToMpc(d*toRadians[u1], redshift) / toMpc[u2]
			}
		} else {
			for i, d := range dist {
				out[i] = c.MpcToRad(d*toMpc[u1], redshift) / toRadians[u2]
			}
		}
	}
	return out, nil
}

// ConvertScalar is Convert for a single value.
func ConvertScalar(dist float64, u1, u2 Unit, redshift float64, c cosmo.Cosmology) (float64, error) {
	out, err := Convert([]float64{dist}, u1, u2, redshift, c)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
