package cluster

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rancesol/CLMM/dataops"
	"github.com/rancesol/CLMM/errs"
	"github.com/rancesol/CLMM/units"
)

// Config declares a cluster and its measurement settings in YAML, so a
// stacking run can be described without code:
//
//	id: Abell-3827
//	ra: 330.47
//	dec: -59.95
//	z: 0.099
//	profile:
//	  bin_units: mpc
//	  method: evenlog10width
//	  rmin: 0.3
//	  rmax: 5.0
//	  nbins: 10
//	  error_model: ste
type Config struct {
	ID      string        `yaml:"id"`
	RA      float64       `yaml:"ra"`
	Dec     float64       `yaml:"dec"`
	Z       float64       `yaml:"z"`
	Profile ProfileConfig `yaml:"profile"`
}

// ProfileConfig declares how the radial profile is binned.
type ProfileConfig struct {
	BinUnits         string    `yaml:"bin_units"`
	Method           string    `yaml:"method"`
	RMin             float64   `yaml:"rmin"`
	RMax             float64   `yaml:"rmax"`
	NBins            int       `yaml:"nbins"`
	Bins             []float64 `yaml:"bins"`
	ErrorModel       string    `yaml:"error_model"`
	IncludeEmptyBins bool      `yaml:"include_empty_bins"`
}

// ParseConfig decodes and validates a YAML cluster declaration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Configf("cluster config", "", err.Error())
	}
	if cfg.ID == "" {
		return nil, errs.Configf("id", "", "must not be empty")
	}
	if cfg.RA < -360 || cfg.RA > 360 {
		return nil, errs.Domainf("ra", cfg.RA, "right ascension must lie in [-360, 360] degrees")
	}
	if cfg.Dec < -90 || cfg.Dec > 90 {
		return nil, errs.Domainf("dec", cfg.Dec, "declination must lie in [-90, 90] degrees")
	}
	if cfg.Z < 0 {
		return nil, errs.Domainf("z", cfg.Z, "cluster redshift must be non-negative")
	}
	if _, err := cfg.Profile.options(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Cluster instantiates the declared GalaxyCluster with an empty catalog.
func (cfg *Config) Cluster(opts ...Option) (*GalaxyCluster, error) {
	return New(cfg.ID, cfg.RA, cfg.Dec, cfg.Z, nil, opts...)
}

// ProfileOptions converts the declared binning into dataops options. The
// cosmology needed for physical bin units is attached by the caller.
func (cfg *Config) ProfileOptions() (dataops.ProfileOptions, error) {
	return cfg.Profile.options()
}

func (p *ProfileConfig) options() (dataops.ProfileOptions, error) {
	opts := dataops.ProfileOptions{
		NBins:            p.NBins,
		IncludeEmptyBins: p.IncludeEmptyBins,
	}
	if p.BinUnits != "" {
		u, err := units.Parse(p.BinUnits)
		if err != nil {
			return opts, err
		}
		opts.BinUnits = u
	}
	switch p.Method {
	case "", string(dataops.BinEvenWidth):
		opts.BinMethod = dataops.BinEvenWidth
	case string(dataops.BinEvenLog10Width):
		opts.BinMethod = dataops.BinEvenLog10Width
	case string(dataops.BinEqualOccupation):
		opts.BinMethod = dataops.BinEqualOccupation
	default:
		return opts, errs.Configf("profile.method", p.Method,
			"supported: evenwidth, evenlog10width, equaloccupation")
	}
	switch p.ErrorModel {
	case "":
		opts.ErrorModel = dataops.ErrSTE
	case string(dataops.ErrSTE), string(dataops.ErrSTD):
		opts.ErrorModel = dataops.ErrorModel(p.ErrorModel)
	default:
		return opts, errs.Configf("profile.error_model", p.ErrorModel, "supported: ste, std")
	}

	switch {
	case p.Bins != nil:
		opts.Bins = p.Bins
	case p.RMin != 0 || p.RMax != 0:
		if p.NBins < 1 {
			return opts, errs.Configf("profile.nbins", fmt.Sprint(p.NBins), "need at least one bin")
		}
		if opts.BinMethod == dataops.BinEqualOccupation {
			// Equal occupation depends on the data; edges are placed when
			// the profile is built.
			break
		}
		edges, err := dataops.MakeBins(p.RMin, p.RMax, p.NBins, opts.BinMethod, nil)
		if err != nil {
			return opts, err
		}
		opts.Bins = edges
	}
	return opts, nil
}
