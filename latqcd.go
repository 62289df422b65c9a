// Package latqcd simulates SU(3) lattice gauge theory. A Lattice holds a
// 4D periodic field of gauge links, evolves it by Markov chain Monte
// Carlo under a chosen gauge action, and computes quark propagators by
// inverting the Wilson-Dirac operator on the current configuration.
package latqcd

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"latqcd/action"
	"latqcd/dirac"
	"latqcd/field"
	"latqcd/rng"
	"latqcd/su3"
	"latqcd/update"
)

// Params configure a Lattice.
type Params struct {
	// L and T are the spatial and temporal extents.
	L int
	T int
	// Beta is the inverse coupling and U0 the mean link used for
	// tadpole improvement.
	Beta float64
	U0   float64
	// Action selects the gauge action.
	Action action.Kind
	// NCor is the number of sweeps between measurements.
	NCor int
	// UpdateMethod selects the Monte Carlo link update.
	UpdateMethod update.Method
	// ParallelUpdates selects block-parallel sweeps. BlockSize is the
	// block edge length and must divide both L and T.
	ParallelUpdates bool
	BlockSize       int
	// RandSeed seeds the random number generator. -1 asks for an
	// entropy seed.
	RandSeed int64
}

func DefaultParams() Params {
	return Params{
		L:               4,
		T:               8,
		Beta:            5.5,
		U0:              1,
		Action:          action.Wilson,
		NCor:            10,
		UpdateMethod:    update.Heatbath,
		ParallelUpdates: true,
		BlockSize:       4,
		RandSeed:        -1,
	}
}

type sweeper interface {
	Sweep(f *field.Field, act action.Action)
}

// Lattice is a gauge field together with its Markov chain.
// Its methods are not safe for concurrent use.
type Lattice struct {
	Params Params

	field   *field.Field
	act     action.Action
	src     *rng.Source
	sweeper sweeper
}

// New creates a Lattice with every link set to the identity.
func New(p Params) (*Lattice, error) {
	geo, err := field.NewGeometry(p.L, p.T)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	src := rng.New(p.RandSeed)
	rule := update.RuleFor(p.UpdateMethod)

	var sw sweeper
	if p.ParallelUpdates {
		par, err := update.NewParallel(geo, p.BlockSize, rule, src)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		sw = par
	} else {
		sw = update.NewSequential(rule, src)
	}

	return &Lattice{
		Params:  p,
		field:   field.New(geo),
		act:     action.Action{Kind: p.Action, Beta: p.Beta, U0: p.U0},
		src:     src,
		sweeper: sw,
	}, nil
}

// Cold resets every link to the identity.
func (lat *Lattice) Cold() {
	lat.field.Cold()
}

// Hot randomizes every link.
func (lat *Lattice) Hot() {
	lat.field.Hot(lat.src.Stream())
}

// RunSweeps advances the Markov chain by n sweeps.
func (lat *Lattice) RunSweeps(n int) {
	for range n {
		lat.sweeper.Sweep(lat.field, lat.act)
	}
}

// Thermalize runs 10*NCor sweeps to move the chain away from its start.
func (lat *Lattice) Thermalize() {
	lat.RunSweeps(10 * lat.Params.NCor)
}

// GetLink returns the link at i = (t, x, y, z, direction).
func (lat *Lattice) GetLink(i [5]int) su3.Matrix {
	return lat.field.Link([4]int{i[0], i[1], i[2], i[3]}, i[4])
}

// SetLink sets the link at i = (t, x, y, z, direction). The matrix is
// projected onto SU(3); a singular matrix is rejected.
func (lat *Lattice) SetLink(i [5]int, m su3.Matrix) error {
	return lat.field.SetLink([4]int{i[0], i[1], i[2], i[3]}, i[4], m)
}

// Config is a snapshot of a field configuration together with the
// parameters that produced it. Links has shape (T, L, L, L, 4, 3, 3).
type Config struct {
	Links  *tensor.Dense
	L      int
	T      int
	Beta   float64
	U0     float64
	Action action.Kind
}

// Config snapshots the current configuration. The snapshot is
// independent of the chain and restoring it is bit exact.
func (lat *Lattice) Config() Config {
	return Config{
		Links:  lat.field.Capture(),
		L:      lat.Params.L,
		T:      lat.Params.T,
		Beta:   lat.Params.Beta,
		U0:     lat.Params.U0,
		Action: lat.Params.Action,
	}
}

// SetConfig overwrites the current configuration from a snapshot.
func (lat *Lattice) SetConfig(c Config) error {
	if c.L != lat.Params.L || c.T != lat.Params.T {
		return errors.Errorf("%dx%d, expected %dx%d", c.L, c.T, lat.Params.L, lat.Params.T)
	}
	if err := lat.field.Restore(c.Links); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Propagator is a quark propagator tied to one configuration, one bare
// mass and one source site. Data has shape
// (T, L, L, L, sinkSpin, sinkColor, srcSpin, srcColor).
type Propagator struct {
	Data       *tensor.Dense
	L          int
	T          int
	Beta       float64
	U0         float64
	Action     action.Kind
	Mass       float64
	SourceSite [4]int
	Smear      dirac.SmearOptions
}

// ComputePropagator inverts the Wilson-Dirac operator on the current
// configuration for the 12 point sources at sourceSite. The chain's
// field is not modified.
func (lat *Lattice) ComputePropagator(mass float64, sourceSite [4]int, smr dirac.SmearOptions, opts dirac.SolveOptions) (Propagator, error) {
	data, err := dirac.Propagator(lat.field, mass, sourceSite, smr, opts)
	if err != nil {
		return Propagator{}, errors.Wrap(err, "")
	}
	return Propagator{
		Data:       data,
		L:          lat.Params.L,
		T:          lat.Params.T,
		Beta:       lat.Params.Beta,
		U0:         lat.Params.U0,
		Action:     lat.Params.Action,
		Mass:       mass,
		SourceSite: sourceSite,
		Smear:      smr,
	}, nil
}

// AveragePlaquette returns the plaquette trace averaged over all sites
// and planes, normalized to 1 on a cold field.
func (lat *Lattice) AveragePlaquette() float64 {
	return action.AveragePlaquette(lat.field)
}

// WilsonLoop returns the averaged r by t Wilson loop.
func (lat *Lattice) WilsonLoop(r, t int) float64 {
	return action.WilsonLoop(lat.field, r, t)
}

// TotalAction returns the gauge action summed over the lattice.
func (lat *Lattice) TotalAction() float64 {
	return lat.act.Total(lat.field)
}
