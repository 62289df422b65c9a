// Package update implements the Markov-chain Monte Carlo update rules and
// sweep schedulers for the gauge field.
//
// References:
//   - Quantum Chromodynamics on the Lattice, Gattringer and Lang, chapter 4,
//     for the Cabibbo-Marinari heatbath and Metropolis updates.
package update

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"

	"latqcd/action"
	"latqcd/field"
	"latqcd/rng"
	"latqcd/su3"
)

// defaultMetropolisSpread is the proposal distance used by RuleFor. Wider
// proposals decorrelate faster but are rejected more often; at typical
// couplings 0.15 keeps the acceptance rate around 50%.
const defaultMetropolisSpread = 0.15

// Method enumerates the per-link decision rules.
type Method int

const (
	Heatbath Method = iota
	Metropolis
	StapleMetropolis
)

func ParseMethod(s string) (Method, error) {
	switch s {
	case "heatbath":
		return Heatbath, nil
	case "metropolis":
		return Metropolis, nil
	case "staple_metropolis":
		return StapleMetropolis, nil
	}
	return 0, errors.Errorf("unknown update method %q", s)
}

func (m Method) String() string {
	switch m {
	case Heatbath:
		return "heatbath"
	case Metropolis:
		return "metropolis"
	case StapleMetropolis:
		return "staple_metropolis"
	}
	return "unknown"
}

// Rule updates the link (x, mu) in place using the given random stream.
type Rule func(f *field.Field, act action.Action, x [4]int, mu int, rd *rand.Rand)

// RuleFor returns the decision rule for a method with default parameters.
func RuleFor(m Method) Rule {
	switch m {
	case Metropolis:
		return MetropolisRule(defaultMetropolisSpread)
	case StapleMetropolis:
		return StapleMetropolisRule(defaultMetropolisSpread)
	default:
		return heatbath
	}
}

// heatbath draws a new link from the conditional distribution induced by
// the local staple, one Kennedy-Pendleton SU(2) subgroup at a time.
func heatbath(f *field.Field, act action.Action, x [4]int, mu int, rd *rand.Rand) {
	staple := act.Staple(f, x, mu)
	u := f.Link(x, mu)
	for sub := range su3.Subgroups {
		// The local weight restricted to the subgroup is
		// exp(beta/3 * Re Tr(q * w)) with w the subgroup part of U*staple.
		w := su3.SubgroupOf(u.Mul(staple), sub)
		k := w.Norm()
		if k < 1e-12 {
			continue
		}
		wInv := su3.SU2{w[0] / k, -w[1] / k, -w[2] / k, -w[3] / k}

		q := kennedyPendleton(rd, 2*act.Beta/3*k)
		u = q.Embed(sub).Mul(wInv.Embed(sub)).Mul(u)
	}
	setUnitarized(f, x, mu, u)
}

// kennedyPendleton samples an SU(2) element whose scalar component a0 is
// distributed as sqrt(1-a0^2) * exp(alpha*a0), with the remaining
// components uniform on the sphere of radius sqrt(1-a0^2).
//
// Reference: Kennedy and Pendleton, Phys. Lett. B 156 (1985) 393.
func kennedyPendleton(rd *rand.Rand, alpha float64) su3.SU2 {
	if alpha < 1e-8 {
		return su3.RandSU2(rd)
	}
	var a0 float64
	for {
		r1 := 1 - rd.Float64()
		r2 := 1 - rd.Float64()
		r3 := 1 - rd.Float64()
		lambda2 := -(math.Log(r1) + math.Pow(math.Cos(2*math.Pi*r2), 2)*math.Log(r3)) / (2 * alpha)
		if lambda2 > 1 {
			continue
		}
		r := rd.Float64()
		if r*r <= 1-lambda2 {
			a0 = 1 - 2*lambda2
			break
		}
	}

	// Uniform direction on the sphere of radius sqrt(1-a0^2).
	norm := math.Sqrt(1 - a0*a0)
	var n [3]float64
	for {
		for i := range n {
			n[i] = rd.Float64()*2 - 1
		}
		l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if l > 1e-3 && l <= 1 {
			for i := range n {
				n[i] *= norm / l
			}
			break
		}
	}
	return su3.SU2{a0, n[0], n[1], n[2]}
}

// MetropolisRule returns a rule that perturbs the current link by a random
// SU(3) element a distance spread from the identity and accepts with
// probability min(1, exp(-dS)).
func MetropolisRule(spread float64) Rule {
	return func(f *field.Field, act action.Action, x [4]int, mu int, rd *rand.Rand) {
		sBefore := act.Local(f, x, mu)
		old := f.Link(x, mu)
		cand := su3.RandNear(rd, spread).Mul(old)
		setUnitarized(f, x, mu, cand)
		accept(f, act, x, mu, old, sBefore, rd)
	}
}

// StapleMetropolisRule returns a rule that proposes a link biased toward
// the staple direction to raise the acceptance rate, then applies the same
// Metropolis test.
func StapleMetropolisRule(spread float64) Rule {
	return func(f *field.Field, act action.Action, x [4]int, mu int, rd *rand.Rand) {
		sBefore := act.Local(f, x, mu)
		old := f.Link(x, mu)

		cand, err := act.Staple(f, x, mu).Adjoint().Unitarize()
		if err != nil {
			// A vanishing staple carries no bias; fall back to a plain proposal.
			cand = old
		}
		cand = su3.RandNear(rd, spread).Mul(cand)
		setUnitarized(f, x, mu, cand)
		accept(f, act, x, mu, old, sBefore, rd)
	}
}

func accept(f *field.Field, act action.Action, x [4]int, mu int, old su3.Matrix, sBefore float64, rd *rand.Rand) {
	dS := act.Local(f, x, mu) - sBefore
	if dS <= 0 {
		return
	}
	if rd.Float64() < math.Exp(-dS) {
		return
	}
	setUnitarized(f, x, mu, old)
}

func setUnitarized(f *field.Field, x [4]int, mu int, m su3.Matrix) {
	if err := f.SetLink(x, mu, m); err != nil {
		// Candidates are products of SU(3) elements and cannot be singular.
		panic(err)
	}
}

// Sequential sweeps all links in a fixed lexicographic order, each update
// seeing all prior updates of the sweep.
type Sequential struct {
	rule Rule
	rd   *rand.Rand
}

func NewSequential(rule Rule, src *rng.Source) *Sequential {
	return &Sequential{rule: rule, rd: src.Stream()}
}

func (s *Sequential) Sweep(f *field.Field, act action.Action) {
	for site := range f.Geo.NumSites() {
		x := f.Geo.SiteAt(site)
		for mu := range field.NumDirs {
			s.rule(f, act, x, mu, s.rd)
		}
	}
}

// numColors is one color class per parity vector of the four block
// coordinates.
const numColors = 16

// Parallel partitions the lattice into cubic blocks of edge blockSize and
// updates them concurrently, one block-parity color class at a time. All
// blocks of one color complete before any block of the next color starts.
// Coloring by the full parity vector puts the nearest block of the same
// color two blocks away in every direction it differs, while a staple
// reaches at most two sites past the block boundary, so with blockSize at
// least 2 every staple read stays inside blocks of other colors and no
// per-link locks are needed.
type Parallel struct {
	rule      Rule
	blockSize int
	subSweeps int

	// blocks[i] lists the site indices of block i; colors partitions the
	// block indices by the parity vector of the block coordinates.
	blocks [][]int
	colors [numColors][]int
	rds    []*rand.Rand
}

// NewParallel builds the block decomposition. blockSize must be at least 2
// so staple reads stay within adjacent blocks, and must evenly divide both
// L and T into an even number of blocks per dimension (or a single block)
// so the parity coloring survives the torus wraparound. Anything else is a
// construction error, not a tuning problem.
func NewParallel(geo field.Geometry, blockSize int, rule Rule, src *rng.Source) (*Parallel, error) {
	if blockSize < 2 {
		return nil, errors.Errorf("block size %d, staple reads need at least 2", blockSize)
	}
	if geo.L%blockSize != 0 || geo.T%blockSize != 0 {
		return nil, errors.Errorf("block size %d does not divide lattice %dx%d", blockSize, geo.L, geo.T)
	}
	for _, n := range []int{geo.T / blockSize, geo.L / blockSize} {
		if n > 1 && n%2 != 0 {
			return nil, errors.Errorf("odd block count %d per dimension breaks the parity coloring", n)
		}
	}

	p := &Parallel{rule: rule, blockSize: blockSize, subSweeps: 1}
	nt, nl := geo.T/blockSize, geo.L/blockSize
	numBlocks := nt * nl * nl * nl
	p.blocks = make([][]int, 0, numBlocks)
	p.rds = make([]*rand.Rand, 0, numBlocks)

	sitesPerBlock := blockSize * blockSize * blockSize * blockSize
	blockID := 0
	for bt := range nt {
		for bx := range nl {
			for by := range nl {
				for bz := range nl {
					sites := make([]int, 0, sitesPerBlock)
					for t := range blockSize {
						for x := range blockSize {
							for y := range blockSize {
								for z := range blockSize {
									s := [4]int{
										bt*blockSize + t,
										bx*blockSize + x,
										by*blockSize + y,
										bz*blockSize + z,
									}
									sites = append(sites, geo.SiteIndex(s))
								}
							}
						}
					}
					p.blocks = append(p.blocks, sites)
					color := bt%2 | bx%2<<1 | by%2<<2 | bz%2<<3
					p.colors[color] = append(p.colors[color], blockID)
					p.rds = append(p.rds, src.Block(blockID))
					blockID++
				}
			}
		}
	}
	return p, nil
}

// SubSweeps sets the number of internal color-class passes per Sweep.
func (p *Parallel) SubSweeps(n int) *Parallel {
	if n > 0 {
		p.subSweeps = n
	}
	return p
}

// Sweep updates every link once per sub-sweep. Within a color class each
// block runs on its own goroutine with its own random stream; a barrier
// separates the color classes, which is what keeps updates unbiased.
func (p *Parallel) Sweep(f *field.Field, act action.Action) {
	for range p.subSweeps {
		for _, class := range p.colors {
			var wg sync.WaitGroup
			for _, blockID := range class {
				wg.Add(1)
				go func(blockID int) {
					defer wg.Done()
					rd := p.rds[blockID]
					for _, site := range p.blocks[blockID] {
						x := f.Geo.SiteAt(site)
						for mu := range field.NumDirs {
							p.rule(f, act, x, mu, rd)
						}
					}
				}(blockID)
			}
			wg.Wait()
		}
	}
}
