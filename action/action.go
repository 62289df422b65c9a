// Package action evaluates gauge actions and their staples.
//
// The staple of a link is the sum of products of neighboring links that
// close a plaquette or rectangle through that link. Evaluation is pure and
// safe to call concurrently for different links.
//
// References:
//   - Quantum Chromodynamics on the Lattice, Gattringer and Lang, chapter 3.
//   - Lattice QCD for Novices, G.P. Lepage, for the tadpole-improved
//     rectangle coefficients.
package action

import (
	"github.com/pkg/errors"

	"latqcd/field"
	"latqcd/su3"
)

// Kind enumerates the supported gauge actions.
type Kind int

const (
	Wilson Kind = iota
	RectangleImproved
	TwistedRectangleImproved
)

// twistPhase multiplies every rectangle contribution of the twisted action.
const twistPhase = -1.0

func ParseKind(s string) (Kind, error) {
	switch s {
	case "wilson":
		return Wilson, nil
	case "rectangle_improved":
		return RectangleImproved, nil
	case "twisted_rectangle_improved":
		return TwistedRectangleImproved, nil
	}
	return 0, errors.Errorf("unknown gauge action %q", s)
}

func (k Kind) String() string {
	switch k {
	case Wilson:
		return "wilson"
	case RectangleImproved:
		return "rectangle_improved"
	case TwistedRectangleImproved:
		return "twisted_rectangle_improved"
	}
	return "unknown"
}

// Action evaluates a gauge action of the given kind at inverse coupling
// Beta with mean link U0 for tadpole improvement.
type Action struct {
	Kind Kind
	Beta float64
	U0   float64
}

// coeffs returns the plaquette and rectangle staple weights.
func (a Action) coeffs() (float64, float64) {
	switch a.Kind {
	case Wilson:
		return 1, 0
	default:
		u2 := a.U0 * a.U0
		u4 := u2 * u2
		cP := 5 / (3 * u4)
		cR := -1 / (12 * u4 * u2)
		if a.Kind == TwistedRectangleImproved {
			cR *= twistPhase
		}
		return cP, cR
	}
}

// step is one move of a link path: one lattice hop along dir, with sign -1
// traversing the link in the adjoint sense.
type step struct {
	dir  int
	sign int
}

// pathProduct multiplies the links along a path starting at x.
func pathProduct(f *field.Field, x [4]int, steps []step) su3.Matrix {
	m := su3.Identity()
	pos := x
	for _, st := range steps {
		switch {
		case st.sign > 0:
			m = m.Mul(f.Link(pos, st.dir))
			pos = f.Geo.Neighbor(pos, st.dir, 1)
		default:
			pos = f.Geo.Neighbor(pos, st.dir, -1)
			m = m.Mul(f.Link(pos, st.dir).Adjoint())
		}
	}
	return m
}

// Plaquette returns the elementary plaquette loop at x in the (mu, nu)
// plane.
func Plaquette(f *field.Field, x [4]int, mu, nu int) su3.Matrix {
	return pathProduct(f, x, []step{{mu, 1}, {nu, 1}, {mu, -1}, {nu, -1}})
}

// rectangle returns the 2x1 loop at x, long side along mu.
func rectangle(f *field.Field, x [4]int, mu, nu int) su3.Matrix {
	return pathProduct(f, x, []step{{mu, 1}, {mu, 1}, {nu, 1}, {mu, -1}, {mu, -1}, {nu, -1}})
}

// PlaquetteStaple returns the sum of the plaquette staples through
// (x, mu) in the (mu, nu) plane. Multiplying the link into the staple and
// tracing yields the two plaquettes through the link.
func PlaquetteStaple(f *field.Field, x [4]int, mu, nu int) su3.Matrix {
	xmu := f.Geo.Neighbor(x, mu, 1)
	fwd := pathProduct(f, xmu, []step{{nu, 1}, {mu, -1}, {nu, -1}})
	bwd := pathProduct(f, xmu, []step{{nu, -1}, {mu, -1}, {nu, 1}})
	return fwd.Add(bwd)
}

// rectangleStaple returns the sum of the six rectangle staples through
// (x, mu) in the (mu, nu) plane.
func rectangleStaple(f *field.Field, x [4]int, mu, nu int) su3.Matrix {
	xmu := f.Geo.Neighbor(x, mu, 1)
	paths := [6][]step{
		// Long side along mu.
		{{mu, 1}, {nu, 1}, {mu, -1}, {mu, -1}, {nu, -1}},
		{{nu, 1}, {mu, -1}, {mu, -1}, {nu, -1}, {mu, 1}},
		{{mu, 1}, {nu, -1}, {mu, -1}, {mu, -1}, {nu, 1}},
		{{nu, -1}, {mu, -1}, {mu, -1}, {nu, 1}, {mu, 1}},
		// Long side along nu.
		{{nu, 1}, {nu, 1}, {mu, -1}, {nu, -1}, {nu, -1}},
		{{nu, -1}, {nu, -1}, {mu, -1}, {nu, 1}, {nu, 1}},
	}
	var sum su3.Matrix
	for _, p := range paths {
		sum = sum.Add(pathProduct(f, xmu, p))
	}
	return sum
}

// Staple returns the full weighted staple of (x, mu) for this action,
// including the plaquette and rectangle coefficients but not Beta.
func (a Action) Staple(f *field.Field, x [4]int, mu int) su3.Matrix {
	cP, cR := a.coeffs()
	var sum su3.Matrix
	for nu := range field.NumDirs {
		if nu == mu {
			continue
		}
		sum = sum.Add(PlaquetteStaple(f, x, mu, nu).Scale(complex(float32(cP), 0)))
		if cR != 0 {
			sum = sum.Add(rectangleStaple(f, x, mu, nu).Scale(complex(float32(cR), 0)))
		}
	}
	return sum
}

// SpatialStaple returns the unweighted plaquette staple of (x, mu)
// restricted to spatial planes, as used by stout link smearing.
func SpatialStaple(f *field.Field, x [4]int, mu int) su3.Matrix {
	var sum su3.Matrix
	for nu := 1; nu < field.NumDirs; nu++ {
		if nu == mu {
			continue
		}
		sum = sum.Add(PlaquetteStaple(f, x, mu, nu))
	}
	return sum
}

// Local returns the part of the action that depends on the link (x, mu).
// Constant terms are dropped; differences of Local equal differences of
// Total under a change of that single link.
func (a Action) Local(f *field.Field, x [4]int, mu int) float64 {
	u := f.Link(x, mu).Mul(a.Staple(f, x, mu))
	return -a.Beta / 3 * float64(real(u.Trace()))
}

// Total returns the action of the whole field.
func (a Action) Total(f *field.Field) float64 {
	cP, cR := a.coeffs()
	var sum float64
	for site := range f.Geo.NumSites() {
		x := f.Geo.SiteAt(site)
		for mu := range field.NumDirs {
			for nu := mu + 1; nu < field.NumDirs; nu++ {
				p := Plaquette(f, x, mu, nu)
				sum += a.Beta * cP * (1 - float64(real(p.Trace()))/3)
			}
			if cR == 0 {
				continue
			}
			for nu := range field.NumDirs {
				if nu == mu {
					continue
				}
				r := rectangle(f, x, mu, nu)
				sum += a.Beta * cR * (1 - float64(real(r.Trace()))/3)
			}
		}
	}
	return sum
}

// AveragePlaquette returns the plaquette expectation value
// <Re Tr P> / 3 averaged over all sites and planes.
func AveragePlaquette(f *field.Field) float64 {
	var sum float64
	n := 0
	for site := range f.Geo.NumSites() {
		x := f.Geo.SiteAt(site)
		for mu := range field.NumDirs {
			for nu := mu + 1; nu < field.NumDirs; nu++ {
				sum += float64(real(Plaquette(f, x, mu, nu).Trace())) / 3
				n++
			}
		}
	}
	return sum / float64(n)
}

// WilsonLoop returns the r x t rectangular Wilson loop (spatial extent r,
// temporal extent t) averaged over all sites and spatial directions.
func WilsonLoop(f *field.Field, r, t int) float64 {
	steps := make([]step, 0, 2*(r+t))
	var sum float64
	n := 0
	for k := 1; k < field.NumDirs; k++ {
		steps = steps[:0]
		for range t {
			steps = append(steps, step{0, 1})
		}
		for range r {
			steps = append(steps, step{k, 1})
		}
		for range t {
			steps = append(steps, step{0, -1})
		}
		for range r {
			steps = append(steps, step{k, -1})
		}

		for site := range f.Geo.NumSites() {
			x := f.Geo.SiteAt(site)
			sum += float64(real(pathProduct(f, x, steps).Trace())) / 3
			n++
		}
	}
	return sum / float64(n)
}
