// Package smear implements stout smearing of gauge links and Jacobi
// smearing of fermion fields.
//
// References:
//   - Morningstar and Peardon, Phys. Rev. D 69, 054501 (2004), for stout
//     smearing.
//   - Quantum Chromodynamics on the Lattice, Gattringer and Lang,
//     equation 6.40, for Jacobi smearing.
package smear

import (
	"latqcd/action"
	"latqcd/field"
	"latqcd/su3"
)

// Stout returns a derived field where every spatial link has been replaced
// by an exponential blend with its spatial staple, iterated. The input is
// never modified; the Monte Carlo chain itself is never smeared.
func Stout(f *field.Field, iterations int, weight float64) *field.Field {
	out := f.Copy()
	if iterations <= 0 {
		return out
	}

	rho := complex(float32(weight), 0)
	next := make([]su3.Matrix, 0, 3*f.Geo.NumSites())
	for range iterations {
		// All new links derive from the pre-iteration field.
		next = next[:0]
		for site := range out.Geo.NumSites() {
			x := out.Geo.SiteAt(site)
			for mu := 1; mu < field.NumDirs; mu++ {
				next = append(next, stoutLink(out, x, mu, rho))
			}
		}
		i := 0
		for site := range out.Geo.NumSites() {
			for mu := 1; mu < field.NumDirs; mu++ {
				if err := out.SetLinkAt(site, mu, next[i]); err != nil {
					// exp of a traceless anti-hermitian matrix times an
					// SU(3) element cannot be singular.
					panic(err)
				}
				i++
			}
		}
	}
	return out
}

func stoutLink(f *field.Field, x [4]int, mu int, rho complex64) su3.Matrix {
	u := f.Link(x, mu)
	// Omega = rho * staple^H * U^H; Q is its traceless anti-hermitian part.
	omega := action.SpatialStaple(f, x, mu).Adjoint().Scale(rho).Mul(u.Adjoint())
	anti := omega.Sub(omega.Adjoint())
	third := anti.Trace() / 3
	for i := range 3 {
		anti[i][i] -= third
	}
	q := anti.Scale(0.5)
	return su3.Expm(q).Mul(u)
}

// Jacobi applies the gauge-covariant smearing kernel
// sum_{n=0..iterations} weight^n H^n to a fermion field of 12 complex
// components per site, in place. H is the spin-diagonal spatial hopping
// operator. Zero iterations leaves the field unchanged.
func Jacobi(psi []complex64, f *field.Field, iterations int, weight float64) {
	if iterations <= 0 {
		return
	}

	acc := make([]complex64, len(psi))
	cur := make([]complex64, len(psi))
	buf := make([]complex64, len(psi))
	copy(acc, psi)
	copy(cur, psi)

	wn := 1.0
	for range iterations {
		hop(buf, cur, f)
		cur, buf = buf, cur
		wn *= weight
		c := complex(float32(wn), 0)
		for i, v := range cur {
			acc[i] += c * v
		}
	}
	copy(psi, acc)
}

// hop computes dst = H src with
// (H src)(x) = sum_k [U_k(x) src(x+k) + U_k^H(x-k) src(x-k)]
// acting on the color index of every spin component.
func hop(dst, src []complex64, f *field.Field) {
	for i := range dst {
		dst[i] = 0
	}
	for site := range f.Geo.NumSites() {
		for k := 1; k < field.NumDirs; k++ {
			up, down := f.Up(site, k), f.Down(site, k)
			fwd := f.LinkAt(site, k)
			bwd := f.LinkAt(down, k).Adjoint()
			for spin := range 4 {
				d := 12*site + 3*spin
				u := 12*up + 3*spin
				l := 12*down + 3*spin
				for c := range 3 {
					var s complex64
					for cc := range 3 {
						s += fwd[c][cc]*src[u+cc] + bwd[c][cc]*src[l+cc]
					}
					dst[d+c] += s
				}
			}
		}
	}
}
