package dirac

import (
	"latqcd/field"
)

// Operator is the Wilson-Dirac operator
//
//	D = (m+4)*1 - 1/2 * sum_mu [(1+gamma_mu) U_mu(x) delta_{x+mu}
//	                          + (1-gamma_mu) U_mu(x-mu)^H delta_{x-mu}]
//
// on a fixed gauge field, applied matrix-free. Its dense dimension is
// 12*L^3*T, far too large to materialize. Fermion vectors are indexed
// 12*site + 3*spin + color.
type Operator struct {
	f    *field.Field
	mass float64
}

func NewOperator(f *field.Field, mass float64) Operator {
	return Operator{f: f, mass: mass}
}

// Dim is the length of the vectors the operator acts on.
func (op Operator) Dim() int {
	return 12 * op.f.Geo.NumSites()
}

// Apply computes dst = D src. dst and src must not alias.
func (op Operator) Apply(dst, src []complex64) {
	op.apply(dst, src, &plus, &minus)
}

// ApplyAdjoint computes dst = D^H src. Since the gammas are hermitian,
// the adjoint is D with the spin projectors of the two hops swapped.
func (op Operator) ApplyAdjoint(dst, src []complex64) {
	op.apply(dst, src, &minus, &plus)
}

func (op Operator) apply(dst, src []complex64, fwd, bwd *[field.NumDirs]SpinMatrix) {
	diag := complex(float32(op.mass)+4, 0)
	for i, v := range src {
		dst[i] = diag * v
	}

	// hopF and hopB hold the color-rotated neighbor spinors
	// U_mu(x) src(x+mu) and U_mu(x-mu)^H src(x-mu).
	var hopF, hopB [4][3]complex64
	for site := range op.f.Geo.NumSites() {
		base := 12 * site
		for mu := range field.NumDirs {
			up, down := op.f.Up(site, mu), op.f.Down(site, mu)
			uf := op.f.LinkAt(site, mu)
			ub := op.f.LinkAt(down, mu).Adjoint()
			for spin := range 4 {
				u, l := 12*up+3*spin, 12*down+3*spin
				for c := range 3 {
					var sf, sb complex64
					for cc := range 3 {
						sf += uf[c][cc] * src[u+cc]
						sb += ub[c][cc] * src[l+cc]
					}
					hopF[spin][c], hopB[spin][c] = sf, sb
				}
			}
			for a := range 4 {
				d := base + 3*a
				for b := range 4 {
					pf, pb := fwd[mu][a][b], bwd[mu][a][b]
					if pf == 0 && pb == 0 {
						continue
					}
					for c := range 3 {
						dst[d+c] -= 0.5 * (pf*hopF[b][c] + pb*hopB[b][c])
					}
				}
			}
		}
	}
}
