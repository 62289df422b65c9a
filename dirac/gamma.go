// Package dirac implements the matrix-free Wilson-Dirac operator on a
// gauge field, Krylov solvers for it, and quark propagator assembly.
package dirac

import (
	"latqcd/field"
)

// SpinMatrix acts on the 4 spin components of a fermion field.
type SpinMatrix [4][4]complex64

// gammas are the Euclidean gamma matrices in the Dirac-Pauli basis.
// gammas[0] is the temporal one. All four are hermitian and square to
// the identity.
var gammas = [field.NumDirs]SpinMatrix{
	{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, -1, 0},
		{0, 0, 0, -1},
	},
	{
		{0, 0, 0, -1i},
		{0, 0, -1i, 0},
		{0, 1i, 0, 0},
		{1i, 0, 0, 0},
	},
	{
		{0, 0, 0, -1},
		{0, 0, 1, 0},
		{0, 1, 0, 0},
		{-1, 0, 0, 0},
	},
	{
		{0, 0, -1i, 0},
		{0, 0, 0, 1i},
		{1i, 0, 0, 0},
		{0, -1i, 0, 0},
	},
}

// plus and minus are the spin projectors 1+gamma_mu and 1-gamma_mu
// attached to the forward and backward hops of the Wilson term.
var plus, minus [field.NumDirs]SpinMatrix

func init() {
	for mu := range gammas {
		for a := range 4 {
			for b := range 4 {
				var id complex64
				if a == b {
					id = 1
				}
				plus[mu][a][b] = id + gammas[mu][a][b]
				minus[mu][a][b] = id - gammas[mu][a][b]
			}
		}
	}
}
