// Package su3 implements arithmetic on the SU(3) gauge group and its
// SU(2) subgroups.
//
// References:
//   - Quantum Chromodynamics on the Lattice, Gattringer and Lang, chapter 4.
package su3

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"github.com/pkg/errors"
)

// SingularTol is the determinant magnitude below which a matrix is
// considered singular and cannot be projected onto SU(3).
const SingularTol = 1e-6

var ErrSingular = errors.New("singular matrix")

// Matrix is a 3x3 complex matrix, row major.
type Matrix [3][3]complex64

func Identity() Matrix {
	return Matrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

func (a Matrix) Mul(b Matrix) Matrix {
	var c Matrix
	for i := range 3 {
		for j := range 3 {
			var s complex64
			for k := range 3 {
				s += a[i][k] * b[k][j]
			}
			c[i][j] = s
		}
	}
	return c
}

func (a Matrix) Add(b Matrix) Matrix {
	for i := range 3 {
		for j := range 3 {
			a[i][j] += b[i][j]
		}
	}
	return a
}

func (a Matrix) Sub(b Matrix) Matrix {
	for i := range 3 {
		for j := range 3 {
			a[i][j] -= b[i][j]
		}
	}
	return a
}

func (a Matrix) Scale(c complex64) Matrix {
	for i := range 3 {
		for j := range 3 {
			a[i][j] *= c
		}
	}
	return a
}

func (a Matrix) Adjoint() Matrix {
	var c Matrix
	for i := range 3 {
		for j := range 3 {
			c[i][j] = conj(a[j][i])
		}
	}
	return c
}

func (a Matrix) Trace() complex64 {
	return a[0][0] + a[1][1] + a[2][2]
}

func (a Matrix) Det() complex64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// Unitarize projects a onto SU(3) by Gram-Schmidt orthonormalization of the
// first two rows; the third row is the conjugate cross product of the first
// two, which fixes det = 1. Singular inputs cannot be projected.
func (a Matrix) Unitarize() (Matrix, error) {
	if abs(a.Det()) < SingularTol {
		return Matrix{}, errors.Wrap(ErrSingular, "")
	}

	n0 := rowNorm(a[0])
	if n0 < SingularTol {
		return Matrix{}, errors.Wrap(ErrSingular, "")
	}
	for j := range 3 {
		a[0][j] /= complex(float32(n0), 0)
	}

	// Remove the row 0 component from row 1.
	var ip complex64
	for j := range 3 {
		ip += conj(a[0][j]) * a[1][j]
	}
	for j := range 3 {
		a[1][j] -= ip * a[0][j]
	}
	n1 := rowNorm(a[1])
	if n1 < SingularTol {
		return Matrix{}, errors.Wrap(ErrSingular, "")
	}
	for j := range 3 {
		a[1][j] /= complex(float32(n1), 0)
	}

	a[2][0] = conj(a[0][1]*a[1][2] - a[0][2]*a[1][1])
	a[2][1] = conj(a[0][2]*a[1][0] - a[0][0]*a[1][2])
	a[2][2] = conj(a[0][0]*a[1][1] - a[0][1]*a[1][0])
	return a, nil
}

// Expm computes the matrix exponential by scaling and squaring with a
// truncated Taylor series. Exponentials of traceless anti-hermitian
// matrices land in SU(3), which is how stout smearing uses it.
func Expm(a Matrix) Matrix {
	var norm float64
	for i := range 3 {
		for j := range 3 {
			norm += abs2(a[i][j])
		}
	}
	norm = math.Sqrt(norm)

	var squarings int
	for norm > 0.5 {
		norm /= 2
		squarings++
	}
	scale := complex64(complex(math.Pow(2, -float64(squarings)), 0))
	a = a.Scale(scale)

	e := Identity()
	term := Identity()
	for k := 1; k <= 12; k++ {
		term = term.Mul(a).Scale(complex64(complex(1/float64(k), 0)))
		e = e.Add(term)
	}
	for range squarings {
		e = e.Mul(e)
	}
	return e
}

// SU2 is an SU(2) element in quaternion form a0 + i*(a1 s1 + a2 s2 + a3 s3)
// where s are the Pauli matrices.
type SU2 [4]float64

// Subgroups are the row/column index pairs of the three SU(2) subgroups
// used in Cabibbo-Marinari updates.
var Subgroups = [3][2]int{{0, 1}, {0, 2}, {1, 2}}

// Matrix2 returns the 2x2 complex matrix form of q.
func (q SU2) Matrix2() [2][2]complex64 {
	return [2][2]complex64{
		{complex(float32(q[0]), float32(q[3])), complex(float32(q[2]), float32(q[1]))},
		{complex(-float32(q[2]), float32(q[1])), complex(float32(q[0]), -float32(q[3]))},
	}
}

// Norm returns sqrt(a0^2 + a1^2 + a2^2 + a3^2).
func (q SU2) Norm() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

func (q SU2) Normalize() SU2 {
	n := q.Norm()
	for i := range q {
		q[i] /= n
	}
	return q
}

// Embed places q in the SU(2) subgroup sub of SU(3), identity elsewhere.
func (q SU2) Embed(sub int) Matrix {
	i, j := Subgroups[sub][0], Subgroups[sub][1]
	w := q.Matrix2()

	m := Identity()
	m[i][i], m[i][j] = w[0][0], w[0][1]
	m[j][i], m[j][j] = w[1][0], w[1][1]
	return m
}

// SubgroupOf projects the SU(2) subgroup sub of m onto quaternion
// coefficients. The result is generally not normalized; its norm is the k
// factor of the heatbath weight.
func SubgroupOf(m Matrix, sub int) SU2 {
	i, j := Subgroups[sub][0], Subgroups[sub][1]
	return SU2{
		float64(real(m[i][i])+real(m[j][j])) / 2,
		float64(imag(m[i][j])+imag(m[j][i])) / 2,
		float64(real(m[i][j])-real(m[j][i])) / 2,
		float64(imag(m[i][i])-imag(m[j][j])) / 2,
	}
}

// RandSU2 draws a uniformly distributed SU(2) element.
func RandSU2(rng *rand.Rand) SU2 {
	var q SU2
	for {
		for i := range q {
			q[i] = rng.Float64()*2 - 1
		}
		n := q.Norm()
		if n > 1e-3 && n <= 1 {
			return q.Normalize()
		}
	}
}

// randSU2Near draws an SU(2) element a distance spread from the identity.
func randSU2Near(rng *rand.Rand, spread float64) SU2 {
	var q SU2
	for {
		for i := 1; i < 4; i++ {
			q[i] = rng.Float64()*2 - 1
		}
		n := math.Sqrt(q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
		if n < 1e-3 || n > 1 {
			continue
		}
		for i := 1; i < 4; i++ {
			q[i] *= spread / n
		}
		break
	}
	// The vector part is uniform on the sphere, so the proposal set is
	// closed under inversion and detailed balance holds.
	q[0] = math.Sqrt(1 - spread*spread)
	return q
}

// Rand draws a uniformly distributed SU(3) element as a product of
// uniform SU(2) subgroup elements.
func Rand(rng *rand.Rand) Matrix {
	m := Identity()
	for sub := range Subgroups {
		m = RandSU2(rng).Embed(sub).Mul(m)
	}
	// A second pass decorrelates the subgroup structure.
	for sub := range Subgroups {
		m = RandSU2(rng).Embed(sub).Mul(m)
	}
	u, err := m.Unitarize()
	if err != nil {
		panic(err)
	}
	return u
}

// RandNear draws an SU(3) element close to the identity, used as a
// Metropolis proposal kernel. spread in (0, 1) controls the step size.
func RandNear(rng *rand.Rand, spread float64) Matrix {
	m := Identity()
	for sub := range Subgroups {
		m = randSU2Near(rng, spread).Embed(sub).Mul(m)
	}
	u, err := m.Unitarize()
	if err != nil {
		panic(err)
	}
	return u
}

func rowNorm(row [3]complex64) float64 {
	var n float64
	for _, v := range row {
		n += abs2(v)
	}
	return math.Sqrt(n)
}

func abs(v complex64) float64 {
	return cmplx.Abs(complex128(v))
}

func abs2(v complex64) float64 {
	return float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
}

func conj(v complex64) complex64 {
	return complex(real(v), -imag(v))
}
