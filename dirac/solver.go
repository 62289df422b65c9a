package dirac

import (
	"fmt"
	"log"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

// Method selects the Krylov solver used to invert the Dirac operator.
type Method int

const (
	// BiCGStab is the biconjugate gradient stabilized method applied
	// to D directly.
	BiCGStab Method = iota
	// CGNE is conjugate gradient on the normal equations: solve
	// D D^H y = b, then x = D^H y.
	CGNE
)

func ParseMethod(s string) (Method, error) {
	switch s {
	case "bicgstab":
		return BiCGStab, nil
	case "cg", "cgne":
		return CGNE, nil
	default:
		return 0, errors.Errorf("unknown solver %q", s)
	}
}

func (m Method) String() string {
	switch m {
	case BiCGStab:
		return "bicgstab"
	case CGNE:
		return "cgne"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// SolveOptions control a Dirac operator inversion.
// Verbose surfaces per-iteration residuals in the log and has no effect
// on the result.
type SolveOptions struct {
	Method        Method
	Tol           float64
	MaxIterations int
	Verbose       bool
}

// DefaultSolveOptions returns options suitable for single precision
// fields. The tolerance is on the residual norm relative to the source.
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{Method: BiCGStab, Tol: 1e-4, MaxIterations: 1000}
}

// DivergenceError reports a solve whose relative residual failed to
// reach the tolerance within the iteration budget.
type DivergenceError struct {
	Iterations int
	Residual   float64
}

func (e DivergenceError) Error() string {
	return fmt.Sprintf("solver diverged after %d iterations, residual %g", e.Iterations, e.Residual)
}

// Solve solves D x = b for x, returning the solution and the number of
// iterations used. On failure the returned error wraps a DivergenceError.
func Solve(op Operator, b []complex64, opts SolveOptions) ([]complex64, int, error) {
	if len(b) != op.Dim() {
		return nil, 0, errors.Errorf("%d, expected %d", len(b), op.Dim())
	}
	switch opts.Method {
	case CGNE:
		return solveCGNE(op, b, opts)
	default:
		return solveBiCGStab(op, b, opts)
	}
}

func solveBiCGStab(op Operator, b []complex64, opts SolveOptions) ([]complex64, int, error) {
	n := len(b)
	x := make([]complex64, n)
	r := make([]complex64, n)
	copy(r, b)
	rhat := make([]complex64, n)
	copy(rhat, b)
	bNorm := math.Sqrt(norm2(b))
	if bNorm == 0 {
		return x, 0, nil
	}

	var rho, alpha, omega complex128 = 1, 1, 1
	p := make([]complex64, n)
	v := make([]complex64, n)
	s := make([]complex64, n)
	t := make([]complex64, n)

	// A breakdown is the shadow residual going orthogonal to the current
	// Krylov direction, which sparse sources hit readily in single
	// precision. Restarting from the current residual keeps the progress
	// made so far; the residual is nonzero here, so the restarted
	// iteration always has rho > 0.
	restart := func() {
		copy(rhat, r)
		for j := range p {
			p[j], v[j] = 0, 0
		}
		rho, alpha, omega = 1, 1, 1
	}

	residual := 1.0
	for i := 1; i <= opts.MaxIterations; i++ {
		if omega == 0 {
			restart()
		}
		newRho := dot(rhat, r)
		if newRho == 0 {
			restart()
			continue
		}
		beta := complex64(newRho / rho * alpha / omega)
		for j := range p {
			p[j] = r[j] + beta*(p[j]-complex64(omega)*v[j])
		}
		op.Apply(v, p)
		d := dot(rhat, v)
		if d == 0 {
			restart()
			continue
		}
		alpha = newRho / d
		for j := range s {
			s[j] = r[j] - complex64(alpha)*v[j]
		}
		op.Apply(t, s)
		if nt := norm2(t); nt == 0 {
			omega = 0
		} else {
			omega = dot(t, s) / complex(nt, 0)
		}
		for j := range x {
			x[j] += complex64(alpha)*p[j] + complex64(omega)*s[j]
			r[j] = s[j] - complex64(omega)*t[j]
		}
		rho = newRho

		residual = math.Sqrt(norm2(r)) / bNorm
		if opts.Verbose {
			log.Printf("bicgstab iteration %d residual %g", i, residual)
		}
		if residual < opts.Tol {
			return x, i, nil
		}
	}
	return nil, opts.MaxIterations, errors.Wrap(DivergenceError{Iterations: opts.MaxIterations, Residual: residual}, "")
}

func solveCGNE(op Operator, b []complex64, opts SolveOptions) ([]complex64, int, error) {
	n := len(b)
	y := make([]complex64, n)
	r := make([]complex64, n)
	copy(r, b)
	p := make([]complex64, n)
	copy(p, b)
	tmp := make([]complex64, n)
	mp := make([]complex64, n)

	bNorm := math.Sqrt(norm2(b))
	if bNorm == 0 {
		return y, 0, nil
	}

	oldRes := norm2(r)
	residual := 1.0
	for i := 1; i <= opts.MaxIterations; i++ {
		op.ApplyAdjoint(tmp, p)
		op.Apply(mp, tmp)
		a := complex64(complex(oldRes/real(dot(p, mp)), 0))
		for j := range y {
			y[j] += a * p[j]
			r[j] -= a * mp[j]
		}
		newRes := norm2(r)
		residual = math.Sqrt(newRes) / bNorm
		if opts.Verbose {
			log.Printf("cgne iteration %d residual %g", i, residual)
		}
		if residual < opts.Tol {
			x := make([]complex64, n)
			op.ApplyAdjoint(x, y)
			return x, i, nil
		}
		bt := complex64(complex(newRes/oldRes, 0))
		for j := range p {
			p[j] = r[j] + bt*p[j]
		}
		oldRes = newRes
	}
	return nil, opts.MaxIterations, errors.Wrap(DivergenceError{Iterations: opts.MaxIterations, Residual: residual}, "")
}

func dot(a, b []complex64) complex128 {
	var s complex128
	for i := range a {
		s += cmplx.Conj(complex128(a[i])) * complex128(b[i])
	}
	return s
}

func norm2(a []complex64) float64 {
	var s float64
	for _, v := range a {
		re, im := float64(real(v)), float64(imag(v))
		s += re*re + im*im
	}
	return s
}
