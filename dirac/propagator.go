package dirac

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"latqcd/field"
	"latqcd/smear"
)

// SmearOptions configure the optional smearing applied when computing a
// propagator: stout smearing of the gauge links the operator is built
// from, and Jacobi smearing of the source and sink fermion vectors.
type SmearOptions struct {
	LinkIterations   int
	LinkWeight       float64
	SourceIterations int
	SourceWeight     float64
	SinkIterations   int
	SinkWeight       float64
}

// Propagator inverts the Wilson-Dirac operator on the 12 unit point
// sources at the given site and assembles the solutions into a tensor of
// shape (T, L, L, L, sinkSpin, sinkColor, srcSpin, srcColor). The 12
// solves are independent and run concurrently. The input field is never
// modified; link smearing operates on a copy.
func Propagator(f *field.Field, mass float64, source [4]int, smr SmearOptions, opts SolveOptions) (*tensor.Dense, error) {
	g := f
	if smr.LinkIterations > 0 {
		g = smear.Stout(f, smr.LinkIterations, smr.LinkWeight)
	}
	op := NewOperator(g, mass)
	geo := g.Geo
	src := geo.SiteIndex(source)

	solutions := make([][]complex64, 12)
	grp := errgroup.Group{}
	for spin := range 4 {
		for color := range 3 {
			grp.Go(func() error {
				b := make([]complex64, op.Dim())
				b[12*src+3*spin+color] = 1
				smear.Jacobi(b, g, smr.SourceIterations, smr.SourceWeight)
				x, _, err := Solve(op, b, opts)
				if err != nil {
					return errors.Wrap(err, "")
				}
				smear.Jacobi(x, g, smr.SinkIterations, smr.SinkWeight)
				solutions[3*spin+color] = x
				return nil
			})
		}
	}
	if err := grp.Wait(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	l, t := geo.L, geo.T
	out := tensor.Zeros(t, l, l, l, 4, 3, 4, 3)
	ix := make([]int, 8)
	for site := range geo.NumSites() {
		s := geo.SiteAt(site)
		ix[0], ix[1], ix[2], ix[3] = s[0], s[1], s[2], s[3]
		for srcSpin := range 4 {
			ix[6] = srcSpin
			for srcColor := range 3 {
				ix[7] = srcColor
				x := solutions[3*srcSpin+srcColor]
				for sinkSpin := range 4 {
					ix[4] = sinkSpin
					for sinkColor := range 3 {
						ix[5] = sinkColor
						out.SetAt(ix, x[12*site+3*sinkSpin+sinkColor])
					}
				}
			}
		}
	}
	return out, nil
}
