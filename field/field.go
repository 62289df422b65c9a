// Package field implements the 4D periodic lattice geometry and the
// mutable store of SU(3) gauge links.
package field

import (
	"math/rand/v2"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"latqcd/su3"
)

// NumDirs is the number of lattice directions. Direction 0 is time.
const NumDirs = 4

// Geometry is a fixed 4D periodic index space. A site is a (t, x, y, z)
// tuple with every coordinate taken modulo its extent.
type Geometry struct {
	L int
	T int
}

func NewGeometry(l, t int) (Geometry, error) {
	if l <= 0 || t <= 0 {
		return Geometry{}, errors.Errorf("non-positive extents %d %d", l, t)
	}
	return Geometry{L: l, T: t}, nil
}

func (g Geometry) NumSites() int {
	return g.L * g.L * g.L * g.T
}

func (g Geometry) NumLinks() int {
	return NumDirs * g.NumSites()
}

// Extent returns the lattice size along dir.
func (g Geometry) Extent(dir int) int {
	if dir == 0 {
		return g.T
	}
	return g.L
}

// SiteIndex maps a site to its storage index. Coordinates wrap around.
func (g Geometry) SiteIndex(s [4]int) int {
	t := mod(s[0], g.T)
	x := mod(s[1], g.L)
	y := mod(s[2], g.L)
	z := mod(s[3], g.L)
	return ((t*g.L+x)*g.L+y)*g.L + z
}

// SiteAt is the inverse of SiteIndex.
func (g Geometry) SiteAt(index int) [4]int {
	z := index % g.L
	index /= g.L
	y := index % g.L
	index /= g.L
	x := index % g.L
	return [4]int{index / g.L, x, y, z}
}

// Neighbor returns the site one step along dir. sign must be +1 or -1.
func (g Geometry) Neighbor(s [4]int, dir, sign int) [4]int {
	s[dir] = mod(s[dir]+sign, g.Extent(dir))
	return s
}

// Move returns the site n steps along dir.
func (g Geometry) Move(s [4]int, dir, n int) [4]int {
	s[dir] = mod(s[dir]+n, g.Extent(dir))
	return s
}

// Field is the mutable array of gauge links. Links are stored flat as
// 4*site+dir with precomputed neighbor tables, so the Dirac operator and
// staple evaluation never recompute modular coordinate arithmetic.
type Field struct {
	Geo Geometry

	links []su3.Matrix
	up    []int // neighbor site index along +dir, len NumDirs*NumSites
	down  []int
}

func New(geo Geometry) *Field {
	f := &Field{
		Geo:   geo,
		links: make([]su3.Matrix, geo.NumLinks()),
		up:    make([]int, geo.NumLinks()),
		down:  make([]int, geo.NumLinks()),
	}
	for i := range geo.NumSites() {
		s := geo.SiteAt(i)
		for dir := range NumDirs {
			f.up[NumDirs*i+dir] = geo.SiteIndex(geo.Neighbor(s, dir, 1))
			f.down[NumDirs*i+dir] = geo.SiteIndex(geo.Neighbor(s, dir, -1))
		}
	}
	f.Cold()
	return f
}

// Cold sets every link to the identity.
func (f *Field) Cold() {
	for i := range f.links {
		f.links[i] = su3.Identity()
	}
}

// Hot sets every link to an independent random SU(3) element.
func (f *Field) Hot(rng *rand.Rand) {
	for i := range f.links {
		f.links[i] = su3.Rand(rng)
	}
}

// Up returns the index of the site one step along +dir from site.
func (f *Field) Up(site, dir int) int {
	return f.up[NumDirs*site+dir]
}

// Down returns the index of the site one step along -dir from site.
func (f *Field) Down(site, dir int) int {
	return f.down[NumDirs*site+dir]
}

// Link returns the link matrix at (site, dir).
func (f *Field) Link(s [4]int, dir int) su3.Matrix {
	return f.links[NumDirs*f.Geo.SiteIndex(s)+dir]
}

// LinkAt returns the link matrix at site index and direction.
func (f *Field) LinkAt(site, dir int) su3.Matrix {
	return f.links[NumDirs*site+dir]
}

// SetLink stores m at (site, dir) after projecting it onto SU(3).
// A singular m is rejected and the field is left unchanged.
func (f *Field) SetLink(s [4]int, dir int, m su3.Matrix) error {
	return f.SetLinkAt(f.Geo.SiteIndex(s), dir, m)
}

// SetLinkAt is SetLink addressed by site index.
func (f *Field) SetLinkAt(site, dir int, m su3.Matrix) error {
	u, err := m.Unitarize()
	if err != nil {
		return errors.Wrap(err, "")
	}
	f.links[NumDirs*site+dir] = u
	return nil
}

// Copy returns an independent deep copy of f. Neighbor tables are shared
// since they are immutable after construction.
func (f *Field) Copy() *Field {
	c := &Field{Geo: f.Geo, links: make([]su3.Matrix, len(f.links)), up: f.up, down: f.down}
	copy(c.links, f.links)
	return c
}

// Equal reports whether g stores bit-identical links.
func (f *Field) Equal(g *Field) bool {
	if f.Geo != g.Geo {
		return false
	}
	for i, m := range f.links {
		if m != g.links[i] {
			return false
		}
	}
	return true
}

// Capture snapshots the links as a dense tensor of shape (T,L,L,L,4,3,3).
func (f *Field) Capture() *tensor.Dense {
	l, t := f.Geo.L, f.Geo.T
	out := tensor.Zeros(t, l, l, l, NumDirs, 3, 3)
	ix := make([]int, 7)
	for site := range f.Geo.NumSites() {
		s := f.Geo.SiteAt(site)
		ix[0], ix[1], ix[2], ix[3] = s[0], s[1], s[2], s[3]
		for dir := range NumDirs {
			ix[4] = dir
			m := f.links[NumDirs*site+dir]
			for i := range 3 {
				ix[5] = i
				for j := range 3 {
					ix[6] = j
					out.SetAt(ix, m[i][j])
				}
			}
		}
	}
	return out
}

// Restore overwrites every link from a snapshot previously produced by
// Capture. Links are stored verbatim, so a capture-restore round trip is
// bit exact.
func (f *Field) Restore(links *tensor.Dense) error {
	l, t := f.Geo.L, f.Geo.T
	want := []int{t, l, l, l, NumDirs, 3, 3}
	shape := links.Shape()
	if len(shape) != len(want) {
		return errors.Errorf("%#v, expected %#v", shape, want)
	}
	for i, d := range want {
		if shape[i] != d {
			return errors.Errorf("%#v, expected %#v", shape, want)
		}
	}

	for site := range f.Geo.NumSites() {
		s := f.Geo.SiteAt(site)
		for dir := range NumDirs {
			var m su3.Matrix
			for i := range 3 {
				for j := range 3 {
					m[i][j] = links.At(s[0], s[1], s[2], s[3], dir, i, j)
				}
			}
			f.links[NumDirs*site+dir] = m
		}
	}
	return nil
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
