package field

import (
	"flag"
	"fmt"
	"log"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"latqcd/su3"
)

func TestGeometry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		l, t int
	}{
		{l: 2, t: 2},
		{l: 4, t: 8},
		{l: 3, t: 6},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%dx%d", test.l, test.t), func(t *testing.T) {
			t.Parallel()
			geo, err := NewGeometry(test.l, test.t)
			if err != nil {
				t.Fatalf("%+v", err)
			}

			// SiteIndex is a bijection onto [0, NumSites).
			seen := make(map[int]bool)
			for ti := range geo.T {
				for x := range geo.L {
					for y := range geo.L {
						for z := range geo.L {
							s := [4]int{ti, x, y, z}
							i := geo.SiteIndex(s)
							if i < 0 || i >= geo.NumSites() {
								t.Fatalf("%v %d", s, i)
							}
							if seen[i] {
								t.Fatalf("%v %d", s, i)
							}
							seen[i] = true
							if geo.SiteAt(i) != s {
								t.Fatalf("%v, expected %v", geo.SiteAt(i), s)
							}
						}
					}
				}
			}

			// Walking Extent(dir) steps wraps back to the start.
			s := [4]int{1, 0, 1, 0}
			for dir := range NumDirs {
				w := s
				for range geo.Extent(dir) {
					w = geo.Neighbor(w, dir, 1)
				}
				if w != s {
					t.Fatalf("%d %v, expected %v", dir, w, s)
				}
				if geo.Neighbor(geo.Neighbor(s, dir, 1), dir, -1) != s {
					t.Fatalf("%d", dir)
				}
			}
		})
	}
}

func TestGeometryInvalid(t *testing.T) {
	t.Parallel()
	for _, lt := range [][2]int{{0, 4}, {4, 0}, {-1, 4}, {4, -2}} {
		if _, err := NewGeometry(lt[0], lt[1]); err == nil {
			t.Fatalf("%v", lt)
		}
	}
}

func TestNeighborTables(t *testing.T) {
	t.Parallel()
	geo, err := NewGeometry(3, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	f := New(geo)
	for site := range geo.NumSites() {
		s := geo.SiteAt(site)
		for dir := range NumDirs {
			if f.Up(site, dir) != geo.SiteIndex(geo.Neighbor(s, dir, 1)) {
				t.Fatalf("%v %d", s, dir)
			}
			if f.Down(site, dir) != geo.SiteIndex(geo.Neighbor(s, dir, -1)) {
				t.Fatalf("%v %d", s, dir)
			}
			// down then up is the identity.
			if f.Up(f.Down(site, dir), dir) != site {
				t.Fatalf("%v %d", s, dir)
			}
		}
	}
}

func TestSetLink(t *testing.T) {
	t.Parallel()
	geo, _ := NewGeometry(2, 2)
	f := New(geo)

	// A non-unitary but invertible matrix is projected onto SU(3).
	m := su3.Matrix{
		{1.2, 0.1, 0},
		{0, 0.8, 0.2i},
		{0.1i, 0, 1.1},
	}
	s := [4]int{1, 0, 1, 0}
	if err := f.SetLink(s, 2, m); err != nil {
		t.Fatalf("%+v", err)
	}
	u := f.Link(s, 2)
	p := u.Mul(u.Adjoint())
	for i := range 3 {
		for j := range 3 {
			want := complex64(0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(complex128(p[i][j]-want)) > 1e-5 {
				t.Fatalf("%v", u)
			}
		}
	}
	if cmplx.Abs(complex128(u.Det())-1) > 1e-5 {
		t.Fatalf("%v", u.Det())
	}

	// A singular matrix is rejected and the field is unchanged.
	before := f.Link(s, 2)
	if err := f.SetLink(s, 2, su3.Matrix{}); err == nil {
		t.Fatalf("expected error")
	}
	if f.Link(s, 2) != before {
		t.Fatalf("%v, expected %v", f.Link(s, 2), before)
	}
}

func TestInitialize(t *testing.T) {
	t.Parallel()
	geo, _ := NewGeometry(2, 4)
	f := New(geo)

	// Cold start: all links are the identity.
	for site := range geo.NumSites() {
		for dir := range NumDirs {
			if f.LinkAt(site, dir) != su3.Identity() {
				t.Fatalf("%d %d", site, dir)
			}
		}
	}

	// Hot start: links are unitary and not all identity.
	f.Hot(rand.New(rand.NewPCG(17, 19)))
	identities := 0
	for site := range geo.NumSites() {
		for dir := range NumDirs {
			u := f.LinkAt(site, dir)
			if cmplx.Abs(complex128(u.Det())-1) > 1e-5 {
				t.Fatalf("%v", u)
			}
			if u == su3.Identity() {
				identities++
			}
		}
	}
	if identities == geo.NumLinks() {
		t.Fatalf("%d", identities)
	}
}

func TestCaptureRestore(t *testing.T) {
	t.Parallel()
	geo, _ := NewGeometry(2, 4)
	f := New(geo)
	f.Hot(rand.New(rand.NewPCG(23, 29)))

	snap := f.Capture()

	g := New(geo)
	if err := g.Restore(snap); err != nil {
		t.Fatalf("%+v", err)
	}
	if !g.Equal(f) {
		t.Fatalf("restored field differs")
	}

	// A second capture of the restored field equals the first capture.
	snap2 := g.Capture()
	for ijk, v := range snap.All() {
		if snap2.At(ijk...) != v {
			t.Fatalf("%v", ijk)
		}
	}

	// A wrong-shaped snapshot is rejected.
	other := New(Geometry{L: 3, T: 4})
	if err := other.Restore(snap); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
