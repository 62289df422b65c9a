package latqcd

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"testing"

	"latqcd/action"
	"latqcd/dirac"
	"latqcd/su3"
	"latqcd/update"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mut  func(*Params)
		err  bool
	}{
		{name: "default", mut: func(p *Params) {}},
		{name: "sequential", mut: func(p *Params) { p.ParallelUpdates = false }},
		{name: "zero L", mut: func(p *Params) { p.L = 0 }, err: true},
		{name: "negative T", mut: func(p *Params) { p.T = -8 }, err: true},
		{name: "block size does not divide L", mut: func(p *Params) { p.BlockSize = 3 }, err: true},
		{name: "block size does not divide T", mut: func(p *Params) { p.L = 6; p.T = 8; p.BlockSize = 6 }, err: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultParams()
			p.RandSeed = 42
			test.mut(&p)
			lat, err := New(p)
			if test.err {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if got := lat.AveragePlaquette(); math.Abs(got-1) > 1e-6 {
				t.Fatalf("%f", got)
			}
		})
	}
}

func TestGetSetLink(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	p.RandSeed = 42
	lat, err := New(p)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	rng := rand.New(rand.NewPCG(149, 151))
	i := [5]int{3, 1, 2, 0, 2}
	m := su3.Rand(rng)
	if err := lat.SetLink(i, m); err != nil {
		t.Fatalf("%+v", err)
	}
	got := lat.GetLink(i)
	for a := range 3 {
		for b := range 3 {
			if d := got[a][b] - m[a][b]; real(d)*real(d)+imag(d)*imag(d) > 1e-8 {
				t.Fatalf("%v, expected %v", got, m)
			}
		}
	}

	// Untouched links stay cold.
	if got := lat.GetLink([5]int{0, 0, 0, 0, 0}); got != su3.Identity() {
		t.Fatalf("%v", got)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	p.L, p.T, p.BlockSize = 4, 4, 2
	p.RandSeed = 42
	lat, err := New(p)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	lat.RunSweeps(2)

	snap := lat.Config()
	if snap.Beta != p.Beta || snap.Action != action.Wilson {
		t.Fatalf("%#v", snap)
	}
	plaq := lat.AveragePlaquette()

	lat.RunSweeps(2)
	if lat.AveragePlaquette() == plaq {
		t.Fatalf("chain did not move")
	}

	if err := lat.SetConfig(snap); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := lat.AveragePlaquette(); got != plaq {
		t.Fatalf("%v, expected %v", got, plaq)
	}
}

func TestSetConfigWrongSize(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	p.RandSeed = 42
	lat, err := New(p)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	snap := lat.Config()
	snap.L = 8
	if err := lat.SetConfig(snap); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunSweepsDeterminism(t *testing.T) {
	t.Parallel()
	run := func(seed int64) float64 {
		p := DefaultParams()
		p.L, p.T, p.BlockSize = 4, 4, 2
		p.RandSeed = seed
		lat, err := New(p)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		lat.RunSweeps(2)
		return lat.AveragePlaquette()
	}
	if a, b := run(42), run(42); a != b {
		t.Fatalf("%v %v", a, b)
	}
	if a, b := run(42), run(43); a == b {
		t.Fatalf("%v", a)
	}
}

func TestUpdateMethods(t *testing.T) {
	t.Parallel()
	for _, method := range []update.Method{update.Heatbath, update.Metropolis, update.StapleMetropolis} {
		t.Run(method.String(), func(t *testing.T) {
			t.Parallel()
			p := DefaultParams()
			p.L, p.T, p.BlockSize = 4, 4, 2
			p.UpdateMethod = method
			p.RandSeed = 42
			lat, err := New(p)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			lat.RunSweeps(2)
			// At beta=5.5 the plaquette settles well between the hot
			// and cold extremes.
			if plaq := lat.AveragePlaquette(); plaq <= 0.1 || plaq >= 1 {
				t.Fatalf("%f", plaq)
			}
		})
	}
}

func TestComputePropagator(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	p.L, p.T, p.BlockSize = 2, 4, 2
	p.RandSeed = 42
	lat, err := New(p)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	lat.RunSweeps(1)
	plaq := lat.AveragePlaquette()

	prop, err := lat.ComputePropagator(1.0, [4]int{0, 0, 0, 0}, dirac.SmearOptions{}, dirac.DefaultSolveOptions())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if prop.Mass != 1.0 || prop.L != 2 || prop.T != 4 {
		t.Fatalf("%#v", prop)
	}
	shape := prop.Data.Shape()
	want := []int{4, 2, 2, 2, 4, 3, 4, 3}
	if fmt.Sprintf("%v", shape) != fmt.Sprintf("%v", want) {
		t.Fatalf("%v, expected %v", shape, want)
	}

	// The inversion must not disturb the chain.
	if got := lat.AveragePlaquette(); got != plaq {
		t.Fatalf("%v, expected %v", got, plaq)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
