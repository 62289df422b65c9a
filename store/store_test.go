package store

import (
	"flag"
	"log"
	"path/filepath"
	"testing"
)

func TestStore(t *testing.T) {
	t.Parallel()
	db, err := Open(filepath.Join(t.TempDir(), "measurements.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer db.Close()

	run0, err := db.NewRun(Run{L: 4, T: 8, Beta: 5.5, U0: 1, Action: "wilson", Method: "heatbath"})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	run1, err := db.NewRun(Run{L: 8, T: 8, Beta: 5.8, U0: 1, Action: "wilson", Method: "heatbath"})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if run0 == run1 {
		t.Fatalf("%s", run0)
	}

	// Out of order inserts come back sorted by sweep.
	for _, m := range []struct {
		sweep int
		value float64
	}{{sweep: 20, value: 0.51}, {sweep: 10, value: 0.49}, {sweep: 30, value: 0.5}} {
		if err := db.Add(run0, m.sweep, "plaquette", m.value); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if err := db.Add(run0, 10, "wilson_2x2", 0.25); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := db.Add(run1, 10, "plaquette", 0.6); err != nil {
		t.Fatalf("%+v", err)
	}

	vs, err := db.Values(run0, "plaquette")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := []float64{0.49, 0.51, 0.5}
	if len(vs) != len(want) {
		t.Fatalf("%v", vs)
	}
	for i, v := range vs {
		if v != want[i] {
			t.Fatalf("%v, expected %v", vs, want)
		}
	}

	if vs, err := db.Values(run1, "wilson_2x2"); err != nil || len(vs) != 0 {
		t.Fatalf("%v %+v", vs, err)
	}
}

func TestAddDuplicate(t *testing.T) {
	t.Parallel()
	db, err := Open(filepath.Join(t.TempDir(), "measurements.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer db.Close()

	run, err := db.NewRun(Run{L: 4, T: 8})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := db.Add(run, 10, "plaquette", 0.5); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := db.Add(run, 10, "plaquette", 0.6); err == nil {
		t.Fatalf("expected primary key violation")
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
