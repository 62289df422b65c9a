// Command run drives a lattice QCD Monte Carlo chain and records gauge
// observables.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"latqcd"
	"latqcd/action"
	"latqcd/store"
	"latqcd/update"
)

const (
	fnameDB         = "measurements.db"
	fnameStatistics = "statistics.txt"
)

var (
	runDir    = flag.String("d", filepath.Join("runs", "latqcd"), "run directory")
	spatial   = flag.Int("L", 4, "spatial extent")
	temporal  = flag.Int("T", 8, "temporal extent")
	beta      = flag.Float64("beta", 5.5, "inverse coupling")
	u0        = flag.Float64("u0", 1, "mean link")
	actionStr = flag.String("action", "wilson", "gauge action: wilson, rectangle_improved or twisted_rectangle_improved")
	methodStr = flag.String("method", "heatbath", "update method: heatbath, metropolis or staple_metropolis")
	parallel  = flag.Bool("parallel", true, "use block parallel updates")
	blockSize = flag.Int("blocksize", 4, "block edge length for parallel updates")
	seed      = flag.Int64("seed", -1, "random seed, -1 for an entropy seed")
	nCor      = flag.Int("ncor", 10, "sweeps between measurements")
	nCf       = flag.Int("ncf", 100, "number of measured configurations")
)

// Statistics summarizes a measurement series by its mean and the naive
// standard error of the mean.
type Statistics struct {
	Plaquette    float64
	PlaquetteErr float64
	Wilson2x2    float64
	Wilson2x2Err float64
}

func summarize(vs []float64) (float64, float64) {
	mean, std := stat.MeanStdDev(vs, nil)
	return mean, std / math.Sqrt(float64(len(vs)))
}

func run() error {
	kind, err := action.ParseKind(*actionStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	method, err := update.ParseMethod(*methodStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	p := latqcd.Params{
		L:               *spatial,
		T:               *temporal,
		Beta:            *beta,
		U0:              *u0,
		Action:          kind,
		NCor:            *nCor,
		UpdateMethod:    method,
		ParallelUpdates: *parallel,
		BlockSize:       *blockSize,
		RandSeed:        *seed,
	}
	lat, err := latqcd.New(p)
	if err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	db, err := store.Open(filepath.Join(*runDir, fnameDB))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()
	runID, err := db.NewRun(store.Run{
		L: p.L, T: p.T, Beta: p.Beta, U0: p.U0,
		Action: p.Action.String(), Method: p.UpdateMethod.String(),
	})
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("run %s", runID)

	lat.Thermalize()
	log.Printf("thermalized, plaquette %f", lat.AveragePlaquette())

	sweeps := 10 * p.NCor
	for range *nCf {
		lat.RunSweeps(p.NCor)
		sweeps += p.NCor

		plaq := lat.AveragePlaquette()
		if err := db.Add(runID, sweeps, "plaquette", plaq); err != nil {
			return errors.Wrap(err, "")
		}
		if err := db.Add(runID, sweeps, "wilson_2x2", lat.WilsonLoop(2, 2)); err != nil {
			return errors.Wrap(err, "")
		}
		log.Printf("sweep %d plaquette %f", sweeps, plaq)
	}

	plaqs, err := db.Values(runID, "plaquette")
	if err != nil {
		return errors.Wrap(err, "")
	}
	wilsons, err := db.Values(runID, "wilson_2x2")
	if err != nil {
		return errors.Wrap(err, "")
	}
	var stats Statistics
	stats.Plaquette, stats.PlaquetteErr = summarize(plaqs)
	stats.Wilson2x2, stats.Wilson2x2Err = summarize(wilsons)
	log.Printf("plaquette %f +- %f in [%f, %f], wilson 2x2 %f +- %f",
		stats.Plaquette, stats.PlaquetteErr, floats.Min(plaqs), floats.Max(plaqs),
		stats.Wilson2x2, stats.Wilson2x2Err)

	b, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(*runDir, fnameStatistics), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := run(); err != nil {
		log.Fatalf("%+v", err)
	}
}
