// Package panel builds the synthetic individual panel: base covariates,
// replication, and every exogenous random draw used downstream.
//
// All randomness flows from a single seeded source so a full run is
// reproducible end-to-end. Draw order per unit is fixed: the four taste
// shocks, the two gumbel components of the performance shock, then the
// rationing uniform. Changing this order changes every seeded run.
package panel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Covariates are the time-invariant observables of one individual.
type Covariates struct {
	White float64
	South float64
}

// Value returns the named covariate. Unknown names are an error so a
// misconfigured covariate list fails loudly rather than fitting on zeros.
func (c Covariates) Value(name string) (float64, error) {
	switch name {
	case "white":
		return c.White, nil
	case "south":
		return c.South, nil
	default:
		return 0, fmt.Errorf("unknown covariate %q", name)
	}
}

// Unit is one synthetic individual with both periods' exogenous draws.
//
// EV01/EV11 are the period-1 taste shocks for the "stay out" and "enroll"
// alternatives; EV02/EV12 are the period-2 pair. Eta is the performance
// shock, drawn once and shared by both periods. Ration is the uniform
// draw gating period-2 admission in the rationed world only.
type Unit struct {
	ID  int
	Cov Covariates

	EV01, EV11 float64
	EV02, EV12 float64
	Eta        float64
	Ration     float64
}

// LoadBaseCSV reads a base sample from a CSV file with a header row and
// columns id,white,south.
func LoadBaseCSV(path string) ([]Covariates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening base sample: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading base sample: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("base sample %s has no data rows", path)
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		cols[name] = i
	}
	for _, required := range []string{"white", "south"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("base sample %s missing column %q", path, required)
		}
	}

	base := make([]Covariates, 0, len(records)-1)
	for i, rec := range records[1:] {
		white, err := parseBinary(rec[cols["white"]])
		if err != nil {
			return nil, fmt.Errorf("base sample row %d: white: %w", i+1, err)
		}
		south, err := parseBinary(rec[cols["south"]])
		if err != nil {
			return nil, fmt.Errorf("base sample row %d: south: %w", i+1, err)
		}
		base = append(base, Covariates{White: white, South: south})
	}

	return base, nil
}

func parseBinary(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v != 0 && v != 1 {
		return 0, fmt.Errorf("expected 0/1, got %v", v)
	}
	return v, nil
}

// Sampler draws base covariates and unit-level shocks from one seeded source.
type Sampler struct {
	src  rand.Source
	unif distuv.Uniform
}

// NewSampler creates a sampler seeded with seed.
func NewSampler(seed uint64) *Sampler {
	src := rand.NewSource(seed)
	return &Sampler{
		src:  src,
		unif: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// SyntheticBase draws n base individuals with independent Bernoulli(1/2)
// covariates. Used when no base CSV is configured.
func (s *Sampler) SyntheticBase(n int) []Covariates {
	bern := distuv.Bernoulli{P: 0.5, Src: s.src}
	base := make([]Covariates, n)
	for i := range base {
		base[i] = Covariates{White: bern.Rand(), South: bern.Rand()}
	}
	return base
}

// Sample replicates the base sample reps times and draws all shocks,
// producing the full unit panel. Unit IDs are assigned sequentially.
func (s *Sampler) Sample(base []Covariates, reps int) []Unit {
	units := make([]Unit, 0, len(base)*reps)
	id := 0
	for r := 0; r < reps; r++ {
		for _, cov := range base {
			u := Unit{
				ID:   id,
				Cov:  cov,
				EV01: s.gumbel(),
				EV11: s.gumbel(),
				EV02: s.gumbel(),
				EV12: s.gumbel(),
			}
			// Difference of two independent type-1 EV draws is
			// standard logistic.
			u.Eta = s.gumbel() - s.gumbel()
			u.Ration = s.unif.Rand()
			units = append(units, u)
			id++
		}
	}
	return units
}

// gumbel returns a standard type-1 extreme-value draw via the inverse
// transform -ln(-ln(U)).
func (s *Sampler) gumbel() float64 {
	u := s.unif.Rand()
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	return -math.Log(-math.Log(u))
}
