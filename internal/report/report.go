// Package report turns a simulated and estimated run into named series
// and renders descriptive tables.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"

	"github.com/mhusted/schoolsim/internal/estimate"
	"github.com/mhusted/schoolsim/internal/simulate"
)

// Series is one named column over the unit panel. Period is 1 or 2 for
// period-specific outcomes and 0 for period-invariant solved objects.
type Series struct {
	Name   string
	Period int
	Values []float64
}

// Mean returns the series sample mean.
func (s Series) Mean() float64 {
	return stat.Mean(s.Values, nil)
}

// StdDev returns the series sample standard deviation.
func (s Series) StdDev() float64 {
	return stat.StdDev(s.Values, nil)
}

// Build assembles every named series for a run: the true status-quo and
// counterfactual columns from the simulator, plus each estimated
// specification's fitted and counterfactual columns. Models may be nil
// for simulate-only runs.
func Build(res simulate.Result, static, dynamic *estimate.Model,
	staticC, dynamicC []estimate.CounterPrediction) []Series {

	n := len(res.Outcomes)
	var out []Series

	add := func(name string, period int, value func(i int) float64) {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = value(i)
		}
		out = append(out, Series{Name: name, Period: period, Values: vals})
	}
	o := func(i int) simulate.Outcome { return res.Outcomes[i] }

	// True status quo.
	add("effort", 0, func(i int) float64 { return o(i).Base.Effort })
	add("variable_cost", 0, func(i int) float64 { return o(i).Base.VariableCost })
	add("flow_utility", 0, func(i int) float64 { return o(i).Base.FlowUtility })
	add("success_prob", 0, func(i int) float64 { return o(i).Base.SuccessProb })
	add("emax", 0, func(i int) float64 { return o(i).Base.Emax })
	add("school", 1, func(i int) float64 { return b2f(o(i).School1) })
	add("success", 1, func(i int) float64 { return b2f(o(i).Success) })
	add("school", 2, func(i int) float64 { return b2f(o(i).School2) })

	// True counterfactual.
	add("effort_counter", 0, func(i int) float64 { return o(i).Rationed.Effort })
	add("variable_cost_counter", 0, func(i int) float64 { return o(i).Rationed.VariableCost })
	add("flow_utility_counter", 0, func(i int) float64 { return o(i).Rationed.FlowUtility })
	add("success_prob_counter", 0, func(i int) float64 { return o(i).Rationed.SuccessProb })
	add("emax_counter", 0, func(i int) float64 { return o(i).Rationed.Emax })
	add("school_counter", 1, func(i int) float64 { return b2f(o(i).School1C) })
	add("success_counter", 1, func(i int) float64 { return b2f(o(i).SuccessC) })
	add("school_counter", 2, func(i int) float64 { return b2f(o(i).School2C) })

	for _, em := range []struct {
		m       *estimate.Model
		counter []estimate.CounterPrediction
	}{{static, staticC}, {dynamic, dynamicC}} {
		if em.m == nil {
			continue
		}
		m := em.m
		prefix := m.Spec.String() + "_"
		p := func(i int) estimate.Prediction { return m.Pred[i] }

		add(prefix+"Y", 0, func(i int) float64 { return p(i).Y })
		add(prefix+"PHI", 0, func(i int) float64 { return p(i).Phi })
		add(prefix+"PSI", 0, func(i int) float64 { return p(i).Psi })
		add(prefix+"EMAX", 0, func(i int) float64 { return p(i).Emax })
		add(prefix+"COLLEGE", 0, func(i int) float64 { return p(i).College })
		add(prefix+"MC", 0, func(i int) float64 { return p(i).MC })
		add(prefix+"VC", 0, func(i int) float64 { return p(i).VC })
		add(prefix+"FC", 0, func(i int) float64 { return p(i).FC })
		add(prefix+"SCHOOL", 1, func(i int) float64 { return p(i).School1 })
		add(prefix+"SUCCESS", 1, func(i int) float64 { return p(i).Success })
		add(prefix+"SCHOOL", 2, func(i int) float64 { return p(i).School2 })

		if em.counter == nil {
			continue
		}
		c := em.counter
		add(prefix+"Y_COUNTER", 0, func(i int) float64 { return c[i].Y })
		add(prefix+"PHI_COUNTER", 0, func(i int) float64 { return c[i].Phi })
		add(prefix+"VC_COUNTER", 0, func(i int) float64 { return c[i].VC })
		add(prefix+"EMAX_COUNTER", 0, func(i int) float64 { return c[i].Emax })
		add(prefix+"SCHOOL_COUNTER", 1, func(i int) float64 { return c[i].School1 })
		add(prefix+"SUCCESS_COUNTER", 1, func(i int) float64 { return c[i].Success })
		add(prefix+"SCHOOL_COUNTER", 2, func(i int) float64 { return c[i].School2 })
	}

	return out
}

// Filter returns the series matching the period filter: 1 or 2 keep
// period-specific and period-invariant series; 0 keeps everything.
func Filter(series []Series, period int) []Series {
	if period == 0 {
		return series
	}
	var out []Series
	for _, s := range series {
		if s.Period == 0 || s.Period == period {
			out = append(out, s)
		}
	}
	return out
}

// Render writes a summary table of means and standard deviations.
func Render(w io.Writer, series []Series) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Series", "Period", "Mean", "Std Dev", "N"})

	for _, s := range series {
		period := "-"
		if s.Period != 0 {
			period = fmt.Sprintf("%d", s.Period)
		}
		table.Append([]string{
			s.Name,
			period,
			fmt.Sprintf("%.4f", s.Mean()),
			fmt.Sprintf("%.4f", s.StdDev()),
			fmt.Sprintf("%d", len(s.Values)),
		})
	}

	table.Render()
}

// StageRow is one fitted coefficient of one estimated model's stage.
type StageRow struct {
	Spec  string  `json:"spec"`
	Stage string  `json:"stage"`
	Term  string  `json:"term"`
	Coef  float64 `json:"coef"`
}

// Stages flattens every fitted stage of the given models into rows,
// preserving stage and term order. Nil models are skipped.
func Stages(models ...*estimate.Model) []StageRow {
	var out []StageRow
	for _, m := range models {
		if m == nil {
			continue
		}
		for _, st := range []estimate.Stage{m.College, m.Graduation, m.LogEffort, m.Schooling} {
			for j, name := range st.XNames {
				out = append(out, StageRow{
					Spec:  m.Spec.String(),
					Stage: st.Name,
					Term:  name,
					Coef:  st.Coefs[j],
				})
			}
		}
	}
	return out
}

// RenderStages writes the fitted coefficient table.
func RenderStages(w io.Writer, rows []StageRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Spec", "Stage", "Term", "Coefficient"})

	for _, r := range rows {
		table.Append([]string{r.Spec, r.Stage, r.Term, fmt.Sprintf("%.4f", r.Coef)})
	}

	table.Render()
}

// ComparisonRow is one outcome's mean across the four worlds: the true
// status quo, the true counterfactual, and each estimated model's
// counterfactual prediction.
type ComparisonRow struct {
	Outcome        string
	Period         int
	StatusQuo      float64
	TrueCounter    float64
	StaticCounter  float64
	DynamicCounter float64
}

// Compare builds the headline comparison: how each estimated model's
// counterfactual prediction tracks the true counterfactual.
func Compare(res simulate.Result,
	staticC, dynamicC []estimate.CounterPrediction) []ComparisonRow {

	n := float64(len(res.Outcomes))
	mean := func(f func(i int) float64) float64 {
		var sum float64
		for i := range res.Outcomes {
			sum += f(i)
		}
		return sum / n
	}
	o := func(i int) simulate.Outcome { return res.Outcomes[i] }

	return []ComparisonRow{
		{
			Outcome:        "school",
			Period:         1,
			StatusQuo:      mean(func(i int) float64 { return b2f(o(i).School1) }),
			TrueCounter:    mean(func(i int) float64 { return b2f(o(i).School1C) }),
			StaticCounter:  mean(func(i int) float64 { return staticC[i].School1 }),
			DynamicCounter: mean(func(i int) float64 { return dynamicC[i].School1 }),
		},
		{
			Outcome:        "success",
			Period:         1,
			StatusQuo:      mean(func(i int) float64 { return b2f(o(i).Success) }),
			TrueCounter:    mean(func(i int) float64 { return b2f(o(i).SuccessC) }),
			StaticCounter:  mean(func(i int) float64 { return staticC[i].Success }),
			DynamicCounter: mean(func(i int) float64 { return dynamicC[i].Success }),
		},
		{
			Outcome:        "school",
			Period:         2,
			StatusQuo:      mean(func(i int) float64 { return b2f(o(i).School2) }),
			TrueCounter:    mean(func(i int) float64 { return b2f(o(i).School2C) }),
			StaticCounter:  mean(func(i int) float64 { return staticC[i].School2 }),
			DynamicCounter: mean(func(i int) float64 { return dynamicC[i].School2 }),
		},
	}
}

// RenderComparison writes the comparison table.
func RenderComparison(w io.Writer, rows []ComparisonRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Outcome", "Period", "Status Quo", "True CF", "Static CF", "Dynamic CF"})

	for _, r := range rows {
		table.Append([]string{
			r.Outcome,
			fmt.Sprintf("%d", r.Period),
			fmt.Sprintf("%.4f", r.StatusQuo),
			fmt.Sprintf("%.4f", r.TrueCounter),
			fmt.Sprintf("%.4f", r.StaticCounter),
			fmt.Sprintf("%.4f", r.DynamicCounter),
		})
	}

	table.Render()
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
