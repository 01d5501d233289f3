package estimate

import (
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/mat"
)

// offsetVar is the reserved column name carrying pinned structural terms.
// A pinned coefficient is imposed by moving its term into the offset,
// which the GLM treats as a regressor with coefficient fixed at 1.
const offsetVar = "pinned"

// design is one stage's regression inputs: an outcome column plus
// covariate columns (column-major, intercept excluded) and an optional
// offset of pinned terms.
type design struct {
	stage  string
	filter string
	y      []float64
	x      [][]float64
	xnames []string
	offset []float64
}

// validate checks the design for degeneracy before any fit is attempted:
// non-empty rows, two-sided outcome when binary, and a full-rank design
// matrix (intercept included).
func (d *design) validate(binary bool) error {
	n := len(d.y)
	if n == 0 {
		return &DegenerateSubsampleError{Stage: d.stage, Filter: d.filter, Reason: "empty subsample"}
	}

	if binary {
		ones := 0
		for _, v := range d.y {
			if v != 0 {
				ones++
			}
		}
		if ones == 0 || ones == n {
			return &DegenerateSubsampleError{
				Stage: d.stage, Filter: d.filter,
				Reason: "outcome has no variation",
			}
		}
	}

	// Full design matrix with intercept, checked by SVD.
	k := len(d.x) + 1
	if n < k {
		return &DegenerateSubsampleError{
			Stage: d.stage, Filter: d.filter,
			Reason: "fewer rows than regressors",
		}
	}
	a := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
	}
	for j, col := range d.x {
		a.SetCol(j+1, col)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return &DegenerateSubsampleError{Stage: d.stage, Filter: d.filter, Reason: "SVD did not converge"}
	}
	sv := svd.Values(nil)
	if sv[0] == 0 || sv[len(sv)-1] < 1e-10*sv[0] {
		return &DegenerateSubsampleError{
			Stage: d.stage, Filter: d.filter,
			Reason: "rank-deficient design matrix",
		}
	}

	return nil
}

// fit runs the GLM for the design under the given family and returns the
// coefficients aligned to [icept, xnames...].
func (d *design) fit(family *glm.Family, link *glm.Link) ([]float64, error) {
	n := len(d.y)

	icept := make([]float64, n)
	for i := range icept {
		icept[i] = 1
	}

	data := [][]float64{d.y, icept}
	varnames := []string{"y", "icept"}
	xnames := []string{"icept"}
	for j, col := range d.x {
		data = append(data, col)
		varnames = append(varnames, d.xnames[j])
		xnames = append(xnames, d.xnames[j])
	}

	c := glm.DefaultConfig()
	c.Family = family
	c.Link = link
	if d.offset != nil {
		data = append(data, d.offset)
		varnames = append(varnames, offsetVar)
		c.OffsetVar = offsetVar
	}

	model, err := glm.NewGLM(statmodel.NewDataset(data, varnames), "y", xnames, c)
	if err != nil {
		return nil, err
	}
	result := model.Fit()
	if result == nil {
		return nil, &ConstraintMismatchError{Stage: d.stage, Reason: "GLM fit did not converge"}
	}

	params := result.Params()
	if len(params) != len(xnames) {
		return nil, &ConstraintMismatchError{
			Stage:  d.stage,
			Reason: "solver returned a coefficient for a pinned term",
		}
	}
	for _, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, &ConstraintMismatchError{Stage: d.stage, Reason: "non-finite coefficient"}
		}
	}

	coefs := make([]float64, len(params))
	copy(coefs, params)
	return coefs, nil
}

// fitLogit fits a binomial/logit stage.
func (d *design) fitLogit() ([]float64, error) {
	if err := d.validate(true); err != nil {
		return nil, err
	}
	return d.fit(glm.NewFamily(glm.BinomialFamily), glm.NewLink(glm.LogitLink))
}

// fitLinear fits a gaussian/identity stage.
func (d *design) fitLinear() ([]float64, error) {
	if err := d.validate(false); err != nil {
		return nil, err
	}
	return d.fit(glm.NewFamily(glm.GaussianFamily), glm.NewLink(glm.IdentityLink))
}
