package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTol is the relative singular value cutoff used when the design matrix is
// rank deficient. One-hot groups plus an intercept always are.
const rankTol = 1e-10

// OLSRegression computes ordinary least squares with an intercept. It solves
// with QR factorization and falls back to the minimum-norm SVD solution when
// R has a zero on its diagonal.
type OLSRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// withOnes prepends a constant 1.0 column to x
func withOnes(x mat.Matrix) mat.Matrix {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(1, m, ones)

	var xWithOnes mat.Dense
	xWithOnes.Stack(onesMx, x.T())
	return xWithOnes.T()
}

// Fit the model according to the given training data
func (o *OLSRegression) Fit(x mat.Matrix, y []float64) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	if m == 0 {
		return ErrEmptyDataset
	}
	if len(y) != m {
		return fmt.Errorf("training data has %d rows and target has %d rows, %w", m, len(y), ErrTargetLenMismatch)
	}

	x = withOnes(x)

	c, ok := solveQR(x, y)
	if !ok {
		var err error
		c, err = solveSVD(x, y)
		if err != nil {
			return err
		}
	}

	o.Intercept = c[0]
	o.Coef = c[1:]
	return nil
}

// solveQR solves the least squares problem through the thin factors. Q is
// never formed, so memory stays linear in the number of rows.
func solveQR(x mat.Matrix, y []float64) ([]float64, bool) {
	m, n := x.Dims()
	if m < n {
		return nil, false
	}

	var qr mat.QR
	qr.Factorize(x)

	var r mat.Dense
	qr.RTo(&r)

	scale := 0.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(r.At(i, i)))
	}
	for i := 0; i < n; i++ {
		if math.Abs(r.At(i, i)) <= rankTol*scale {
			return nil, false
		}
	}

	var c mat.Dense
	if err := qr.SolveTo(&c, false, mat.NewDense(m, 1, y)); err != nil {
		return nil, false
	}
	return mat.Col(nil, 0, &c), true
}

func solveSVD(x mat.Matrix, y []float64) ([]float64, error) {
	m, _ := x.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed")
	}
	rank := svd.Rank(rankTol)
	if rank == 0 {
		return nil, fmt.Errorf("design matrix has rank 0")
	}

	var c mat.Dense
	svd.SolveTo(&c, mat.NewDense(m, 1, y), rank)
	return mat.Col(nil, 0, &c), nil
}

// Predict returns intercept + x·coef for every row of x
func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if len(o.Coef) == 0 {
		return nil, ErrNotFitted
	}
	m, n := x.Dims()
	if n != len(o.Coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(o.Coef), ErrFeatureLenMismatch)
	}

	var res mat.VecDense
	res.MulVec(x, mat.NewVecDense(n, o.Coef))

	out := make([]float64, m)
	for i := range out {
		out[i] = res.AtVec(i) + o.Intercept
	}
	return out, nil
}

// Score computes the coefficient of determination of the prediction
func (o *OLSRegression) Score(x mat.Matrix, y []float64) (float64, error) {
	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}
	if len(res) != len(y) {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", len(res), len(y), ErrTargetLenMismatch)
	}
	return stat.RSquaredFrom(res, y, nil), nil
}
