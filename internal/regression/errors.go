package regression

import "errors"

var (
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrTargetLenMismatch  = errors.New("target length does not match target rows")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrNotFitted          = errors.New("model has not been fitted")
	ErrEmptyDataset       = errors.New("dataset has no rows")
)
