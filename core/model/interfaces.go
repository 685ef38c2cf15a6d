// Package model provides the estimator interfaces and fitted-state tracking
// shared by the tree and ensemble packages.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is implemented by models that learn from a feature matrix X
// (n_samples x n_features) and a target column y (n_samples x 1).
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor is implemented by fitted models that produce one prediction per row.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the mean accuracy on the given data and labels.
	Score(X, y mat.Matrix) float64
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns probability estimates for each class, one column
	// per class in the order returned by Classes.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}
