// Package ensemble implements a random forest classifier on top of
// sklearn/tree, compatible with scikit-learn's RandomForestClassifier.
package ensemble

import (
	"math"
	"strconv"
	"time"

	"github.com/YuminosukeSato/badfeatures/core/model"
	"github.com/YuminosukeSato/badfeatures/core/parallel"
	"github.com/YuminosukeSato/badfeatures/metrics"
	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"github.com/YuminosukeSato/badfeatures/pkg/log"
	"github.com/YuminosukeSato/badfeatures/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

const modelName = "RandomForestClassifier"

var (
	_ model.Classifier      = (*RandomForestClassifier)(nil)
	_ model.ParameterGetter = (*RandomForestClassifier)(nil)
	_ model.ParameterSetter = (*RandomForestClassifier)(nil)
)

// Values accepted by WithMaxFeatures.
const (
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "all"
)

// RandomForestClassifier fits decision trees on bootstrap samples and
// averages their class probabilities.
type RandomForestClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	nEstimators     int    // Number of trees
	criterion       string // Split criterion passed to every tree
	maxDepth        int    // -1 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string // "sqrt", "log2" or "all"
	bootstrap       bool   // Draw a bootstrap sample per tree
	nJobs           int    // Worker count, negative values count back from the CPU total
	randomState     int64  // Random seed, -1 for a time based seed

	// Model parameters
	estimators_         []*tree.DecisionTreeClassifier
	classes_            []float64
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
	workers_            int

	logger log.Logger
}

// Option is a functional option for RandomForestClassifier
type Option func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest with scikit-learn's defaults:
// 100 trees, gini, unlimited depth, sqrt features and bootstrap sampling.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       tree.CriterionGini,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesSqrt,
		bootstrap:       true,
		nJobs:           1,
		randomState:     -1,
		logger:          log.GetLoggerWithName("ensemble"),
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithCriterion sets the split criterion of every tree
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) {
		rf.criterion = criterion
	}
}

// WithMaxDepth sets the maximum depth of every tree, -1 for unlimited
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required in a leaf
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features each split examines: "sqrt", "log2" or "all"
func WithMaxFeatures(rule string) Option {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = rule
	}
}

// WithBootstrap toggles bootstrap sampling
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = bootstrap
	}
}

// WithNJobs sets the number of trees fitted concurrently. -1 uses every CPU.
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) {
		rf.nJobs = n
	}
}

// WithRandomState sets the seed for bootstrap samples and feature draws
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// WithLogger replaces the logger
func WithLogger(logger log.Logger) Option {
	return func(rf *RandomForestClassifier) {
		rf.logger = logger
	}
}

func (rf *RandomForestClassifier) validate() error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	if rf.maxDepth == 0 || rf.maxDepth < -1 {
		return errors.NewValidationError("max_depth", "must be -1 or at least 1", rf.maxDepth)
	}
	switch rf.maxFeatures {
	case MaxFeaturesSqrt, MaxFeaturesLog2, MaxFeaturesAll:
	default:
		return errors.NewValidationError("max_features", "must be sqrt, log2 or all", rf.maxFeatures)
	}
	return nil
}

// resolveMaxFeatures turns the max_features rule into a feature count.
func (rf *RandomForestClassifier) resolveMaxFeatures(nFeatures int) int {
	var k int
	switch rf.maxFeatures {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	if k < 1 {
		k = 1
	}
	return k
}

// Fit trains the forest on X (n_samples x n_features) and y (n_samples x 1).
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	ds, err := tree.NewDataset(X, y)
	if err != nil {
		return err
	}
	return rf.FitDataset(ds)
}

// FitDataset trains the forest on a prepared Dataset. Trees are fitted
// concurrently; per-tree seeds are drawn up front from the forest seed so the
// result does not depend on scheduling.
func (rf *RandomForestClassifier) FitDataset(ds *tree.Dataset) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if ds == nil {
		return errors.Wrap(errors.ErrEmptyData, "RandomForestClassifier.Fit")
	}
	if err := rf.validate(); err != nil {
		return err
	}
	workers, err := parallel.ResolveWorkers(rf.nJobs)
	if err != nil {
		return err
	}
	if workers > rf.nEstimators {
		workers = rf.nEstimators
	}

	n, p := ds.Dims()
	maxFeatures := rf.resolveMaxFeatures(p)
	start := time.Now()

	rf.logger.Info("Fitting random forest",
		log.ModelNameKey, modelName,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.WorkersKey, workers,
		log.RandomSeedKey, rf.randomState,
		log.HyperParamsKey, rf.GetParams(),
	)

	rf.state.Reset()
	rng := tree.NewRand(rf.randomState)
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	estimators := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ForEach(rf.nEstimators, workers, func(i int) {
		errs[i] = errors.SafeExecute("RandomForestClassifier.Fit", func() error {
			dt := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.criterion),
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesSplit(rf.minSamplesSplit),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithRandomState(seeds[i]),
			)
			if err := dt.FitDataset(ds, rf.drawSamples(n, seeds[i])); err != nil {
				return errors.NewModelError("RandomForestClassifier.Fit", "tree "+strconv.Itoa(i), err)
			}
			estimators[i] = dt
			return nil
		})
	})
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	rf.estimators_ = estimators
	rf.classes_ = ds.Classes()
	rf.nClasses_ = ds.NClasses()
	rf.nFeatures_ = p
	rf.workers_ = workers
	rf.computeFeatureImportances()
	rf.state.SetFitted(p, n)

	rf.logger.Info("Random forest fitted",
		log.ModelNameKey, modelName,
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"forest.n_estimators", len(estimators),
	)
	return nil
}

// drawSamples returns the rows a tree trains on: a bootstrap sample of size n
// or every row.
func (rf *RandomForestClassifier) drawSamples(n int, seed int64) []int {
	samples := make([]int, n)
	if !rf.bootstrap {
		for i := range samples {
			samples[i] = i
		}
		return samples
	}
	// Offset keeps the bootstrap stream apart from the tree's feature draws.
	rng := tree.NewRand(seed ^ 0x5deece66d)
	for i := range samples {
		samples[i] = rng.Intn(n)
	}
	return samples
}

func (rf *RandomForestClassifier) computeFeatureImportances() {
	imp := make([]float64, rf.nFeatures_)
	for _, est := range rf.estimators_ {
		for j, v := range est.GetFeatureImportances() {
			imp[j] += v
		}
	}
	var total float64
	for _, v := range imp {
		total += v
	}
	if total > 0 {
		for j := range imp {
			imp[j] /= total
		}
	}
	rf.featureImportances_ = imp
}

// PredictProba returns the mean class probabilities of the trees, one column
// per class in the order returned by Classes.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted(modelName, "PredictProba"); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	if err := rf.state.CheckFeatures("PredictProba", c); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "RandomForestClassifier.PredictProba")
	}

	probas := mat.NewDense(n, rf.nClasses_, nil)
	scale := 1 / float64(len(rf.estimators_))
	parallel.ParallelizeWorkers(n, rf.workers_, func(start, end int) {
		buf := make([]float32, c)
		acc := make([]float64, rf.nClasses_)
		for i := start; i < end; i++ {
			row := tree.Float32Row(X, i, buf)
			for k := range acc {
				acc[k] = 0
			}
			for _, est := range rf.estimators_ {
				for k, v := range est.PredictProbaRow(row) {
					acc[k] += v
				}
			}
			for k := range acc {
				acc[k] *= scale
			}
			probas.SetRow(i, acc)
		}
	})
	return probas, nil
}

// Predict returns the class with the highest mean probability for every row.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, k := probas.Dims()
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if probas.At(i, j) > probas.At(i, best) {
				best = j
			}
		}
		predictions.Set(i, 0, rf.classes_[best])
	}
	return predictions, nil
}

// ScoreE returns the mean accuracy on the given data and labels.
func (rf *RandomForestClassifier) ScoreE(X, y mat.Matrix) (float64, error) {
	predictions, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// Score returns the mean accuracy on the given test data and labels
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	score, err := rf.ScoreE(X, y)
	if err != nil {
		return 0.0
	}
	return score
}

// Classes returns the unique classes seen during fitting.
func (rf *RandomForestClassifier) Classes() []float64 {
	out := make([]float64, len(rf.classes_))
	copy(out, rf.classes_)
	return out
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	out := make([]*tree.DecisionTreeClassifier, len(rf.estimators_))
	copy(out, rf.estimators_)
	return out
}

// GetFeatureImportances returns the mean of the trees' normalized importances.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, len(rf.featureImportances_))
	copy(out, rf.featureImportances_)
	return out
}

// GetParams returns the model hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"n_jobs":            rf.nJobs,
		"random_state":      rf.randomState,
	}
}

// SetParams sets the model hyperparameters
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion", "max_features":
			v, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			if key == "criterion" {
				rf.criterion = v
			} else {
				rf.maxFeatures = v
			}
		case "bootstrap":
			v, ok := value.(bool)
			if !ok {
				return errors.NewValidationError(key, "must be a bool", value)
			}
			rf.bootstrap = v
		case "n_estimators", "max_depth", "min_samples_split", "min_samples_leaf", "n_jobs", "random_state":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			switch key {
			case "n_estimators":
				rf.nEstimators = v
			case "max_depth":
				rf.maxDepth = v
			case "min_samples_split":
				rf.minSamplesSplit = v
			case "min_samples_leaf":
				rf.minSamplesLeaf = v
			case "n_jobs":
				rf.nJobs = v
			default:
				rf.randomState = int64(v)
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}
