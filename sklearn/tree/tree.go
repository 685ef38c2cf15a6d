// Package tree implements a CART decision tree classifier on gonum matrices,
// compatible with scikit-learn's DecisionTreeClassifier.
//
// Training data is held as float32, thresholds are midpoints between
// neighbouring distinct values and a sample goes left when x <= threshold.
//
// FitDataset takes a multiset of row indices. A row drawn k times counts k
// times everywhere, including the min_samples_split and min_samples_leaf
// checks; scikit-learn counts distinct rows there and treats repeats as
// weight. The two agree for the default limits of 2 and 1.
package tree

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/YuminosukeSato/badfeatures/core/model"
	"github.com/YuminosukeSato/badfeatures/core/parallel"
	"github.com/YuminosukeSato/badfeatures/metrics"
	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"github.com/YuminosukeSato/badfeatures/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Split quality criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
	CriterionLogLoss = "log_loss"
)

const (
	modelName = "DecisionTreeClassifier"

	// impurityEpsilon treats a node as pure.
	impurityEpsilon = 2.220446049250313e-16
	// featureThreshold is the smallest gap between two values that can be split.
	featureThreshold = 1e-7

	// Rows above which prediction is spread over all CPUs.
	parallelPredictThreshold = 1000
)

var (
	_ model.Classifier      = (*DecisionTreeClassifier)(nil)
	_ model.ParameterGetter = (*DecisionTreeClassifier)(nil)
	_ model.ParameterSetter = (*DecisionTreeClassifier)(nil)
)

type node struct {
	feature   int // -1 for leaves
	threshold float32
	left      int
	right     int
	nSamples  int
	impurity  float64
	value     []float64 // class fractions of the training samples in the node
}

// DecisionTreeClassifier is a CART classification tree.
type DecisionTreeClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	criterion       string // "gini", "entropy" or "log_loss"
	maxDepth        int    // -1 means unlimited
	minSamplesSplit int    // Minimum samples required to split a node
	minSamplesLeaf  int    // Minimum samples required in each child
	maxFeatures     int    // Features considered per split, 0 means all
	randomState     int64  // Random seed, -1 for a time based seed

	// Model parameters
	nodes               []node
	classes_            []float64
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
	depth_              int
	nLeaves_            int
}

// Option is a functional option for DecisionTreeClassifier
type Option func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the function used to measure split quality
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum depth of the tree, -1 for unlimited
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required in a leaf
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are examined per split, 0 for all
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState sets the seed used to draw candidate features
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

func (dt *DecisionTreeClassifier) validate(nFeatures int) error {
	switch dt.criterion {
	case CriterionGini, CriterionEntropy, CriterionLogLoss:
	default:
		return errors.NewValidationError("criterion", "must be gini, entropy or log_loss", dt.criterion)
	}
	if dt.maxDepth == 0 || dt.maxDepth < -1 {
		return errors.NewValidationError("max_depth", "must be -1 or at least 1", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if dt.maxFeatures < 0 || dt.maxFeatures > nFeatures {
		return errors.NewValidationError("max_features", "must be between 0 and the number of features", dt.maxFeatures)
	}
	return nil
}

// Fit builds the tree from X (n_samples x n_features) and y (n_samples x 1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	ds, err := NewDataset(X, y)
	if err != nil {
		return err
	}
	n, _ := ds.Dims()
	samples := make([]int, n)
	for i := range samples {
		samples[i] = i
	}
	return dt.FitDataset(ds, samples)
}

// FitDataset builds the tree from the given rows of ds. samples may repeat
// rows, which then count once per occurrence (bootstrap sampling).
func (dt *DecisionTreeClassifier) FitDataset(ds *Dataset, samples []int) error {
	if ds == nil || len(samples) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.FitDataset")
	}
	_, p := ds.Dims()
	if err := dt.validate(p); err != nil {
		return err
	}

	dt.state.Reset()
	dt.classes_ = ds.Classes()
	dt.nClasses_ = ds.NClasses()
	dt.nFeatures_ = p
	dt.nodes = dt.nodes[:0]
	dt.depth_ = 0
	dt.nLeaves_ = 0

	maxFeatures := dt.maxFeatures
	if maxFeatures == 0 {
		maxFeatures = p
	}
	b := newBuilder(dt, ds, samples, maxFeatures)
	b.build(0, len(samples), 0)

	dt.computeFeatureImportances()
	dt.state.SetFitted(p, len(samples))

	log.GetLoggerWithName("tree").Debug("Tree fitted",
		log.ModelNameKey, modelName,
		log.SamplesKey, len(samples),
		"tree.nodes", len(dt.nodes),
		"tree.depth", dt.depth_,
		"tree.leaves", dt.nLeaves_,
	)
	return nil
}

func (dt *DecisionTreeClassifier) computeFeatureImportances() {
	imp := make([]float64, dt.nFeatures_)
	for _, nd := range dt.nodes {
		if nd.feature < 0 {
			continue
		}
		l, r := dt.nodes[nd.left], dt.nodes[nd.right]
		imp[nd.feature] += float64(nd.nSamples)*nd.impurity -
			float64(l.nSamples)*l.impurity -
			float64(r.nSamples)*r.impurity
	}

	var total float64
	for _, v := range imp {
		total += v
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	dt.featureImportances_ = imp
}

// PredictProbaRow returns the class fractions of the leaf that row falls
// into. The slice belongs to the tree and must not be modified.
func (dt *DecisionTreeClassifier) PredictProbaRow(row []float32) []float64 {
	i := 0
	for {
		nd := &dt.nodes[i]
		if nd.feature < 0 {
			return nd.value
		}
		if row[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

// PredictProba returns class probabilities, one column per class in the order
// returned by Classes.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted(modelName, "PredictProba"); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	if err := dt.state.CheckFeatures("PredictProba", c); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.PredictProba")
	}

	probas := mat.NewDense(n, dt.nClasses_, nil)
	parallel.ParallelizeWithThreshold(n, parallelPredictThreshold, func(start, end int) {
		buf := make([]float32, c)
		for i := start; i < end; i++ {
			probas.SetRow(i, dt.PredictProbaRow(Float32Row(X, i, buf)))
		}
	})
	return probas, nil
}

// Predict returns the most probable class of every row as an n x 1 matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	if err := dt.state.CheckFeatures("Predict", c); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Predict")
	}

	predictions := mat.NewDense(n, 1, nil)
	parallel.ParallelizeWithThreshold(n, parallelPredictThreshold, func(start, end int) {
		buf := make([]float32, c)
		for i := start; i < end; i++ {
			value := dt.PredictProbaRow(Float32Row(X, i, buf))
			predictions.Set(i, 0, dt.classes_[argmax(value)])
		}
	})
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}
	score, err := metrics.AccuracyMatrix(y, predictions)
	if err != nil {
		return 0.0
	}
	return score
}

// Classes returns the unique classes seen during fitting.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	out := make([]float64, len(dt.classes_))
	copy(out, dt.classes_)
	return out
}

// NClasses returns the number of classes seen during fitting.
func (dt *DecisionTreeClassifier) NClasses() int {
	return dt.nClasses_
}

// GetFeatureImportances returns the normalized total impurity decrease
// contributed by each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, len(dt.featureImportances_))
	copy(out, dt.featureImportances_)
	return out
}

// GetDepth returns the depth of the fitted tree, 0 for a single leaf.
func (dt *DecisionTreeClassifier) GetDepth() int {
	return dt.depth_
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return dt.nLeaves_
}

// GetNodeCount returns the number of nodes of the fitted tree.
func (dt *DecisionTreeClassifier) GetNodeCount() int {
	return len(dt.nodes)
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams sets the model hyperparameters
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			v, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = v
		case "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
			v, ok := toInt(value)
			if !ok {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			switch key {
			case "max_depth":
				dt.maxDepth = v
			case "min_samples_split":
				dt.minSamplesSplit = v
			case "min_samples_leaf":
				dt.minSamplesLeaf = v
			default:
				dt.maxFeatures = v
			}
		case "random_state":
			v, ok := toInt(value)
			if !ok {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			dt.randomState = int64(v)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// toInt accepts the integer kinds and integral float64 values.
func toInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
	}
	return 0, false
}

func argmax(v []float64) int {
	best := 0
	for k := 1; k < len(v); k++ {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}

// NewRand returns a generator seeded with seed, or with the clock when seed
// is negative.
func NewRand(seed int64) *rand.Rand {
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

type sortPair struct {
	v     float32
	label int
}

type split struct {
	feature   int
	threshold float32
	gain      float64
}

// builder grows a tree depth first over idx, partitioning it in place.
type builder struct {
	t           *DecisionTreeClassifier
	ds          *Dataset
	rng         *rand.Rand
	idx         []int
	pairs       []sortPair
	features    []int
	maxFeatures int
	left        []float64
	right       []float64
}

func newBuilder(t *DecisionTreeClassifier, ds *Dataset, samples []int, maxFeatures int) *builder {
	_, p := ds.Dims()
	idx := make([]int, len(samples))
	copy(idx, samples)
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	return &builder{
		t:           t,
		ds:          ds,
		rng:         NewRand(t.randomState),
		idx:         idx,
		pairs:       make([]sortPair, len(samples)),
		features:    features,
		maxFeatures: maxFeatures,
		left:        make([]float64, ds.NClasses()),
		right:       make([]float64, ds.NClasses()),
	}
}

func (b *builder) impurity(counts []float64, n int) float64 {
	if n == 0 {
		return 0
	}
	total := float64(n)
	var out float64
	switch b.t.criterion {
	case CriterionGini:
		out = 1
		for _, c := range counts {
			p := c / total
			out -= p * p
		}
	default:
		for _, c := range counts {
			if c > 0 {
				p := c / total
				out -= p * math.Log2(p)
			}
		}
	}
	return out
}

func (b *builder) build(start, end, depth int) int {
	n := end - start
	counts := make([]float64, b.ds.NClasses())
	for _, s := range b.idx[start:end] {
		counts[b.ds.labels[s]]++
	}
	imp := b.impurity(counts, n)

	value := make([]float64, len(counts))
	for k, c := range counts {
		value[k] = c / float64(n)
	}

	id := len(b.t.nodes)
	b.t.nodes = append(b.t.nodes, node{feature: -1, nSamples: n, impurity: imp, value: value})
	if depth > b.t.depth_ {
		b.t.depth_ = depth
	}

	isLeaf := (b.t.maxDepth >= 0 && depth >= b.t.maxDepth) ||
		n < b.t.minSamplesSplit ||
		n < 2*b.t.minSamplesLeaf ||
		imp <= impurityEpsilon

	var best split
	if !isLeaf {
		var ok bool
		best, ok = b.bestSplit(start, end, imp, counts)
		isLeaf = !ok
	}
	if isLeaf {
		b.t.nLeaves_++
		return id
	}

	mid := b.partition(start, end, best.feature, best.threshold)
	left := b.build(start, mid, depth+1)
	right := b.build(mid, end, depth+1)

	nd := &b.t.nodes[id]
	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = left
	nd.right = right
	return id
}

// bestSplit scans candidate features for the split with the largest impurity
// decrease. Features are drawn in random order when only maxFeatures of them
// are examined; the draw continues past maxFeatures until a valid split exists.
func (b *builder) bestSplit(start, end int, parentImp float64, total []float64) (split, bool) {
	n := end - start
	if b.maxFeatures < len(b.features) {
		b.rng.Shuffle(len(b.features), func(i, j int) {
			b.features[i], b.features[j] = b.features[j], b.features[i]
		})
	}

	best := split{gain: math.Inf(-1)}
	found := false
	visited := 0
	minLeaf := b.t.minSamplesLeaf
	pairs := b.pairs[:n]

	for _, f := range b.features {
		if visited >= b.maxFeatures && found {
			break
		}

		col := b.ds.Column(f)
		for k, s := range b.idx[start:end] {
			pairs[k] = sortPair{v: col[s], label: b.ds.labels[s]}
		}
		slices.SortFunc(pairs, func(a, c sortPair) int { return cmp.Compare(a.v, c.v) })
		if float64(pairs[n-1].v) <= float64(pairs[0].v)+featureThreshold {
			continue // constant in this node
		}
		visited++

		for k := range b.left {
			b.left[k] = 0
			b.right[k] = total[k]
		}
		for i := 1; i < n; i++ {
			l := pairs[i-1].label
			b.left[l]++
			b.right[l]--
			if float64(pairs[i].v) <= float64(pairs[i-1].v)+featureThreshold {
				continue
			}
			nl, nr := i, n-i
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			child := (float64(nl)*b.impurity(b.left, nl) + float64(nr)*b.impurity(b.right, nr)) / float64(n)
			if gain := parentImp - child; gain > best.gain {
				best = split{feature: f, threshold: midpoint(pairs[i-1].v, pairs[i].v), gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// midpoint returns a threshold between a < b that keeps a on the left and b
// on the right.
func midpoint(a, b float32) float32 {
	m := a/2 + b/2
	if m >= b || math.IsInf(float64(m), 0) {
		return a
	}
	return m
}

func (b *builder) partition(start, end, feature int, threshold float32) int {
	col := b.ds.Column(feature)
	i := start
	for k := start; k < end; k++ {
		if col[b.idx[k]] <= threshold {
			b.idx[i], b.idx[k] = b.idx[k], b.idx[i]
			i++
		}
	}
	return i
}
