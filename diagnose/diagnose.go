// Package diagnose runs the bad-features check: it trains a random forest to
// tell the rows of two feature fields apart and reports how well it does.
// Accuracy near 0.5 means the fields look alike; accuracy near 1.0 means some
// feature leaks which field a row came from.
package diagnose

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/badfeatures/config"
	"github.com/YuminosukeSato/badfeatures/core/parallel"
	"github.com/YuminosukeSato/badfeatures/dataset"
	"github.com/YuminosukeSato/badfeatures/metrics"
	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"github.com/YuminosukeSato/badfeatures/pkg/log"
	"github.com/YuminosukeSato/badfeatures/sklearn/ensemble"
	"github.com/YuminosukeSato/badfeatures/sklearn/tree"
)

// Result summarises one run.
type Result struct {
	Accuracy float64
	// Secondary diagnostics on P(field B). They are NaN when they could not
	// be computed.
	AUC     float64
	LogLoss float64
	Brier   float64

	Samples  int
	Features int
	RowsA    int
	RowsB    int
	MaxDepth int

	FitDuration time.Duration
	CPU         parallel.CPUInfo
}

// MaxDepth returns floor(log2(n)) for n >= 1 and 0 otherwise.
func MaxDepth(n int) int {
	if n < 1 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// FormatScore renders v the way Python prints a float: the shortest
// representation that round-trips, always with a decimal point or exponent.
func FormatScore(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Run loads cfg.FieldA and cfg.FieldB, fits the forest on their stacked rows
// and writes "Fitting", "Calculating score" and the training accuracy to
// stdout, one per line. Every failure is returned; nothing is retried.
//
// Schema and I/O errors are returned before anything is written. Problems
// with the data itself, including a pair of fields with no rows at all, are
// detected while fitting and so surface after "Fitting" has been written.
func Run(cfg config.Config, stdout io.Writer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("diagnose")

	cpu := parallel.DescribeCPU()
	logger.Info("Starting diagnostic",
		log.FieldPathKey, cfg.DataDir,
		"field.a", cfg.FieldA,
		"field.b", cfg.FieldB,
		log.CPUBrandKey, cpu.Brand,
		log.PhysicalCoresKey, cpu.PhysicalCores,
		log.LogicalCoresKey, cpu.LogicalCores,
		log.WorkersKey, cfg.NJobs,
	)

	combined, err := dataset.LoadPair(cfg.DataDir, cfg.FieldA, cfg.FieldB)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := combined.Close(); cerr != nil {
			logger.Warn("Failed to release field mappings", "error", cerr.Error())
		}
	}()

	if err := writeLine(stdout, "Fitting"); err != nil {
		return nil, err
	}

	ds, err := tree.NewDataset(combined.X, combined.Y)
	if err != nil {
		return nil, err
	}
	n, p := ds.Dims()
	depth := MaxDepth(n)

	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(cfg.NEstimators),
		ensemble.WithMaxDepth(depth),
		ensemble.WithNJobs(cfg.NJobs),
		ensemble.WithRandomState(cfg.RandomState),
	)

	start := time.Now()
	if err := errors.SafeExecute("diagnose.Fit", func() error {
		return rf.FitDataset(ds)
	}); err != nil {
		return nil, err
	}
	res := &Result{
		Samples:     n,
		Features:    p,
		RowsA:       combined.RowsA,
		RowsB:       combined.RowsB,
		MaxDepth:    depth,
		FitDuration: time.Since(start),
		CPU:         cpu,
	}

	if err := writeLine(stdout, "Calculating score"); err != nil {
		return nil, err
	}

	if err := errors.SafeExecute("diagnose.Score", func() error {
		var serr error
		res.Accuracy, serr = rf.ScoreE(combined.X, combined.Y)
		return serr
	}); err != nil {
		return nil, err
	}
	if err := writeLine(stdout, FormatScore(res.Accuracy)); err != nil {
		return nil, err
	}

	probB, err := probabilityOf(rf, combined.X, dataset.LabelB)
	if err != nil {
		return nil, err
	}
	res.AUC, res.LogLoss, res.Brier = secondaryMetrics(logger, combined.Y, probB)

	logger.Info("Diagnostic finished",
		log.OperationKey, log.OperationScore,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		"field.rows_a", combined.RowsA,
		"field.rows_b", combined.RowsB,
		"tree.max_depth", depth,
		log.AccuracyKey, res.Accuracy,
		log.AUCKey, res.AUC,
		log.LossKey, res.LogLoss,
		log.BrierKey, res.Brier,
		log.DurationMsKey, res.FitDuration.Milliseconds(),
	)

	if cfg.PlotPath != "" {
		nameA := "field " + strconv.Itoa(cfg.FieldA)
		nameB := "field " + strconv.Itoa(cfg.FieldB)
		if err := WriteProbabilityHistogram(cfg.PlotPath, probB, combined.Y, nameA, nameB); err != nil {
			return res, err
		}
		logger.Info("Wrote probability histogram", "plot.path", cfg.PlotPath)
	}
	return res, nil
}

func writeLine(w io.Writer, line string) error {
	if _, err := fmt.Fprintln(w, line); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// probabilityOf returns the forest's probability of class for every row of X.
// A class the forest never saw has probability 0.
func probabilityOf(rf *ensemble.RandomForestClassifier, X mat.Matrix, class float64) ([]float64, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := proba.Dims()
	out := make([]float64, n)
	for k, c := range rf.Classes() {
		if c != class {
			continue
		}
		for i := range out {
			out[i] = proba.At(i, k)
		}
	}
	return out, nil
}

// secondaryMetrics computes ROC AUC, log loss and Brier score of probB. A
// metric that fails is logged and reported as NaN.
func secondaryMetrics(logger log.Logger, labels dataset.Labels, probB []float64) (auc, logLoss, brier float64) {
	yTrue := mat.NewVecDense(len(labels), []float64(labels))
	yProb := mat.NewVecDense(len(probB), probB)

	compute := func(name string, fn func(a, b *mat.VecDense) (float64, error)) float64 {
		v, err := fn(yTrue, yProb)
		if err != nil {
			logger.Warn("Diagnostic metric unavailable", "metric", name, "error", err.Error())
			return math.NaN()
		}
		return v
	}
	auc = compute("roc_auc", metrics.AUC)
	logLoss = compute("log_loss", metrics.BinaryLogLoss)
	brier = compute("brier", metrics.BrierScore)
	return auc, logLoss, brier
}
