// Package log defines standard attribute keys for machine learning operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so log lines from the loader, the forest and the
// diagnostic pipeline can be filtered the same way.
package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "RandomForestClassifier", "DecisionTreeClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "score", "load", "assemble"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	ComponentKey = "component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// DataSizeKey indicates the size of the data in bytes.
	DataSizeKey = "data.size_bytes"
)

// Feature field files
const (
	// FieldIDKey is the numeric identifier of a feature field.
	FieldIDKey = "field.id"

	// FieldPathKey is the path of the field's .dat file.
	FieldPathKey = "field.path"

	// FieldRowsKey is the number of rows loaded from a field.
	FieldRowsKey = "field.rows"

	// MappedKey reports whether the field data is memory-mapped.
	MappedKey = "field.mapped"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy, range [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"

	// AUCKey records the area under the ROC curve.
	AUCKey = "metrics.roc_auc"

	// LossKey records a loss value (binary log loss here).
	LossKey = "metrics.loss"

	// BrierKey records the Brier score of predicted probabilities.
	BrierKey = "metrics.brier"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// WorkersKey records the number of worker goroutines.
	WorkersKey = "infra.workers"
)

// Infrastructure and Environment
const (
	// CPUBrandKey is the CPU brand string.
	CPUBrandKey = "infra.cpu_brand"

	// PhysicalCoresKey is the number of physical cores.
	PhysicalCoresKey = "infra.physical_cores"

	// LogicalCoresKey is the number of logical cores.
	LogicalCoresKey = "infra.logical_cores"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationScore    = "score"
	OperationLoad     = "load"
	OperationAssemble = "assemble"

	PhaseTraining = "training"
	PhaseLoading  = "loading"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorSchemaMismatch    = "SCHEMA_MISMATCH"
)
