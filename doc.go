// Package badfeatures checks whether two halves of a feature dump can be told
// apart by a classifier.
//
// Two fields, feature_<A>.dat/.name and feature_<B>.dat/.name, are loaded,
// stacked and labelled by origin (0 for A, 1 for B). A random forest is fitted
// on the stacked rows and scored on the same rows. A training accuracy close
// to 0.5 means the fields look alike; a value close to 1.0 means some feature
// gives away which field a row came from (leakage or distribution shift).
//
// # Quick Start
//
// Run the command next to the feature files:
//
//	$ badfeatures
//	Fitting
//	Calculating score
//	0.5625
//
// Or call the diagnostic from Go:
//
//	cfg := config.Default()
//	cfg.DataDir = "/data/dump"
//	res, err := diagnose.Run(cfg, os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.AUC)
//
// # Packages
//
//   - dataset: memory-mapped field loading and pair assembly
//   - diagnose: the fit/score pipeline and its probability histogram
//   - config: run configuration from BADFEATURES_* variables
//   - sklearn/tree: CART DecisionTreeClassifier
//   - sklearn/ensemble: RandomForestClassifier
//   - metrics: accuracy, ROC AUC, log loss, Brier score, MSE
//   - core/model: estimator interfaces and fitted state
//   - core/parallel: worker fan-out and CPU detection
//   - pkg/errors, pkg/log: structured errors and zerolog logging
//
// # Configuration
//
// BADFEATURES_DATA_DIR, BADFEATURES_FIELD_A, BADFEATURES_FIELD_B,
// BADFEATURES_N_ESTIMATORS, BADFEATURES_N_JOBS, BADFEATURES_RANDOM_STATE,
// BADFEATURES_LOG_LEVEL, BADFEATURES_LOG_FORMAT and BADFEATURES_PLOT_PATH.
// Defaults reproduce the fixed pipeline: fields 795 and 796 in the working
// directory, 100 trees, every CPU.
package badfeatures
