package metrics

import (
	"math"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// logLossEps keeps log(0) out of BinaryLogLoss.
const logLossEps = 1e-15

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyMatrix computes Accuracy on the first column of each matrix.
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnVectors("AccuracyMatrix", yTrue, yPred, false)
	if err != nil {
		return 0, err
	}
	return Accuracy(t, p)
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// AUC computes the area under the ROC curve from binary labels and scores.
// Tied scores share their average rank. When y_true holds a single class the
// metric is undefined; an UndefinedMetricWarning is raised and 0.5 returned.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkVectors("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	var nPos int
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = yScore.AtVec(i)
	}
	order := make([]int, n)
	floats.Argsort(scores, order)

	// Mann-Whitney U with average ranks over runs of equal scores.
	var rankSumPos float64
	for start := 0; start < n; {
		end := start + 1
		for end < n && scores[end] == scores[start] {
			end++
		}
		rank := float64(start+end+1) / 2
		for k := start; k < end; k++ {
			if yTrue.AtVec(order[k]) == 1 {
				rankSumPos += rank
			}
		}
		start = end
	}

	p, q := float64(nPos), float64(nNeg)
	return (rankSumPos - p*(p+1)/2) / (p * q), nil
}

// AUCMatrix computes AUC on the first column of each matrix.
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	t, s, err := columnVectors("AUCMatrix", yTrue, yScore, false)
	if err != nil {
		return 0, err
	}
	return AUC(t, s)
}

// BinaryLogLoss は二値分類の対数損失を計算する
// 確率は [eps, 1-eps] にクリップされる
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkVectors("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yProb.AtVec(i), logLossEps, 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// BrierScore is the mean squared difference between binary labels and the
// predicted probability of the positive class.
func BrierScore(yTrue, yProb *mat.VecDense) (float64, error) {
	if _, err := checkVectors("BrierScore", yTrue, yProb); err != nil {
		return 0, err
	}
	if err := checkBinary("BrierScore", yTrue); err != nil {
		return 0, err
	}
	return MSE(yTrue, yProb)
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}
