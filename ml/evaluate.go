package ml

import (
	"math"
	"math/rand"
)

type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Samples   int     `json:"samples"`
}

// SplitDataset shuffles with seed and holds out testRatio of the rows. A
// ratio of zero keeps every row for training and returns an empty test set.
func SplitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		return features, labels, nil, nil
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

// Evaluate scores model on the given rows; precision and recall are for the
// positive class. Rows the model rejects count as wrong.
func Evaluate(model Classifier, features [][]float64, labels []int) Metrics {
	if len(features) == 0 {
		return Metrics{}
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, feature := range features {
		label, _, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == labels[i] {
			correct++
		}
		if label == PositiveClass {
			predictedPositive++
		}
		if labels[i] == PositiveClass {
			actualPositive++
			if label == PositiveClass {
				truePositive++
			}
		}
	}

	metrics := Metrics{
		Accuracy: float64(correct) / float64(len(features)),
		Samples:  len(features),
	}
	if predictedPositive > 0 {
		metrics.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		metrics.Recall = float64(truePositive) / float64(actualPositive)
	}
	return metrics
}
