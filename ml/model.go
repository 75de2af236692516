package ml

// Classifier scores one feature vector and returns the predicted class index
// together with the calibrated probability of the positive class.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

// FeatureCount is the length of the feature vectors the breast cancer
// dataset produces.
const FeatureCount = 30

// PositiveClass is the encoded index of the malignant diagnosis.
const PositiveClass = 1
