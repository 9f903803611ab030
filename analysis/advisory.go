package analysis

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Advisory feature names as exported by the training pipeline.
const (
	featureBreathingRate      = "breathing_rate"
	featureIrregularityIndex  = "irregularity_index"
	featureAmplitudeVariation = "amplitude_variation"
	featureAverageVelocity    = "avg_velocity"
	weightBias                = "bias"
)

// AdvisoryModel is a lightweight logistic-regression estimate of breathing
// abnormality, loaded from the JSON weight export of the offline training
// pipeline. It is advisory metadata only and never overrides the rule-based
// classification.
type AdvisoryModel struct {
	// ModelType identifies the exported estimator, e.g.
	// "logistic_regression".
	ModelType string `json:"model_type"`
	// Weights maps feature names to coefficients, plus a "bias" entry.
	Weights map[string]float64 `json:"weights"`
	// Thresholds carries the training-time rule thresholds for reference.
	Thresholds map[string]float64 `json:"thresholds"`
	// FeatureNames is the ordered feature list the weights were fit on.
	FeatureNames []string `json:"feature_names"`
	// Means and Scales hold the feature standardization parameters; empty
	// maps disable standardization.
	Means  map[string]float64 `json:"means,omitempty"`
	Scales map[string]float64 `json:"scales,omitempty"`
}

// LoadAdvisoryModel reads an exported weight file.
func LoadAdvisoryModel(path string) (*AdvisoryModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading advisory model %s", path)
	}
	var m AdvisoryModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing advisory model %s", path)
	}
	if len(m.Weights) == 0 {
		return nil, errors.Errorf("advisory model %s has no weights", path)
	}
	return &m, nil
}

// Probability estimates the abnormality probability of the metrics via the
// logistic function over the weighted, optionally standardized features.
// Unknown feature names contribute nothing, so the estimate degrades rather
// than fails.
func (m *AdvisoryModel) Probability(metrics Metrics) float64 {
	features := map[string]float64{
		featureBreathingRate:      metrics.BreathingRate,
		featureIrregularityIndex:  metrics.IrregularityIndex,
		featureAmplitudeVariation: metrics.AmplitudeVariation,
		featureAverageVelocity:    metrics.AverageVelocity,
	}

	z := m.Weights[weightBias]
	for name, weight := range m.Weights {
		if name == weightBias {
			continue
		}
		value, ok := features[name]
		if !ok {
			continue
		}
		if mean, ok := m.Means[name]; ok {
			value -= mean
		}
		if scale, ok := m.Scales[name]; ok && scale != 0 {
			value /= scale
		}
		z += weight * value
	}

	return 1.0 / (1.0 + math.Exp(-z))
}
