package analysis

import (
	"fmt"
	"strings"
)

// Label is the overall verdict of a pattern classification.
type Label string

const (
	// LabelNormal means the breathing pattern looks physiological.
	LabelNormal Label = "Normal"
	// LabelAbnormal means at least one clinical rule fired.
	LabelAbnormal Label = "Abnormal"
	// LabelError means classification itself failed; the reason is in the
	// diagnostic detail.
	LabelError Label = "Error"
)

// Condition tags name the specific factors behind an abnormal verdict.
type Condition string

const (
	ConditionBradypnea              Condition = "BRADYPNEA"
	ConditionTachypnea              Condition = "TACHYPNEA"
	ConditionHighIrregularity       Condition = "HIGH_IRREGULARITY"
	ConditionHighAmplitudeVariation Condition = "HIGH_AMPLITUDE_VARIATION"
	ConditionHighVelocity           Condition = "HIGH_VELOCITY"
	ConditionError                  Condition = "ERROR"
)

// Result is one classification outcome. Created once per call; immutable.
type Result struct {
	// Label is the rule-based verdict.
	Label Label `json:"label"`
	// Confidence of the verdict in [0, 1].
	Confidence float64 `json:"confidence"`
	// Conditions are the triggered factor tags.
	Conditions []Condition `json:"conditions,omitempty"`
	// Detail is free-form diagnostic text listing thresholds and measured
	// values.
	Detail string `json:"detail"`
	// AdvisoryProbability is the optional abnormality estimate of a secondary
	// statistical model, negative when no model contributed. Advisory only;
	// it never changes the rule-based verdict.
	AdvisoryProbability float64 `json:"advisory_probability"`
}

// Confidence levels reported by the rule classifier.
const (
	PrimaryConfidence   = 0.95
	SecondaryConfidence = 0.85
	NormalConfidence    = 0.90
	ErrorConfidence     = 0.5
)

// ClassifierConfig holds the clinical decision thresholds.
type ClassifierConfig struct {
	// MinRate and MaxRate bound the normal breathing-rate band in
	// breaths/min.
	MinRate float64 `json:"min_rate" yaml:"min_rate"`
	MaxRate float64 `json:"max_rate" yaml:"max_rate"`
	// IrregularityThreshold flags arrhythmic breathing.
	IrregularityThreshold float64 `json:"irregularity_threshold" yaml:"irregularity_threshold"`
	// AmplitudeVariationThreshold flags irregular breathing depth.
	AmplitudeVariationThreshold float64 `json:"amplitude_variation_threshold" yaml:"amplitude_variation_threshold"`
	// VelocityThreshold flags agitated chest motion.
	VelocityThreshold float64 `json:"velocity_threshold" yaml:"velocity_threshold"`
	// MinSecondaryFactors is how many secondary factors alone make the
	// pattern abnormal.
	MinSecondaryFactors int `json:"min_secondary_factors" yaml:"min_secondary_factors"`
}

// DefaultClassifierConfig returns the clinical defaults: normal adult rate
// 10-24 breaths/min, the remaining thresholds matching the trained reference
// model's exported values.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MinRate:                     10,
		MaxRate:                     24,
		IrregularityThreshold:       0.4,
		AmplitudeVariationThreshold: 40,
		VelocityThreshold:           8,
		MinSecondaryFactors:         2,
	}
}

// PatternClassifier turns aggregated metrics into a classification result.
// Implementations must be total: any internal failure degrades to a
// LabelError result, never a panic crossing the boundary.
type PatternClassifier interface {
	Classify(m Metrics) Result
}

// RuleClassifier is the rule-based classification strategy.
//
// A breathing rate outside the configured band is abnormal by itself
// (bradypnea below, tachypnea above) at PrimaryConfidence. Otherwise, at
// least MinSecondaryFactors of {high irregularity, high amplitude variation,
// high velocity} make the pattern abnormal at SecondaryConfidence; fewer
// yield a normal verdict at NormalConfidence.
type RuleClassifier struct {
	Config ClassifierConfig
}

// NewRuleClassifier returns a rule classifier with the given thresholds.
// A zero config falls back to the defaults.
func NewRuleClassifier(config ClassifierConfig) *RuleClassifier {
	if config == (ClassifierConfig{}) {
		config = DefaultClassifierConfig()
	}
	return &RuleClassifier{Config: config}
}

// Classify applies the clinical rules to the metrics. Total function: an
// unexpected internal failure is caught and reported as a LabelError result.
func (c *RuleClassifier) Classify(m Metrics) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(fmt.Sprintf("classification failed: %v", r))
		}
	}()

	cfg := c.Config
	var detail strings.Builder
	result = Result{AdvisoryProbability: -1}

	fmt.Fprintf(&detail, "breathing rate %.2f breaths/min (normal range %.0f-%.0f)",
		m.BreathingRate, cfg.MinRate, cfg.MaxRate)

	primary := false
	switch {
	case m.BreathingRate < cfg.MinRate:
		primary = true
		result.Conditions = append(result.Conditions, ConditionBradypnea)
		detail.WriteString("; bradypnea detected (slow breathing)")
	case m.BreathingRate > cfg.MaxRate:
		primary = true
		result.Conditions = append(result.Conditions, ConditionTachypnea)
		detail.WriteString("; tachypnea detected (rapid breathing)")
	}

	secondary := 0
	if m.IrregularityIndex > cfg.IrregularityThreshold {
		secondary++
		result.Conditions = append(result.Conditions, ConditionHighIrregularity)
		fmt.Fprintf(&detail, "; irregularity %.2f exceeds %.2f (irregular rhythm)",
			m.IrregularityIndex, cfg.IrregularityThreshold)
	}
	if m.AmplitudeVariation > cfg.AmplitudeVariationThreshold {
		secondary++
		result.Conditions = append(result.Conditions, ConditionHighAmplitudeVariation)
		fmt.Fprintf(&detail, "; amplitude variation %.2f exceeds %.2f (irregular depth)",
			m.AmplitudeVariation, cfg.AmplitudeVariationThreshold)
	}
	if m.AverageVelocity > cfg.VelocityThreshold {
		secondary++
		result.Conditions = append(result.Conditions, ConditionHighVelocity)
		fmt.Fprintf(&detail, "; average velocity %.2f exceeds %.2f",
			m.AverageVelocity, cfg.VelocityThreshold)
	}

	switch {
	case primary:
		result.Label = LabelAbnormal
		result.Confidence = PrimaryConfidence
	case secondary >= cfg.MinSecondaryFactors:
		result.Label = LabelAbnormal
		result.Confidence = SecondaryConfidence
	default:
		result.Label = LabelNormal
		result.Confidence = NormalConfidence
	}

	result.Detail = detail.String()
	return result
}

// ModelAssistedClassifier blends an advisory statistical model into the
// rule-based verdict's detail fields. The rule verdict is authoritative; the
// advisory probability is metadata. The strategy is selected once at session
// start, not toggled per call.
type ModelAssistedClassifier struct {
	Rules PatternClassifier
	Model *AdvisoryModel
}

// NewModelAssistedClassifier wraps a rule classifier with an advisory model.
func NewModelAssistedClassifier(rules PatternClassifier, model *AdvisoryModel) *ModelAssistedClassifier {
	return &ModelAssistedClassifier{Rules: rules, Model: model}
}

// Classify runs the rules and annotates the result with the advisory
// probability. A failure anywhere degrades to a LabelError result.
func (c *ModelAssistedClassifier) Classify(m Metrics) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(fmt.Sprintf("classification failed: %v", r))
		}
	}()

	result = c.Rules.Classify(m)
	if c.Model == nil || result.Label == LabelError {
		return result
	}

	p := c.Model.Probability(m)
	result.AdvisoryProbability = p
	result.Detail += fmt.Sprintf("; advisory model abnormality probability %.2f", p)
	return result
}

// errorResult is the uniform degraded output for internal failures.
func errorResult(reason string) Result {
	return Result{
		Label:               LabelError,
		Confidence:          ErrorConfidence,
		Conditions:          []Condition{ConditionError},
		Detail:              reason,
		AdvisoryProbability: -1,
	}
}
