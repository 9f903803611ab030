// Command respreport reloads an exported session CSV, recomputes the
// breathing metrics from the raw tracking points and prints a pattern
// classification report.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/CDupuis7/go-respiration/analysis"
)

func main() {
	var (
		inPath       string
		advisoryPath string
	)
	flag.StringVar(&inPath, "in", "", "Exported session CSV to analyze")
	flag.StringVar(&advisoryPath, "advisory", "", "Optional advisory model weights JSON")
	flag.Parse()

	if inPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(inPath)
	if err != nil {
		log.Fatalf("opening session: %v", err)
	}
	defer f.Close()

	session, err := analysis.ReadSession(f)
	if err != nil {
		log.Fatalf("reading session: %v", err)
	}

	var classifier analysis.PatternClassifier = analysis.NewRuleClassifier(analysis.DefaultClassifierConfig())
	if advisoryPath != "" {
		model, err := analysis.LoadAdvisoryModel(advisoryPath)
		if err != nil {
			log.Fatalf("advisory model: %v", err)
		}
		classifier = analysis.NewModelAssistedClassifier(classifier, model)
	}

	metrics, ok := analysis.Aggregate(session.Points)
	result := classifier.Classify(metrics)

	printPatient(session.Patient)
	printMetrics("Recorded", session.Metrics)
	if ok {
		printMetrics("Recomputed", metrics)
	} else {
		fmt.Printf("Recomputed metrics: skipped, %d points is below the %d-point minimum\n\n",
			len(session.Points), analysis.MinHistoryPoints)
	}
	printResult(result)
}

func printPatient(p analysis.PatientInfo) {
	if p.ID == "" && p.Age == 0 {
		return
	}
	fmt.Printf("Patient %s (age %d, %s, %s)\n\n", p.ID, p.Age, p.Gender, p.HealthStatus)
}

func printMetrics(label string, m analysis.Metrics) {
	fmt.Printf("%s metrics:\n", label)
	fmt.Printf("  breathing rate:      %.2f breaths/min\n", m.BreathingRate)
	fmt.Printf("  breath count:        %d\n", m.BreathCount)
	fmt.Printf("  duration:            %.1f s\n", m.DurationSeconds)
	fmt.Printf("  amplitude avg/max:   %.2f / %.2f\n", m.AverageAmplitude, m.MaxAmplitude)
	fmt.Printf("  irregularity index:  %.2f\n", m.IrregularityIndex)
	fmt.Printf("  amplitude variation: %.2f\n", m.AmplitudeVariation)
	fmt.Printf("  average velocity:    %.2f\n\n", m.AverageVelocity)
}

func printResult(r analysis.Result) {
	fmt.Printf("Classification: %s (confidence %.2f)\n", r.Label, r.Confidence)
	for _, c := range r.Conditions {
		fmt.Printf("  - %s\n", c)
	}
	fmt.Printf("  %s\n", r.Detail)
	if r.AdvisoryProbability >= 0 {
		fmt.Printf("  advisory abnormality probability: %.2f\n", r.AdvisoryProbability)
	}
}
