package analysis

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/CDupuis7/go-respiration/track"
)

// PatientInfo identifies the session subject in exported data.
type PatientInfo struct {
	ID           string `json:"id"`
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	HealthStatus string `json:"health_status"`
}

// Session bundles a finished recording for export: the subject, the
// aggregated metrics and the retained point history.
type Session struct {
	Patient PatientInfo
	Metrics Metrics
	Points  []track.TrackedPoint
}

// sessionColumns is the data-section CSV header.
var sessionColumns = []string{"timestamp", "x", "y", "amplitude", "velocity", "breathing_phase"}

// WriteSession exports a session in the respiratory-data interchange format:
// a key/value header block describing the subject and summary metrics,
// a blank line, then one CSV row per tracked point.
func WriteSession(w io.Writer, s *Session) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Respiratory Data Export\n")
	fmt.Fprintf(bw, "ID: %s\n", s.Patient.ID)
	fmt.Fprintf(bw, "Age: %d\n", s.Patient.Age)
	fmt.Fprintf(bw, "Gender: %s\n", s.Patient.Gender)
	fmt.Fprintf(bw, "Health Status: %s\n", s.Patient.HealthStatus)
	fmt.Fprintf(bw, "Total Duration: %.2f seconds\n", s.Metrics.DurationSeconds)
	fmt.Fprintf(bw, "Breathing Rate: %.2f breaths/minute\n", s.Metrics.BreathingRate)
	fmt.Fprintf(bw, "Average Amplitude: %.2f\n", s.Metrics.AverageAmplitude)
	fmt.Fprintf(bw, "Maximum Amplitude: %.2f\n", s.Metrics.MaxAmplitude)
	fmt.Fprintf(bw, "Minimum Amplitude: %.2f\n", s.Metrics.MinAmplitude)
	fmt.Fprintf(bw, "Total Breaths: %d\n", s.Metrics.BreathCount)
	fmt.Fprintf(bw, "\n")

	cw := csv.NewWriter(bw)
	if err := cw.Write(sessionColumns); err != nil {
		return errors.Wrap(err, "writing session header row")
	}
	for _, p := range s.Points {
		row := []string{
			strconv.FormatInt(p.TimestampMS, 10),
			formatFloat(p.Position.X),
			formatFloat(p.Position.Y),
			formatFloat(p.Amplitude),
			formatFloat(p.VerticalVelocity),
			string(p.Phase),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing session row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flushing session rows")
	}
	return bw.Flush()
}

// ReadSession parses a session file written by WriteSession (or the mobile
// exporter sharing the format). Header keys it does not recognize are
// skipped. The reconstructed points carry position, timestamp, amplitude,
// vertical velocity and phase; the horizontal velocity component is not part
// of the interchange format and reads back as zero.
func ReadSession(r io.Reader) (*Session, error) {
	s := &Session{}
	scanner := bufio.NewScanner(r)

	inData := false
	var rows []string
	for scanner.Scan() {
		line := scanner.Text()
		if inData {
			if strings.TrimSpace(line) != "" {
				rows = append(rows, line)
			}
			continue
		}
		if strings.HasPrefix(line, "timestamp") {
			inData = true
			continue
		}
		parseHeaderLine(s, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading session")
	}
	if !inData {
		return nil, errors.New("session data section not found")
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(rows, "\n")))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parsing session rows")
	}
	for _, rec := range records {
		if len(rec) < len(sessionColumns) {
			continue
		}
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			continue
		}
		x := parseFloat(rec[1])
		y := parseFloat(rec[2])
		vy := parseFloat(rec[4])
		s.Points = append(s.Points, track.TrackedPoint{
			Position:         track.Point{X: x, Y: y},
			TimestampMS:      ts,
			Velocity:         track.Point{Y: vy},
			VerticalVelocity: vy,
			Amplitude:        parseFloat(rec[3]),
			Phase:            track.Phase(rec[5]),
		})
	}
	return s, nil
}

// parseHeaderLine fills one "Key: value" header entry.
func parseHeaderLine(s *Session, line string) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "ID":
		s.Patient.ID = value
	case "Age":
		s.Patient.Age, _ = strconv.Atoi(value)
	case "Gender":
		s.Patient.Gender = value
	case "Health Status":
		s.Patient.HealthStatus = value
	case "Total Duration":
		s.Metrics.DurationSeconds = parseUnitFloat(value, "seconds")
	case "Breathing Rate":
		s.Metrics.BreathingRate = parseUnitFloat(value, "breaths/minute")
	case "Average Amplitude":
		s.Metrics.AverageAmplitude = parseUnitFloat(value, "")
	case "Maximum Amplitude":
		s.Metrics.MaxAmplitude = parseUnitFloat(value, "")
	case "Minimum Amplitude":
		s.Metrics.MinAmplitude = parseUnitFloat(value, "")
	case "Total Breaths":
		s.Metrics.BreathCount, _ = strconv.Atoi(value)
	}
}

func parseUnitFloat(value, unit string) float64 {
	if unit != "" {
		value = strings.TrimSpace(strings.TrimSuffix(value, unit))
	}
	f, _ := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return f
}

func parseFloat(s string) float32 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(f)
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', 4, 32)
}
