package alignment

import (
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

type Finding struct {
	Measurement string      `json:"measurement"`
	Value       float64     `json:"value"`
	Range       model.Range `json:"range"`
	InSpec      bool        `json:"in_spec"`
}

type Evaluation struct {
	Findings  []Finding `json:"findings"`
	OutOfSpec int       `json:"out_of_spec"`
	InSpec    bool      `json:"in_spec"`
}

// Evaluate compares every recorded angle against its tolerance range.
// Angles that were not measured are skipped.
func Evaluate(m model.Measurements, ranges Ranges) Evaluation {
	checks := []struct {
		name  string
		value *float64
		rng   model.Range
	}{
		{"front_left_toe", m.FrontLeftToe, ranges.FrontToe},
		{"front_right_toe", m.FrontRightToe, ranges.FrontToe},
		{"rear_left_toe", m.RearLeftToe, ranges.RearToe},
		{"rear_right_toe", m.RearRightToe, ranges.RearToe},
		{"front_left_camber", m.FrontLeftCamber, ranges.FrontCamber},
		{"front_right_camber", m.FrontRightCamber, ranges.FrontCamber},
		{"rear_left_camber", m.RearLeftCamber, ranges.RearCamber},
		{"rear_right_camber", m.RearRightCamber, ranges.RearCamber},
		{"front_left_caster", m.FrontLeftCaster, ranges.FrontCaster},
		{"front_right_caster", m.FrontRightCaster, ranges.FrontCaster},
	}

	eval := Evaluation{Findings: []Finding{}, InSpec: true}
	for _, check := range checks {
		if check.value == nil {
			continue
		}
		finding := Finding{
			Measurement: check.name,
			Value:       *check.value,
			Range:       check.rng,
			InSpec:      check.rng.Contains(*check.value),
		}
		if !finding.InSpec {
			eval.OutOfSpec++
			eval.InSpec = false
		}
		eval.Findings = append(eval.Findings, finding)
	}
	return eval
}

type Stats struct {
	Total     int `json:"total"`
	ThisMonth int `json:"this_month"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Summarize counts records for the dashboard. "This month" is the calendar
// month of now, in now's location.
func Summarize(records []model.AlignmentRecord, now time.Time) Stats {
	var stats Stats
	year, month, _ := now.Date()
	for _, record := range records {
		stats.Total++
		created := record.CreatedAt.In(now.Location())
		if y, m, _ := created.Date(); y == year && m == month {
			stats.ThisMonth++
		}
		switch record.CompletionStatus {
		case model.CompletionCompleted:
			stats.Completed++
		case model.CompletionPending:
			stats.Pending++
		}
	}
	return stats
}
