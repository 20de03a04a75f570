package model

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Summary describes the displayed importances relative to the full ranking.
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Total  float64 `json:"total" yaml:"total"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	Max    float64 `json:"max" yaml:"max"`
	Share  float64 `json:"share" yaml:"share"`
}

// Summarize computes the summary of shown within all.
func Summarize(shown, all Ranking) (*Summary, error) {
	s := &Summary{Count: len(shown)}
	if len(shown) == 0 {
		return s, nil
	}

	data := stats.Float64Data(shown.Scores())

	var err error
	if s.Total, err = stats.Sum(data); err != nil {
		return nil, fmt.Errorf("error computing sum: %w", err)
	}
	if s.Mean, err = stats.Mean(data); err != nil {
		return nil, fmt.Errorf("error computing mean: %w", err)
	}
	if s.Median, err = stats.Median(data); err != nil {
		return nil, fmt.Errorf("error computing median: %w", err)
	}
	if s.Max, err = stats.Max(data); err != nil {
		return nil, fmt.Errorf("error computing max: %w", err)
	}

	total, err := stats.Sum(stats.Float64Data(all.Scores()))
	if err != nil {
		return nil, fmt.Errorf("error computing ranking total: %w", err)
	}
	if total > 0 {
		s.Share = s.Total / total
	}
	return s, nil
}
