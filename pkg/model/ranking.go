package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultTopN is the number of features shown when nothing is selected.
const DefaultTopN = 10

// ErrFeatureMismatch is returned when the scored table's feature columns do
// not line up with the artifact's importance vector.
var ErrFeatureMismatch = errors.New("feature columns do not match model importances")

// Importance is the score of one feature.
type Importance struct {
	Feature string  `json:"feature" yaml:"feature"`
	Score   float64 `json:"score" yaml:"score"`
}

// Ranking is a list of importances sorted by descending score.
type Ranking []*Importance

// Features returns the feature names in ranking order.
func (r Ranking) Features() []string {
	list := make([]string, len(r))
	for i, v := range r {
		list[i] = v.Feature
	}
	return list
}

// Scores returns the scores in ranking order.
func (r Ranking) Scores() []float64 {
	list := make([]float64, len(r))
	for i, v := range r {
		list[i] = v.Score
	}
	return list
}

// Rank pairs the feature columns with the artifact's importances and sorts
// them by descending score; ties keep column order.
//
// Artifacts that carry feature names are aligned by name, otherwise by
// position. Either way the feature count must match exactly.
func Rank(features []string, a *Artifact) (Ranking, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if len(features) != len(a.FeatureImportances) {
		return nil, fmt.Errorf("%w: table has %d feature columns, model has %d importances",
			ErrFeatureMismatch, len(features), len(a.FeatureImportances))
	}

	r := make(Ranking, len(features))
	if len(a.FeatureNames) == 0 {
		for i, f := range features {
			r[i] = &Importance{Feature: f, Score: a.FeatureImportances[i]}
		}
	} else {
		columns := make(map[string]string, len(features))
		for _, f := range features {
			columns[strings.ToLower(f)] = f
		}
		seen := make(map[string]bool, len(features))
		for i, n := range a.FeatureNames {
			key := strings.ToLower(n)
			f, ok := columns[key]
			if !ok || seen[key] {
				return nil, fmt.Errorf("%w: model feature %q not in table", ErrFeatureMismatch, n)
			}
			seen[key] = true
			r[i] = &Importance{Feature: f, Score: a.FeatureImportances[i]}
		}
		// keep table column order as the tie breaker
		order := make(map[string]int, len(features))
		for i, f := range features {
			order[f] = i
		}
		sort.SliceStable(r, func(i, j int) bool { return order[r[i].Feature] < order[r[j].Feature] })
	}

	sort.SliceStable(r, func(i, j int) bool { return r[i].Score > r[j].Score })
	return r, nil
}

// Select returns the entries to display: the first n entries when selected
// is empty, otherwise exactly the selected features in ranking order.
// Selected names that are not in the ranking are ignored.
func Select(r Ranking, selected []string, n int) Ranking {
	if len(selected) == 0 {
		if n <= 0 {
			n = DefaultTopN
		}
		return r[:min(n, len(r))]
	}

	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		want[s] = true
	}

	list := make(Ranking, 0, len(selected))
	for _, v := range r {
		if want[v.Feature] {
			list = append(list, v)
		}
	}
	return list
}
