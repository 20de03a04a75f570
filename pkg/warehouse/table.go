package warehouse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/mchmarny/riskview/pkg/metrics"
)

const (
	selectTableSQL = `SELECT * FROM %s`
)

var (
	// ErrInvalidIdentifier is returned for table or column names that are not
	// plain, optionally schema-qualified, SQL identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	identifierRegEx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)*$`)
)

// Table is a fully materialized query result.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// FeatureColumns returns the columns in table order without the excluded ones.
// Names are compared case-insensitively.
func (t *Table) FeatureColumns(exclude ...string) []string {
	if t == nil {
		return nil
	}
	list := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if slices.ContainsFunc(exclude, func(x string) bool { return strings.EqualFold(x, c) }) {
			continue
		}
		list = append(list, c)
	}
	return list
}

func validIdentifier(names ...string) error {
	for _, n := range names {
		if !identifierRegEx.MatchString(n) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, n)
		}
	}
	return nil
}

// LoadTable reads the whole named table into memory.
func LoadTable(ctx context.Context, s *Session, name string) (*Table, error) {
	if s == nil || s.db == nil {
		return nil, errSessionNotInitialized
	}
	if err := validIdentifier(name); err != nil {
		return nil, err
	}

	metrics.WarehouseQueries.WithLabelValues(name).Inc()

	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf(selectTableSQL, name))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	t := &Table{
		Name:    name,
		Columns: cols,
		Rows:    make([][]any, 0),
	}

	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", name, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows of %s: %w", name, err)
	}

	return t, nil
}
