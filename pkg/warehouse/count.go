package warehouse

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/mchmarny/riskview/pkg/metrics"
)

const (
	selectCountBySQL = `SELECT %[2]s AS category, COUNT(%[2]s) AS total
		FROM %[1]s
		WHERE %[2]s IS NOT NULL
		GROUP BY %[2]s
		ORDER BY 2
	`
)

// CategoryCount is the number of rows holding one value of a categorical column.
type CategoryCount struct {
	Category string `json:"category" yaml:"category"`
	Count    int64  `json:"count" yaml:"count"`
}

// CountBy counts the rows of table per value of column, ascending by count.
// The result is never cached.
func CountBy(ctx context.Context, s *Session, table, column string) ([]*CategoryCount, error) {
	if s == nil || s.db == nil {
		return nil, errSessionNotInitialized
	}
	if err := validIdentifier(table, column); err != nil {
		return nil, err
	}

	metrics.WarehouseQueries.WithLabelValues(table).Inc()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(selectCountBySQL, table, column))
	if err != nil {
		return nil, fmt.Errorf("failed to count %s by %s: %w", table, column, err)
	}
	defer rows.Close()

	list := make([]*CategoryCount, 0)
	for rows.Next() {
		var (
			cat   sql.NullString
			count int64
		)
		if err := rows.Scan(&cat, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		list = append(list, &CategoryCount{Category: cat.String, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate count rows: %w", err)
	}

	SortCounts(list)
	return list, nil
}

// SortCounts orders counts ascending, ties by category name.
func SortCounts(list []*CategoryCount) {
	slices.SortStableFunc(list, func(a, b *CategoryCount) int {
		if c := cmp.Compare(a.Count, b.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
}
