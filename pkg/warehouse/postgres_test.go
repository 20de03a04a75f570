package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresWarehouse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("credit"),
		postgres.WithUsername("riskview"),
		postgres.WithPassword("riskview"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().ExecContext(ctx, `
		CREATE TABLE SCORED (AMT_INCOME_TOTAL DOUBLE PRECISION, DAYS_BIRTH INTEGER, TARGET INTEGER, PREDICTION INTEGER);
		INSERT INTO SCORED VALUES (427500, -12005, 0, 0), (112500, -21474, 1, 1);
		CREATE TABLE APPS (ID INTEGER, NAME_EDUCATION_TYPE TEXT);
		INSERT INTO APPS VALUES (1, 'Higher education'), (2, 'Higher education'), (3, 'Lower secondary');
	`)
	require.NoError(t, err)

	c := NewCache()
	tbl, err := c.Table(ctx, s, "SCORED")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	// postgres folds unquoted identifiers to lower case
	assert.Equal(t, []string{"amt_income_total", "days_birth"}, tbl.FeatureColumns("TARGET", "PREDICTION"))

	counts, err := CountBy(ctx, s, "APPS", "NAME_EDUCATION_TYPE")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "Lower secondary", counts[0].Category)
	assert.Equal(t, int64(2), counts[1].Count)
}
