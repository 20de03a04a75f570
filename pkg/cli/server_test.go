package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/riskview/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) (http.Handler, *config.Connection) {
	t.Helper()
	conn := setupDemo(t)
	d := newDashboard(context.Background(), conn, false)
	t.Cleanup(func() { d.close() })
	return makeRouter(d), conn
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestViewHandler(t *testing.T) {
	h, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		target string
		status int
		want   []string
	}{
		{
			name:   "default page",
			target: "/",
			status: http.StatusOK,
			want: []string{
				"<h2>Feature Importance</h2>",
				"The top 10 features are shown if none are selected",
				"Feature_importance",
				`"reverse":false`,
				"AMT_INCOME_TOTAL",
			},
		},
		{
			name:   "selected features",
			target: "/?page=Feature+Importance&feature=DAYS_BIRTH&feature=FLAG_EMAIL",
			status: http.StatusOK,
			want: []string{
				`value="DAYS_BIRTH" selected`,
				`value="FLAG_EMAIL" selected`,
				"Showing 2 features",
			},
		},
		{
			name:   "eda page",
			target: "/?page=EDA",
			status: http.StatusOK,
			want: []string{
				"Exploratory Data Analysis",
				"Example of EDA that could be shown",
				"Education Type",
				`"reverse":true`,
			},
		},
		{
			name:   "unknown page",
			target: "/?page=Nope",
			status: http.StatusNotFound,
			want:   []string{"unknown page: Nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.target)
			assert.Equal(t, tt.status, w.Code)
			for _, s := range tt.want {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}
}

func TestViewHandler_OnlySelectedPageRenders(t *testing.T) {
	h, conn := setupTestRouter(t)

	// break the artifact so only the importance page can fail
	p := filepath.Join(strings.TrimPrefix(conn.Stage.URL, "file://"), conn.Stage.Model)
	require.NoError(t, os.WriteFile(p, []byte("not a model"), 0600))

	w := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `class="error"`)

	w = get(t, h, "/?page=EDA")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `class="error"`)
}

func TestViewHandler_ArtifactRefetched(t *testing.T) {
	h, conn := setupTestRouter(t)

	w := get(t, h, "/data/features")
	require.Equal(t, http.StatusOK, w.Code)

	p := filepath.Join(strings.TrimPrefix(conn.Stage.URL, "file://"), conn.Stage.Model)
	require.NoError(t, os.Remove(p))

	w = get(t, h, "/data/features")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFeaturesAPIHandler(t *testing.T) {
	h, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{
			name:   "top ten",
			target: "/data/features",
			want: []string{
				"AMT_INCOME_TOTAL", "DAYS_BIRTH", "DAYS_EMPLOYED", "MONTHS_BALANCE_MIN", "CNT_FAM_MEMBERS",
				"FLAG_OWN_REALTY", "CODE_GENDER_M", "FLAG_OWN_CAR", "CNT_CHILDREN", "FLAG_PHONE",
			},
		},
		{
			name:   "top three",
			target: "/data/features?n=3",
			want:   []string{"AMT_INCOME_TOTAL", "DAYS_BIRTH", "DAYS_EMPLOYED"},
		},
		{
			name:   "selection in ranking order",
			target: "/data/features?f=FLAG_EMAIL%7CDAYS_BIRTH%7CNOPE",
			want:   []string{"DAYS_BIRTH", "FLAG_EMAIL"},
		},
		{
			name:   "invalid n",
			target: "/data/features?n=abc",
			want: []string{
				"AMT_INCOME_TOTAL", "DAYS_BIRTH", "DAYS_EMPLOYED", "MONTHS_BALANCE_MIN", "CNT_FAM_MEMBERS",
				"FLAG_OWN_REALTY", "CODE_GENDER_M", "FLAG_OWN_CAR", "CNT_CHILDREN", "FLAG_PHONE",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, w.Code)

			var got SeriesData[float64]
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got.Labels)
			require.Len(t, got.Data, len(tt.want))
			for i := 1; i < len(got.Data); i++ {
				assert.GreaterOrEqual(t, got.Data[i-1], got.Data[i])
			}
		})
	}
}

func TestEducationAPIHandler(t *testing.T) {
	h, _ := setupTestRouter(t)

	w := get(t, h, "/data/education")
	require.Equal(t, http.StatusOK, w.Code)

	var got SeriesData[int64]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{
		"Academic degree",
		"Lower secondary",
		"Incomplete higher",
		"Higher education",
		"Secondary / secondary special",
	}, got.Labels)
	assert.Equal(t, []int64{1, 2, 3, 5, 9}, got.Data)
}

func TestOpsRoutes(t *testing.T) {
	h, _ := setupTestRouter(t)

	w := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	get(t, h, "/?page=EDA")
	w = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `riskview_page_renders_total{outcome="ok",page="EDA"}`)

	for _, p := range []string{"/static/assets/js/app.js", "/static/assets/css/app.css", "/favicon.ico"} {
		w = get(t, h, p)
		assert.Equal(t, http.StatusOK, w.Code, p)
	}
}

func TestHealthHandler_Unavailable(t *testing.T) {
	conn := config.SQLite(filepath.Join(t.TempDir(), "missing", "dir", "test.db"), "file:///tmp")
	d := newDashboard(context.Background(), conn, false)
	t.Cleanup(func() { d.close() })

	w := get(t, makeRouter(d), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitList("A| B |"))
	assert.Empty(t, splitList(""))
}
