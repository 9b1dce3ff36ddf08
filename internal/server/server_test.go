package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"

	"indicator-spec/internal"
	"indicator-spec/specs"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

const (
	gdp       = "GDP per capita (current US$)"
	fertility = "Fertility rate, total (births per woman)"
)

const boundaries = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"ADMIN": "Chad"}, "geometry": null},
  {"type": "Feature", "properties": {"ADMIN": "Mali"}, "geometry": null}
]}`

func newTestServer(t *testing.T, geojson []byte) *Server {
	t.Helper()
	doc, err := internal.Group([]specs.RecordSpec{
		specs.NewRecord(2021, "Mali", fertility, "5.7"),
		specs.NewRecord(2021, "Mali", gdp, "873.8"),
		specs.NewRecord(2021, "Côte d'Ivoire", gdp, "2549"),
		specs.NewRecord(2021, "Chad", fertility, "6.2"),
		specs.NewRecord(2021, "Chad", gdp, "685.7"),
		specs.NewRecord(2020, "Chad", gdp, "659.5"),
		{Period: 2020, Entity: "Mali", Metric: gdp, Measurement: specs.NullMeasurement()},
	})
	require.NoError(t, err)
	s, err := New(doc, Options{GeoJSON: geojson})
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, newTestServer(t, nil), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("assigns a new id", func(t *testing.T) {
		w := get(t, s, "/health")

		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("keeps a valid client id", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()

		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, id, w.Header().Get(RequestIDHeader))
	})
}

func TestListings(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("periods keep document order", func(t *testing.T) {
		w := get(t, s, "/api/periods")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"periods":[2021,2020]}`, w.Body.String())
	})

	t.Run("metrics are sorted", func(t *testing.T) {
		w := get(t, s, "/api/metrics")

		assert.JSONEq(t, `{"metrics":["`+fertility+`","`+gdp+`"]}`, w.Body.String())
	})

	t.Run("entities are in dictionary order", func(t *testing.T) {
		w := get(t, s, "/api/entities")

		var body struct{ Entities []string }
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, []string{"Chad", "Côte d'Ivoire", "Mali"}, body.Entities)
	})

	t.Run("entities search ignores case", func(t *testing.T) {
		w := get(t, s, "/api/entities?q=C%C3%94TE")

		assert.JSONEq(t, `{"entities":["Côte d'Ivoire"]}`, w.Body.String())
	})
}

func TestData(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("returns the period filtered by metric", func(t *testing.T) {
		w := get(t, s, "/api/data/2021?metric="+strings.ReplaceAll(fertility, " ", "+"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"period":2021,"entries":[
			{"country":"Mali","Metrics":{"`+fertility+`":5.7}},
			{"country":"Chad","Metrics":{"`+fertility+`":6.2}}
		]}`, w.Body.String())
	})

	t.Run("keeps nulls", func(t *testing.T) {
		w := get(t, s, "/api/data/2020?country=Mali")

		assert.JSONEq(t, `{"period":2020,"entries":[{"country":"Mali","Metrics":{"`+gdp+`":null}}]}`, w.Body.String())
	})

	t.Run("with unknown period returns 404", func(t *testing.T) {
		w := get(t, s, "/api/data/1999")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "period not found")
	})

	t.Run("with malformed period returns 400", func(t *testing.T) {
		w := get(t, s, "/api/data/latest")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTable(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("skips nulls", func(t *testing.T) {
		w := get(t, s, "/api/table?period=2020")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "rows.#").Int())
		assert.Equal(t, "Chad", gjson.Get(w.Body.String(), "rows.0.entity").String())
	})

	t.Run("with no matches returns empty rows", func(t *testing.T) {
		w := get(t, s, "/api/table?country=Niger")

		assert.JSONEq(t, `{"rows":[]}`, w.Body.String())
	})

	t.Run("with bad period returns 400", func(t *testing.T) {
		w := get(t, s, "/api/table?period=-4")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCharts(t *testing.T) {
	s := newTestServer(t, nil)
	metric := strings.ReplaceAll(gdp, " ", "+")

	t.Run("bar chart renders svg", func(t *testing.T) {
		w := get(t, s, "/charts/bar?metric="+metric+"&top=2")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "<svg")
	})

	t.Run("line chart renders png", func(t *testing.T) {
		w := get(t, s, "/charts/line?metric="+metric+"&format=png")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	})

	t.Run("with unknown kind returns 400", func(t *testing.T) {
		w := get(t, s, "/charts/pie?metric="+metric)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown chart kind")
	})

	t.Run("with no data returns 404", func(t *testing.T) {
		w := get(t, s, "/charts/bar?metric=Unknown")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("with x metric and no metric returns 400", func(t *testing.T) {
		w := get(t, s, "/charts/scatter?x="+metric)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMap(t *testing.T) {
	metric := strings.ReplaceAll(gdp, " ", "+")

	t.Run("without boundaries returns 503", func(t *testing.T) {
		w := get(t, newTestServer(t, nil), "/map/2021?metric="+metric)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("styles features", func(t *testing.T) {
		w := get(t, newTestServer(t, []byte(boundaries)), "/map/2021?metric="+metric)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Equal(t, int64(2), gjson.Get(body, "legend.matched").Int())
		assert.Equal(t, 685.7, gjson.Get(body, "geojson.features.0.properties.value").Float())
		assert.True(t, strings.HasPrefix(gjson.Get(body, "geojson.features.1.properties.fill").String(), "#"))
	})

	t.Run("with unknown period returns 404", func(t *testing.T) {
		w := get(t, newTestServer(t, []byte(boundaries)), "/map/1999?metric="+metric)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	get(t, s, "/health")

	w := get(t, s, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `wdi_http_requests_total{method="GET",route="/health",status="200"}`)
}

func TestServe(t *testing.T) {
	t.Run("stops when the context is cancelled", func(t *testing.T) {
		s := newTestServer(t, nil)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Serve(ctx, ln) }()

		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
		http.DefaultClient.CloseIdleConnections()
	})
}

func TestNew(t *testing.T) {
	t.Run("with invalid document returns error", func(t *testing.T) {
		_, err := New(specs.GroupedSpec{Periods: []specs.PeriodGroupSpec{
			{Period: 2020, Entries: []specs.EntityEntrySpec{{Country: ""}}},
		}}, Options{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid document")
	})
}
