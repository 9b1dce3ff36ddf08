package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"indicator-spec/internal"
	"indicator-spec/internal/dashboard"
	"indicator-spec/internal/document"
	"indicator-spec/specs"
)

func (s *Server) handlePeriods(c *gin.Context) {
	periods := make([]int, 0, len(s.spec.Periods))
	for _, p := range s.spec.Periods {
		periods = append(periods, p.Period)
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

func (s *Server) handleMetrics(c *gin.Context) {
	metrics := s.doc.Metrics()
	if metrics == nil {
		metrics = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"metrics": metrics})
}

// handleEntities lists entity names in dictionary order, optionally narrowed
// by the q search text.
func (s *Server) handleEntities(c *gin.Context) {
	sel, err := internal.NewSelection(specs.SelectionSpec{Search: c.Query("q")})
	if err != nil {
		s.fail(c, err)
		return
	}
	names := []string{}
	for _, name := range s.doc.Entities() {
		if sel.MatchesEntity(name) {
			names = append(names, name)
		}
	}
	collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics).SortStrings(names)
	c.JSON(http.StatusOK, gin.H{"entities": names})
}

// handleData returns one period of the document, filtered by metric and country.
func (s *Server) handleData(c *gin.Context) {
	period, err := strconv.Atoi(c.Param("period"))
	if err != nil || period <= 0 {
		s.fail(c, fmt.Errorf("invalid period %q", c.Param("period")))
		return
	}
	if _, err := document.Period(s.spec, period); err != nil {
		s.fail(c, err)
		return
	}

	sel, err := selectionFromQuery(c, period)
	if err != nil {
		s.fail(c, err)
		return
	}
	entries := []specs.EntityEntrySpec{}
	if group, ok := sel.Apply(s.doc).ToSpec().Lookup(period); ok {
		entries = group.Entries
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "entries": entries})
}

func (s *Server) handleTable(c *gin.Context) {
	period, err := queryInt(c, "period")
	if err != nil {
		s.fail(c, err)
		return
	}
	sel, err := selectionFromQuery(c, period)
	if err != nil {
		s.fail(c, err)
		return
	}
	rows := dashboard.Table(s.doc, sel)
	if rows == nil {
		rows = []dashboard.Row{}
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) handleChart(c *gin.Context) {
	kind, err := dashboard.ParseChartKind(c.Param("kind"))
	if err != nil {
		s.fail(c, err)
		return
	}
	format, err := dashboard.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, err)
		return
	}
	top, err := queryInt(c, "top")
	if err != nil {
		s.fail(c, err)
		return
	}
	period, err := queryInt(c, "period")
	if err != nil {
		s.fail(c, err)
		return
	}
	sel, err := selectionFromQuery(c, period)
	if err != nil {
		s.fail(c, err)
		return
	}

	chart, err := dashboard.BuildChart(kind, s.doc, sel, top)
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := dashboard.RenderChart(&buf, chart, format); err != nil {
		s.failStatus(c, http.StatusInternalServerError, err)
		return
	}
	ChartsRendered.WithLabelValues(string(kind), string(format)).Inc()
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// handleMap returns the boundaries GeoJSON styled by the selected metric.
func (s *Server) handleMap(c *gin.Context) {
	if s.geojson == nil {
		s.failStatus(c, http.StatusServiceUnavailable, errors.New("map boundaries not configured"))
		return
	}
	period, err := strconv.Atoi(c.Param("period"))
	if err != nil || period <= 0 {
		s.fail(c, fmt.Errorf("invalid period %q", c.Param("period")))
		return
	}
	if _, err := document.Period(s.spec, period); err != nil {
		s.fail(c, err)
		return
	}
	sel, err := selectionFromQuery(c, period)
	if err != nil {
		s.fail(c, err)
		return
	}

	key := c.DefaultQuery("key", s.mapKey)
	out, legend, err := dashboard.Choropleth(s.geojson, s.doc, sel, key)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"legend": legend, "geojson": json.RawMessage(out)})
}

// selectionFromQuery reads the metric, x, country and q parameters.
func selectionFromQuery(c *gin.Context, period int) (internal.Selection, error) {
	return internal.NewSelection(specs.SelectionSpec{
		Metric:   c.Query("metric"),
		XMetric:  c.Query("x"),
		Period:   period,
		Entities: c.QueryArray("country"),
		Search:   c.Query("q"),
	})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// fail maps domain errors to a status: missing data is 404, anything else
// the caller sent is 400.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, dashboard.ErrNoData) || errors.Is(err, document.ErrPeriodNotFound) {
		status = http.StatusNotFound
	}
	s.failStatus(c, status, err)
}

func (s *Server) failStatus(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
