package dashboard

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/text/cases"

	"indicator-spec/internal"
)

const (
	// DefaultMapKey is the Natural Earth property holding the country name.
	DefaultMapKey = "ADMIN"
	NoDataFill    = "#cccccc"
)

// greens is the ColorBrewer sequential Greens scheme, light to dark.
var greens = []string{
	"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476",
	"#41ab5d", "#238b45", "#006d2c", "#00441b",
}

var propertyKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Legend describes the color scale of a choropleth.
type Legend struct {
	Caption string   `json:"caption"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Colors  []string `json:"colors"`
	Matched int      `json:"matched"`
}

// Choropleth joins a GeoJSON FeatureCollection with the selected metric in
// the selected (or latest) period. Each feature whose key property names a
// selected entity gets a "value" property and a "fill" color on a linear
// Greens scale between the smallest and largest value; the rest get a null
// value and NoDataFill. Names are matched ignoring case.
func Choropleth(geojson []byte, g internal.Grouped, sel internal.Selection, key string) ([]byte, Legend, error) {
	if key == "" {
		key = DefaultMapKey
	}
	if !propertyKey.MatchString(key) {
		return nil, Legend{}, fmt.Errorf("invalid map key %q", key)
	}
	if sel.Metric() == "" {
		return nil, Legend{}, fmt.Errorf("choropleth requires a metric")
	}
	if !gjson.ValidBytes(geojson) || gjson.GetBytes(geojson, "type").String() != "FeatureCollection" {
		return nil, Legend{}, fmt.Errorf("invalid geojson: expected a FeatureCollection")
	}

	group, err := selectedPeriod(g, sel)
	if err != nil {
		return nil, Legend{}, err
	}

	fold := cases.Fold()
	values := make(map[string]float64)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range group.Entries() {
		name := e.Entity().ToString()
		if !sel.MatchesEntity(name) {
			continue
		}
		if v, ok := value(e, sel.Metric()); ok {
			values[fold.String(name)] = v
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if len(values) == 0 {
		return nil, Legend{}, fmt.Errorf("%w: %s in %d", ErrNoData, sel.Metric(), group.Period().ToInt())
	}

	legend := Legend{
		Caption: fmt.Sprintf("%s (%d)", sel.Metric(), group.Period().ToInt()),
		Min:     lo,
		Max:     hi,
		Colors:  slices.Clone(greens),
	}

	// Features are patched one at a time on their own bytes and the array is
	// written back once, so the cost stays linear in the document size.
	var (
		features bytes.Buffer
		i        int
		patchErr error
	)
	features.WriteByte('[')
	gjson.GetBytes(geojson, "features").ForEach(func(_, feature gjson.Result) bool {
		raw := []byte(feature.Raw)
		name := feature.Get("properties." + key).String()

		v, ok := values[fold.String(name)]
		var fill string
		var err error
		if ok && name != "" {
			raw, err = sjson.SetBytes(raw, "properties.value", v)
			fill = scale(v, lo, hi)
			legend.Matched++
		} else {
			raw, err = sjson.SetBytes(raw, "properties.value", nil)
			fill = NoDataFill
		}
		if err == nil {
			raw, err = sjson.SetBytes(raw, "properties.fill", fill)
		}
		if err != nil {
			patchErr = fmt.Errorf("feature %d: %w", i, err)
			return false
		}

		if i > 0 {
			features.WriteByte(',')
		}
		features.Write(raw)
		i++
		return true
	})
	if patchErr != nil {
		return nil, Legend{}, patchErr
	}
	features.WriteByte(']')

	out, err := sjson.SetRawBytes(geojson, "features", features.Bytes())
	if err != nil {
		return nil, Legend{}, fmt.Errorf("write features: %w", err)
	}
	return out, legend, nil
}

// scale maps v linearly onto the Greens scheme.
func scale(v, lo, hi float64) string {
	if hi == lo {
		return greens[len(greens)-1]
	}
	t := (v - lo) / (hi - lo)
	pos := t * float64(len(greens)-1)
	i := int(math.Floor(pos))
	if i >= len(greens)-1 {
		return greens[len(greens)-1]
	}
	return mix(greens[i], greens[i+1], pos-float64(i))
}

// mix interpolates between two #rrggbb colors.
func mix(a, b string, t float64) string {
	ca, cb := rgb(a), rgb(b)
	var out [3]uint8
	for k := range out {
		out[k] = uint8(math.Round(float64(ca[k]) + (float64(cb[k])-float64(ca[k]))*t))
	}
	return fmt.Sprintf("#%02x%02x%02x", out[0], out[1], out[2])
}

func rgb(hex string) [3]uint8 {
	n, _ := strconv.ParseUint(hex[1:], 16, 32)
	return [3]uint8{uint8(n >> 16), uint8(n >> 8), uint8(n)}
}
