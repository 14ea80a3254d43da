package clinical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"
)

// LabSample is one dated set of named numeric measurements. The set of names
// varies between patients, so measurements are kept as a map.
type LabSample struct {
	Date         string
	Measurements map[string]float64
}

// UnmarshalJSON reads {"date": "...", "<name>": <number>, ...}. Non-numeric
// fields other than date are ignored.
func (s *LabSample) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Measurements = make(map[string]float64, len(raw))
	s.Date = ""
	for key, value := range raw {
		if key == "date" {
			if err := json.Unmarshal(value, &s.Date); err != nil {
				return fmt.Errorf("lab sample date: %w", err)
			}
			continue
		}
		var n float64
		if err := json.Unmarshal(value, &n); err != nil {
			continue
		}
		s.Measurements[key] = n
	}
	return nil
}

// MarshalJSON writes the flat object form the backend uses.
func (s LabSample) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(s.Measurements))
	for k := range s.Measurements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"date":`)
	date, err := json.Marshal(s.Date)
	if err != nil {
		return nil, err
	}
	buf.Write(date)
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.Measurements[k])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Point is one (date, value) pair of a lab series.
type Point struct {
	Date  string
	Value float64
	Valid bool
}

// Series is the trend of a single measurement across samples.
type Series struct {
	Key    string
	Label  string
	Points []Point
}

// Trend direction between the last two valid points of a series.
type Trend int

const (
	TrendUnknown Trend = iota
	TrendUp
	TrendDown
	TrendFlat
)

// Arrow renders the trend as a single glyph.
func (t Trend) Arrow() string {
	switch t {
	case TrendUp:
		return "↑"
	case TrendDown:
		return "↓"
	case TrendFlat:
		return "→"
	default:
		return "·"
	}
}

// Trend compares the last two valid points.
func (s Series) Trend() Trend {
	var last []float64
	for i := len(s.Points) - 1; i >= 0 && len(last) < 2; i-- {
		if s.Points[i].Valid {
			last = append(last, s.Points[i].Value)
		}
	}
	if len(last) < 2 {
		return TrendUnknown
	}
	switch {
	case last[0] > last[1]:
		return TrendUp
	case last[0] < last[1]:
		return TrendDown
	default:
		return TrendFlat
	}
}

// Latest returns the most recent valid point.
func (s Series) Latest() (Point, bool) {
	for i := len(s.Points) - 1; i >= 0; i-- {
		if s.Points[i].Valid {
			return s.Points[i], true
		}
	}
	return Point{}, false
}

// LabSeries builds one series per measurement key. Keys are discovered from
// the first sample only, matching how the trend chart has always picked its
// lines; later samples missing a key yield invalid points.
func LabSeries(samples []LabSample) []Series {
	if len(samples) == 0 {
		return nil
	}
	keys := make([]string, 0, len(samples[0].Measurements))
	for k := range samples[0].Measurements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := make([]Series, 0, len(keys))
	for _, key := range keys {
		s := Series{Key: key, Label: labelFor(key)}
		for _, sample := range samples {
			v, ok := sample.Measurements[key]
			s.Points = append(s.Points, Point{Date: sample.Date, Value: v, Valid: ok})
		}
		series = append(series, s)
	}
	return series
}

func labelFor(key string) string {
	if key == "" {
		return key
	}
	r, size := utf8.DecodeRuneInString(key)
	return string(unicode.ToUpper(r)) + key[size:]
}
