package numeric

import (
	"encoding/json"
	"math"
)

// Percent holds a fraction (0.05 == 5%). It is serialized on the 0-100 scale.
type Percent float64

// FromPercentage converts a 0-100 value into a Percent
func FromPercentage(v float64) Percent {
	return Percent(v / 100)
}

// Float returns the underlying fraction
func (p Percent) Float() float64 {
	return float64(p)
}

// Percentage returns the value on the 0-100 scale
func (p Percent) Percentage() float64 {
	return float64(p) * 100
}

func (p Percent) MarshalJSON() ([]byte, error) {
	v := p.Percentage()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(Round(v, 4))
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = FromPercentage(v)
	return nil
}

// NormalizeConfidence accepts 95 or 0.95 style confidence levels and returns a fraction
func NormalizeConfidence(level float64) (float64, error) {
	c := level
	if c > 1 {
		c = c / 100
	}
	if c <= 0 || c >= 1 || math.IsNaN(c) {
		return 0, Invalid("normalize_confidence", "confidence level %v out of range", level)
	}
	return c, nil
}
