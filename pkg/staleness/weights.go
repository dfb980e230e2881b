package staleness

import "math"

// WeightTolerance is the accepted deviation of the weight sum from 1.0.
const WeightTolerance = 0.001

// Weights holds the per-factor weights of the composite score.
type Weights struct {
	Age        float64 `yaml:"age" json:"age"`
	Importance float64 `yaml:"importance" json:"importance"`
	Size       float64 `yaml:"size" json:"size"`
	Spam       float64 `yaml:"spam" json:"spam"`
	Access     float64 `yaml:"access" json:"access"`
}

// DefaultWeights returns the default factor weights.
func DefaultWeights() Weights {
	return Weights{
		Age:        0.25,
		Importance: 0.30,
		Size:       0.15,
		Spam:       0.15,
		Access:     0.15,
	}
}

// Sum returns the sum of all weights.
func (w Weights) Sum() float64 {
	return w.Age + w.Importance + w.Size + w.Spam + w.Access
}

// Balanced reports whether the weight sum is within WeightTolerance of 1.0.
func (w Weights) Balanced() bool {
	return math.Abs(w.Sum()-1.0) <= WeightTolerance
}

// WeightOverrides is a partial weight update; nil fields keep the current
// value.
type WeightOverrides struct {
	Age        *float64 `yaml:"age" json:"age,omitempty"`
	Importance *float64 `yaml:"importance" json:"importance,omitempty"`
	Size       *float64 `yaml:"size" json:"size,omitempty"`
	Spam       *float64 `yaml:"spam" json:"spam,omitempty"`
	Access     *float64 `yaml:"access" json:"access,omitempty"`
}

// merge applies the overrides onto w and returns the result.
func (w Weights) merge(o WeightOverrides) Weights {
	if o.Age != nil {
		w.Age = *o.Age
	}
	if o.Importance != nil {
		w.Importance = *o.Importance
	}
	if o.Size != nil {
		w.Size = *o.Size
	}
	if o.Spam != nil {
		w.Spam = *o.Spam
	}
	if o.Access != nil {
		w.Access = *o.Access
	}
	return w
}
