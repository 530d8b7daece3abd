package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightsValid(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		valid   bool
	}{
		{"all positive", Weights{1, 0.5, 2, 0.1, 0.3}, true},
		{"zeros allowed", Weights{}, true},
		{"negative rejected", Weights{SemanticFit: -0.1}, false},
		{"NaN rejected", Weights{VoiceFit: math.NaN()}, false},
		{"Inf rejected", Weights{ContinuityCoverage: math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.weights.Valid())
		})
	}
}

func TestObligationFor(t *testing.T) {
	g := GuidanceProfile{
		Obligations: []Obligation{
			{Family: "mortality", MinHits: 2, MaxHits: 4},
			{Family: "doubt", MinHits: 1, MaxHits: 3},
		},
	}

	o, ok := g.ObligationFor("doubt")
	assert.True(t, ok)
	assert.Equal(t, 1, o.MinHits)

	_, ok = g.ObligationFor("revenge")
	assert.False(t, ok)
}
