package eval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnswerRelevancy_Validation(t *testing.T) {
	t.Parallel()
	scorer := &fixedScorer{}

	tests := []struct {
		name      string
		threshold float64
		wantErr   bool
	}{
		{"zero", 0, false},
		{"half", 0.5, false},
		{"one", 1, false},
		{"negative", -0.01, true},
		{"above one", 1.01, true},
		{"NaN", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnswerRelevancy(RelevancyConfig{Threshold: tt.threshold}, scorer)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidThreshold)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewAnswerRelevancy(RelevancyConfig{Threshold: 0.5}, nil)
	assert.Error(t, err)
}

func TestAnswerRelevancy_Measure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         RelevancyConfig
		judgment    Judgment
		wantScore   float64
		wantSuccess bool
		wantReason  string
	}{
		{
			name:        "passes",
			cfg:         RelevancyConfig{Threshold: 0.5, IncludeReason: true},
			judgment:    Judgment{Score: 0.8, Reason: "relevant"},
			wantScore:   0.8,
			wantSuccess: true,
			wantReason:  "relevant",
		},
		{
			name:        "fails",
			cfg:         RelevancyConfig{Threshold: 0.5},
			judgment:    Judgment{Score: 0.4, Reason: "dropped"},
			wantScore:   0.4,
			wantSuccess: false,
		},
		{
			name:        "strict perfect",
			cfg:         RelevancyConfig{Threshold: 0.2, StrictMode: true},
			judgment:    Judgment{Score: 1},
			wantScore:   1,
			wantSuccess: true,
		},
		{
			name:        "strict imperfect",
			cfg:         RelevancyConfig{Threshold: 0.2, StrictMode: true},
			judgment:    Judgment{Score: 0.99},
			wantScore:   0,
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewAnswerRelevancy(tt.cfg, &fixedScorer{judgment: tt.judgment})
			require.NoError(t, err)

			r, err := m.Measure(context.Background(), shoesCase)
			require.NoError(t, err)
			assert.Equal(t, AnswerRelevancyName, r.Name)
			assert.Equal(t, tt.wantScore, r.Score)
			assert.Equal(t, tt.wantSuccess, r.Success)
			assert.Equal(t, tt.wantReason, r.Reason)
			assert.Equal(t, m.Threshold(), r.Threshold)
		})
	}
}

func TestAnswerRelevancy_MeasureReturnsScorerError(t *testing.T) {
	t.Parallel()
	connErr := errors.New("connection reset")
	m, err := NewAnswerRelevancy(RelevancyConfig{Threshold: 0.5}, &fixedScorer{err: connErr})
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), shoesCase)

	assert.Same(t, connErr, err)
}

func TestScorerFunc_SeesCase(t *testing.T) {
	t.Parallel()
	var got Case
	m, err := NewAnswerRelevancy(RelevancyConfig{Threshold: 0.5, Model: "gpt-4o"}, ScorerFunc(func(ctx context.Context, c Case) (Judgment, error) {
		got = c
		return Judgment{Score: 1}, nil
	}))
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), shoesCase)
	require.NoError(t, err)
	assert.Equal(t, shoesCase, got)
	assert.Equal(t, "gpt-4o", m.Model())
}
