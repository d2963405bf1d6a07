package chunk_test

import (
	stderrors "errors"
	"testing"

	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/core/errors"
)

func TestAuthorityTier_Multiplier(t *testing.T) {
	tests := []struct {
		tier     chunk.AuthorityTier
		expected float32
	}{
		{chunk.TierConfirmedPrimary, 3.0},
		{chunk.TierConfirmedSecondary, 2.0},
		{chunk.TierUnconfirmed, 1.0},
		{chunk.TierUntagged, 1.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			if got := tt.tier.Multiplier(); got != tt.expected {
				t.Errorf("Multiplier() = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestTiers_OrderedByWeight(t *testing.T) {
	tiers := chunk.Tiers()

	if len(tiers) != 3 {
		t.Fatalf("expected 3 tagged tiers, got %d", len(tiers))
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Multiplier() > tiers[i-1].Multiplier() {
			t.Error("Tiers should be ordered by descending multiplier")
		}
	}
}

func TestChunk_Boost(t *testing.T) {
	c := chunk.Chunk{
		Score:    0.5,
		Metadata: chunk.Metadata{Tier: chunk.TierConfirmedPrimary},
	}
	c.Boost()

	if c.BoostedScore != 1.5 {
		t.Errorf("BoostedScore = %f, want 1.5", c.BoostedScore)
	}
}

func TestChunk_HasVector(t *testing.T) {
	withVector := chunk.Chunk{Vector: []float32{0.1, 0.2}}
	if !withVector.HasVector() {
		t.Error("expected HasVector to be true")
	}

	withoutVector := chunk.Chunk{}
	if withoutVector.HasVector() {
		t.Error("expected HasVector to be false")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := chunk.NewID()
		if id == "" {
			t.Fatal("expected non-empty ID")
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidateVector(t *testing.T) {
	tests := []struct {
		name       string
		vector     []float32
		dimensions int
		expectErr  error
	}{
		{
			name:       "valid vector",
			vector:     []float32{0.1, 0.2, 0.3},
			dimensions: 3,
			expectErr:  nil,
		},
		{
			name:       "skip dimension check",
			vector:     []float32{0.1, 0.2},
			dimensions: 0,
			expectErr:  nil,
		},
		{
			name:       "empty vector",
			vector:     nil,
			dimensions: 3,
			expectErr:  errors.ErrEmptyVector,
		},
		{
			name:       "dimension mismatch",
			vector:     []float32{0.1, 0.2},
			dimensions: 3,
			expectErr:  errors.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := chunk.ValidateVector(tt.vector, tt.dimensions)
			if tt.expectErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !stderrors.Is(err, tt.expectErr) {
				t.Fatalf("expected %v, got %v", tt.expectErr, err)
			}
		})
	}
}
