package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		to   Phase
		ok   bool
	}{
		{"initial entry", "", PhaseInitialization, true},
		{"initial entry only to initialization", "", PhaseTheoreticalFoundation, false},
		{"linear main path", PhaseInitialization, PhaseTheoreticalFoundation, true},
		{"theory to architecture", PhaseTheoreticalFoundation, PhaseArchitectureDesign, true},
		{"branch to review", PhaseMaterialProduction, PhaseReviewIteration, true},
		{"branch to finalization", PhaseMaterialProduction, PhaseFinalization, true},
		{"loop back to architecture", PhaseReviewIteration, PhaseArchitectureDesign, true},
		{"finalization to terminated", PhaseFinalization, PhaseTerminated, true},
		{"no skipping phases", PhaseInitialization, PhaseContentCreation, false},
		{"no going backwards", PhaseContentCreation, PhaseTheoreticalFoundation, false},
		{"terminated is final", PhaseTerminated, PhaseInitialization, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPhaseSuccessor(t *testing.T) {
	next, ok := PhaseSuccessor(PhaseInitialization)
	require.True(t, ok)
	assert.Equal(t, PhaseTheoreticalFoundation, next)

	// 分支点没有无条件后继
	_, ok = PhaseSuccessor(PhaseMaterialProduction)
	assert.False(t, ok)

	_, ok = PhaseSuccessor(PhaseTerminated)
	assert.False(t, ok)
}

func TestErrInvalidPhaseTransition_Error(t *testing.T) {
	err := ErrInvalidPhaseTransition{From: PhaseContentCreation, To: PhaseInitialization}
	assert.Contains(t, err.Error(), "content_creation")
	assert.Contains(t, err.Error(), "initialization")
}

// 任意沿合法边的随机游走不会走出阶段图。
func TestPhaseWalk_StaysOnGraph(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := PhaseInitialization
		steps := rapid.IntRange(0, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			next := validPhaseTransitions[current]
			if len(next) == 0 {
				break
			}
			pick := rapid.IntRange(0, len(next)-1).Draw(t, "pick")
			to := next[pick]
			if !CanTransition(current, to) {
				t.Fatalf("edge %s -> %s rejected", current, to)
			}
			current = to
		}
	})
}
