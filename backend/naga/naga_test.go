package naga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadermap/backend"
)

const computeSource = `
@compute @workgroup_size(1)
fn main() {
}
`

func TestCompileProducesSPIRV(t *testing.T) {
	b := New()
	targets := []backend.Target{
		{ShaderType: "ClearCS", Stage: backend.StageCompute},
	}

	programs, err := b.Compile(context.Background(), computeSource,
		[]string{"MATERIAL_TWOSIDED=0"}, targets)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, targets[0], programs[0].Target)
	assert.NotEmpty(t, programs[0].Code)
}

func TestCompileBlobCacheHit(t *testing.T) {
	b := New()
	targets := []backend.Target{
		{ShaderType: "ClearCS", Stage: backend.StageCompute},
	}

	first, err := b.Compile(context.Background(), computeSource, nil, targets)
	require.NoError(t, err)
	second, err := b.Compile(context.Background(), computeSource, nil, targets)
	require.NoError(t, err)

	assert.Equal(t, first[0].Code, second[0].Code)
	stats := b.CacheStats()
	assert.Equal(t, 1, stats.Len)
	assert.GreaterOrEqual(t, stats.Hits, uint64(1))
}

func TestCompilePermutationsAreDistinctUnits(t *testing.T) {
	b := New()
	targets := []backend.Target{
		{ShaderType: "ClearCS", Permutation: 0, Stage: backend.StageCompute},
		{ShaderType: "ClearCS", Permutation: 1, Stage: backend.StageCompute},
	}

	programs, err := b.Compile(context.Background(), computeSource, nil, targets)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	// TARGET_PERMUTATION differs, so the units compile separately.
	assert.Equal(t, 2, b.CacheStats().Len)
}

func TestCompileInvalidSourceFails(t *testing.T) {
	b := New()
	targets := []backend.Target{
		{ShaderType: "BrokenCS", Stage: backend.StageCompute},
	}

	_, err := b.Compile(context.Background(), "fn main( {", nil, targets)
	assert.Error(t, err)
}

func TestCompileHonorsCancellation(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Compile(ctx, computeSource, nil, []backend.Target{
		{ShaderType: "ClearCS", Stage: backend.StageCompute},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreprocessInjectsDefines(t *testing.T) {
	unit := preprocess("fn main() {}", []string{"FOO=2", "BARE"}, backend.Target{
		Stage:       backend.StageFragment,
		Permutation: 3,
	})
	assert.Contains(t, unit, "const FOO: u32 = 2u;")
	assert.Contains(t, unit, "const BARE: u32 = 1u;")
	assert.Contains(t, unit, "const TARGET_PERMUTATION: u32 = 3u;")
	assert.Contains(t, unit, "fn main() {}")
}
