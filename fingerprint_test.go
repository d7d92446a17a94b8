package shadermap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestOrderIndependence(t *testing.T) {
	a := &ShaderMapID{
		ContentHash: HashBytes([]byte("graph")),
		Quality:     QualityHigh,
		Feature:     FeatureSM5,
		ShaderDependencies: []ShaderDependency{
			{ShaderType: "BasePassPS", Permutation: 1},
			{ShaderType: "BasePassVS", Permutation: 0},
			{ShaderType: "BasePassPS", Permutation: 0},
		},
		VertexFactories: []string{"LocalVF", "GPUSkinVF"},
		Pipelines:       []string{"BasePass"},
		TextureHash:     HashStrings([]string{"albedo", "normal"}),
	}
	b := &ShaderMapID{
		ContentHash: HashBytes([]byte("graph")),
		Quality:     QualityHigh,
		Feature:     FeatureSM5,
		ShaderDependencies: []ShaderDependency{
			{ShaderType: "BasePassVS", Permutation: 0},
			{ShaderType: "BasePassPS", Permutation: 0},
			{ShaderType: "BasePassPS", Permutation: 1},
		},
		VertexFactories: []string{"GPUSkinVF", "LocalVF"},
		Pipelines:       []string{"BasePass"},
		TextureHash:     HashStrings([]string{"normal", "albedo"}),
	}

	assert.Equal(t, a.Digest(), b.Digest())
	assert.True(t, a.Equal(b))
}

func TestDigestSensitivity(t *testing.T) {
	base := func() *ShaderMapID {
		return &ShaderMapID{
			ContentHash: HashBytes([]byte("graph")),
			Quality:     QualityHigh,
			Feature:     FeatureSM5,
			ShaderDependencies: []ShaderDependency{
				{ShaderType: "BasePassVS", Permutation: 0},
			},
			VertexFactories: []string{"LocalVF"},
		}
	}

	ref := base().Digest()

	content := base()
	content.ContentHash = HashBytes([]byte("other graph"))
	assert.NotEqual(t, ref, content.Digest())

	quality := base()
	quality.Quality = QualityLow
	assert.NotEqual(t, ref, quality.Digest())

	perm := base()
	perm.ShaderDependencies[0].Permutation = 1
	assert.NotEqual(t, ref, perm.Digest())

	vf := base()
	vf.VertexFactories = append(vf.VertexFactories, "GPUSkinVF")
	assert.NotEqual(t, ref, vf.Digest())
}

func TestDigestDeterministic(t *testing.T) {
	id := &ShaderMapID{
		ContentHash:     HashBytes([]byte("x")),
		VertexFactories: []string{"a", "b"},
	}
	first := id.Digest()
	for i := 0; i < 10; i++ {
		require.Equal(t, first, id.Digest())
	}
}

func TestDigestZeroContentHash(t *testing.T) {
	// Broken or empty content still fingerprints.
	id := &ShaderMapID{}
	assert.False(t, id.Digest().IsZero())
	assert.True(t, id.ContentHash.IsZero())
}

func TestHashStringsOrderIndependent(t *testing.T) {
	assert.Equal(t,
		HashStrings([]string{"a", "b", "c"}),
		HashStrings([]string{"c", "a", "b"}))
	assert.NotEqual(t,
		HashStrings([]string{"a", "b"}),
		HashStrings([]string{"a", "b", "c"}))
}

func TestShaderMapIDContains(t *testing.T) {
	id := &ShaderMapID{
		ShaderDependencies: []ShaderDependency{
			{ShaderType: "DepthVS", Permutation: 0},
			{ShaderType: "DepthVS", Permutation: 1},
		},
		VertexFactories: []string{"LocalVF"},
		Pipelines:       []string{"Depth"},
	}

	assert.True(t, id.ContainsShaderType("DepthVS", 1))
	assert.False(t, id.ContainsShaderType("DepthVS", 2))
	assert.False(t, id.ContainsShaderType("BasePassVS", 0))
	assert.True(t, id.ContainsVertexFactory("LocalVF"))
	assert.False(t, id.ContainsVertexFactory("GPUSkinVF"))
	assert.True(t, id.ContainsPipeline("Depth"))
	assert.False(t, id.ContainsPipeline("BasePass"))
}

func TestShaderMapIDEqualNil(t *testing.T) {
	id := &ShaderMapID{}
	assert.False(t, id.Equal(nil))
}
