package archive

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadermap"
	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/uniform"
)

func buildMap(t *testing.T, feature shadermap.FeatureLevel, quality shadermap.QualityLevel) *shadermap.ShaderMap {
	t.Helper()
	id := &shadermap.ShaderMapID{
		ContentHash: shadermap.HashBytes([]byte("graph")),
		Quality:     quality,
		Feature:     feature,
		ShaderDependencies: []shadermap.ShaderDependency{
			{ShaderType: "BasePassVS", Permutation: 0},
			{ShaderType: "BasePassPS", Permutation: 0},
			{ShaderType: "BasePassPS", Permutation: 1},
		},
		VertexFactories: []string{"LocalVF"},
		Pipelines:       []string{"BasePass"},
		TextureHash:     shadermap.HashStrings([]string{"albedo"}),
	}
	sm := shadermap.NewShaderMap(id, shadermap.PlatformVulkan)
	sm.AddProgram(backend.Program{
		Target: backend.Target{
			ShaderType: "BasePassVS", VertexFactory: "LocalVF",
			Stage: backend.StageVertex,
		},
		Code: []byte("vertex spirv"),
	})
	sm.AddProgram(backend.Program{
		Target: backend.Target{
			ShaderType: "BasePassPS", Permutation: 1,
			Stage: backend.StageFragment,
		},
		Code: []byte("fragment spirv"),
	})
	sm.SetExpressions(&uniform.ExpressionSet{
		Vectors: []uniform.VectorExpression{
			uniform.VectorConstant{Value: mgl32.Vec4{1, 2, 3, 4}},
			uniform.VectorParameter{Name: "Tint", Default: mgl32.Vec4{1, 1, 1, 1}},
		},
		Scalars: []uniform.ScalarExpression{
			uniform.ScalarConstant{Value: 0.5},
			uniform.ScalarParameter{Name: "Roughness", Default: 0.25},
		},
		Textures: []uniform.TextureExpression{
			uniform.TextureParameter{Name: "Albedo"},
		},
		Stacks: []uniform.TextureStack{
			{
				Preallocated: true,
				Layers:       []uniform.TextureExpression{uniform.TextureParameter{Name: "Lightmap"}},
			},
			{
				Layers: []uniform.TextureExpression{
					uniform.TextureParameter{Name: "LayerA"},
					uniform.TextureParameter{Name: "LayerB"},
				},
			},
		},
	})
	sm.Finalize()
	return sm
}

func writeArchive(t *testing.T) ([]byte, *shadermap.ShaderMap, *shadermap.ShaderMap) {
	t.Helper()
	high := buildMap(t, shadermap.FeatureSM5, shadermap.QualityHigh)
	low := buildMap(t, shadermap.FeatureSM5, shadermap.QualityLow)

	w := NewWriter()
	require.NoError(t, w.Add(shadermap.FeatureSM5, shadermap.QualityHigh, high))
	require.NoError(t, w.Add(shadermap.FeatureSM5, shadermap.QualityLow, low))
	require.NoError(t, w.AddEmpty(shadermap.FeatureES31, shadermap.QualityLow))

	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	return buf.Bytes(), high, low
}

func TestArchiveRoundTrip(t *testing.T) {
	data, high, _ := writeArchive(t)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	slots := r.Slots()
	require.Len(t, slots, 3)
	assert.True(t, slots[0].Valid)
	assert.True(t, slots[1].Valid)
	assert.False(t, slots[2].Valid)

	got, err := r.Extract(shadermap.FeatureSM5, shadermap.QualityHigh)
	require.NoError(t, err)
	defer got.Release()

	assert.True(t, got.IsFinalized())
	assert.Equal(t, high.Digest(), got.Digest())
	assert.Equal(t, shadermap.PlatformVulkan, got.Platform())
	assert.Equal(t, high.ID().VertexFactories, got.ID().VertexFactories)
	assert.Equal(t, high.ID().Pipelines, got.ID().Pipelines)

	progs := got.Programs()
	require.Len(t, progs, 2)
	assert.Equal(t, high.Programs(), progs)

	set := got.Expressions()
	assert.Equal(t, high.Expressions().Hash(), set.Hash())

	// The decoded expressions evaluate like the originals.
	src := uniform.NewMapSource()
	src.SetVector("Tint", mgl32.Vec4{0.5, 0.5, 0.5, 1})
	want := make([]byte, high.Expressions().BufferSize())
	have := make([]byte, set.BufferSize())
	high.Expressions().FillBuffer(src, want)
	set.FillBuffer(src, have)
	assert.Equal(t, want, have)
}

func TestArchiveSingleExtractionMatchesFullParse(t *testing.T) {
	data, _, _ := writeArchive(t)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	all, err := r.ExtractAll()
	require.NoError(t, err)
	require.Len(t, all, 2) // the empty slot yields nothing

	single, err := r.Extract(shadermap.FeatureSM5, shadermap.QualityLow)
	require.NoError(t, err)
	defer single.Release()

	for slot, sm := range all {
		if slot.Quality == shadermap.QualityLow {
			assert.Equal(t, sm.Digest(), single.Digest())
			assert.Equal(t, sm.Programs(), single.Programs())
		}
		sm.Release()
	}
}

func TestArchiveEmptySlot(t *testing.T) {
	data, _, _ := writeArchive(t)
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.Extract(shadermap.FeatureES31, shadermap.QualityLow)
	require.Error(t, err)
	assert.ErrorIs(t, err, shadermap.ErrNoArtifact)

	// A slot never written at all is a different failure.
	_, err = r.Extract(shadermap.FeatureSM6, shadermap.QualityEpic)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shadermap.ErrNoArtifact)
}

func TestArchiveNameTableDeduplication(t *testing.T) {
	data, _, _ := writeArchive(t)

	// Both quality levels reference the same shader type names; the name
	// table stores each once and the blobs use back-references.
	assert.Equal(t, 1, bytes.Count(data, []byte("BasePassVS")))
	assert.Equal(t, 1, bytes.Count(data, []byte("LocalVF")))
}

func TestArchiveRejectsDuplicateSlot(t *testing.T) {
	sm := buildMap(t, shadermap.FeatureSM5, shadermap.QualityHigh)
	w := NewWriter()
	require.NoError(t, w.Add(shadermap.FeatureSM5, shadermap.QualityHigh, sm))
	assert.Error(t, w.Add(shadermap.FeatureSM5, shadermap.QualityHigh, sm))
	assert.Error(t, w.AddEmpty(shadermap.FeatureSM5, shadermap.QualityHigh))
}

func TestArchiveRejectsUnfinalizedMap(t *testing.T) {
	sm := shadermap.NewShaderMap(&shadermap.ShaderMapID{}, shadermap.PlatformVulkan)
	w := NewWriter()
	assert.Error(t, w.Add(shadermap.FeatureSM5, shadermap.QualityHigh, sm))
	assert.Error(t, w.Add(shadermap.FeatureSM5, shadermap.QualityHigh, nil))
}

func TestReaderRejectsBadHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("XXXX....")))
	assert.Error(t, err)

	_, err = NewReader(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestReaderDetectsCorruptBlob(t *testing.T) {
	data, _, _ := writeArchive(t)

	// Flip bytes near the end of the last blob; decoding fails instead of
	// returning a silently wrong artifact.
	corrupt := append([]byte(nil), data...)
	for i := len(corrupt) - 40; i < len(corrupt)-36; i++ {
		corrupt[i] ^= 0xff
	}
	r, err := NewReader(bytes.NewReader(corrupt))
	require.NoError(t, err)
	_, err = r.Extract(shadermap.FeatureSM5, shadermap.QualityLow)
	assert.Error(t, err)
}
