package shadermap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defineSet(defines []string) map[string]bool {
	m := make(map[string]bool, len(defines))
	for _, d := range defines {
		m[d] = true
	}
	return m
}

func TestEnvironmentDefinesBlendModes(t *testing.T) {
	opaque := NewMaterial("o", MaterialConfig{
		Properties: Properties{BlendMode: BlendOpaque},
	})
	d := defineSet(EnvironmentDefines(opaque, nil))
	assert.True(t, d["MATERIALBLENDING_SOLID=1"])

	// Alpha composite is translucent plus its own flag.
	ac := NewMaterial("ac", MaterialConfig{
		Properties: Properties{BlendMode: BlendAlphaComposite},
	})
	d = defineSet(EnvironmentDefines(ac, nil))
	assert.True(t, d["MATERIALBLENDING_ALPHACOMPOSITE=1"])
	assert.True(t, d["MATERIALBLENDING_TRANSLUCENT=1"])
}

func TestEnvironmentDefinesDecalResponseMask(t *testing.T) {
	decal := NewMaterial("d", MaterialConfig{
		Properties: Properties{Domain: DomainDeferredDecal, DecalResponseMask: 5},
	})
	d := defineSet(EnvironmentDefines(decal, nil))
	assert.True(t, d["MATERIALDOMAIN_DEFERREDDECAL=1"])
	assert.True(t, d["MATERIALDECALRESPONSEMASK=5"])

	// The mask is decal-only.
	surface := NewMaterial("s", MaterialConfig{
		Properties: Properties{DecalResponseMask: 5},
	})
	d = defineSet(EnvironmentDefines(surface, nil))
	assert.False(t, d["MATERIALDECALRESPONSEMASK=5"])
}

func TestEnvironmentDefinesTranslucencyLighting(t *testing.T) {
	m := NewMaterial("m", MaterialConfig{
		Properties: Properties{
			BlendMode:            BlendTranslucent,
			TranslucencyLighting: TranslucencySurfacePerPixel,
		},
	})
	d := defineSet(EnvironmentDefines(m, nil))
	assert.True(t, d["TRANSLUCENCY_LIGHTING_SURFACE_FORWARDSHADING=1"])

	// Lighting mode defines only apply to translucent blending.
	m = NewMaterial("m", MaterialConfig{
		Properties: Properties{
			BlendMode:            BlendOpaque,
			TranslucencyLighting: TranslucencySurfacePerPixel,
		},
	})
	d = defineSet(EnvironmentDefines(m, nil))
	assert.False(t, d["TRANSLUCENCY_LIGHTING_SURFACE_FORWARDSHADING=1"])
}

func TestEnvironmentDefinesTessellation(t *testing.T) {
	m := NewMaterial("m", MaterialConfig{
		Properties: Properties{Tessellation: TessellationPNTriangles},
	})
	d := defineSet(EnvironmentDefines(m, nil))
	assert.True(t, d["USING_TESSELLATION=1"])
	assert.True(t, d["TESSELLATION_TYPE_PNTRIANGLES=1"])

	m = NewMaterial("m", MaterialConfig{})
	d = defineSet(EnvironmentDefines(m, nil))
	assert.True(t, d["USING_TESSELLATION=0"])
}

func TestEnvironmentDefinesTranslationUsage(t *testing.T) {
	m := NewMaterial("m", MaterialConfig{})
	tr := &TranslationResult{UsesSceneColor: true, UsesVertexPosition: true}
	d := defineSet(EnvironmentDefines(m, tr))
	assert.True(t, d["MATERIAL_USES_SCENE_COLOR_COPY=1"])
	assert.True(t, d["MATERIAL_MODIFIES_MESH_POSITION=1"])
	assert.True(t, d["MATERIAL_USES_PIXEL_DEPTH=0"])
}

func TestEnvironmentDefinesDeterministic(t *testing.T) {
	m := NewMaterial("m", MaterialConfig{
		Properties: Properties{
			BlendMode: BlendMasked,
			TwoSided:  true,
		},
	})
	first := EnvironmentDefines(m, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, EnvironmentDefines(m, nil))
	}
}
