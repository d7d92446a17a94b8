package shadermap

import (
	"sort"
	"strconv"
)

// EnvironmentDefines derives the backend define set from a material's
// properties and translation result. Each property maps to a fixed set of
// boolean or enum defines; the output is sorted so equal inputs always
// produce the same define list.
func EnvironmentDefines(m *Material, tr *TranslationResult) []string {
	props := m.Properties()
	d := map[string]string{}

	switch props.BlendMode {
	case BlendOpaque:
		d["MATERIALBLENDING_SOLID"] = "1"
	case BlendMasked:
		d["MATERIALBLENDING_MASKED"] = "1"
	case BlendTranslucent:
		d["MATERIALBLENDING_TRANSLUCENT"] = "1"
	case BlendAdditive:
		d["MATERIALBLENDING_ADDITIVE"] = "1"
	case BlendModulate:
		d["MATERIALBLENDING_MODULATE"] = "1"
	case BlendAlphaComposite:
		d["MATERIALBLENDING_ALPHACOMPOSITE"] = "1"
		d["MATERIALBLENDING_TRANSLUCENT"] = "1"
	case BlendAlphaHoldout:
		d["MATERIALBLENDING_ALPHAHOLDOUT"] = "1"
		d["MATERIALBLENDING_TRANSLUCENT"] = "1"
	}

	switch props.Domain {
	case DomainSurface:
		d["MATERIALDOMAIN_SURFACE"] = "1"
	case DomainDeferredDecal:
		d["MATERIALDOMAIN_DEFERREDDECAL"] = "1"
	case DomainUI:
		d["MATERIALDOMAIN_UI"] = "1"
	case DomainPostProcess:
		d["MATERIALDOMAIN_POSTPROCESS"] = "1"
	case DomainVolume:
		d["MATERIALDOMAIN_VOLUME"] = "1"
	}

	switch props.Refraction {
	case RefractionPixelNormalOffset:
		d["REFRACTION_USE_PIXEL_NORMAL_OFFSET"] = "1"
	default:
		d["REFRACTION_USE_INDEX_OF_REFRACTION"] = "1"
	}

	if props.Tessellation == TessellationNone {
		d["USING_TESSELLATION"] = "0"
	} else {
		d["USING_TESSELLATION"] = "1"
		switch props.Tessellation {
		case TessellationFlat:
			d["TESSELLATION_TYPE_FLAT"] = "1"
		case TessellationPNTriangles:
			d["TESSELLATION_TYPE_PNTRIANGLES"] = "1"
		}
	}

	if props.Domain == DomainDeferredDecal {
		d["MATERIALDECALRESPONSEMASK"] = strconv.Itoa(int(props.DecalResponseMask))
	}

	if props.BlendMode.IsTranslucent() {
		switch props.TranslucencyLighting {
		case TranslucencyVolumetricNonDirectional:
			d["TRANSLUCENCY_LIGHTING_VOLUMETRIC_NONDIRECTIONAL"] = "1"
		case TranslucencyVolumetricDirectional:
			d["TRANSLUCENCY_LIGHTING_VOLUMETRIC_DIRECTIONAL"] = "1"
		case TranslucencySurface:
			d["TRANSLUCENCY_LIGHTING_SURFACE_LIGHTINGVOLUME"] = "1"
		case TranslucencySurfacePerPixel:
			d["TRANSLUCENCY_LIGHTING_SURFACE_FORWARDSHADING"] = "1"
		}
	}

	d["MATERIAL_TWOSIDED"] = boolDefine(props.TwoSided)
	d["MATERIAL_TANGENTSPACENORMAL"] = boolDefine(props.TangentSpaceNormal)
	d["USE_DITHERED_LOD_TRANSITION_FROM_MATERIAL"] = boolDefine(props.DitheredLODTransition)

	if tr != nil {
		d["MATERIAL_USES_SCENE_COLOR_COPY"] = boolDefine(tr.UsesSceneColor)
		d["MATERIAL_USES_PIXEL_DEPTH"] = boolDefine(tr.UsesPixelDepth)
		d["MATERIAL_MODIFIES_MESH_POSITION"] = boolDefine(tr.UsesVertexPosition)
	}

	out := make([]string, 0, len(d))
	for k, v := range d {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func boolDefine(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
