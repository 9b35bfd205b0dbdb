package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const exampleTOML = `[[bundles]]
internal_id = "{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"
internal_path = "fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"

[[prefabs]]
internal_id = "Assets/Share/Addressables/Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069.prefab"
internal_path = "Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069"
dependencies = ["{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"]
`

const exampleJSON = `{
  "bundles": [
    {
      "internal_id": "{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle",
      "internal_path": "fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"
    }
  ],
  "prefabs": [
    {
      "internal_id": "Assets/Share/Addressables/Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069.prefab",
      "internal_path": "Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069",
      "dependencies": [
        "{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"
      ]
    }
  ]
}`

func exampleEntries() *Entries {
	const bundle = "{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"
	return &Entries{
		Bundles: []BundleEntry{{
			InternalID:   bundle,
			InternalPath: "fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle",
		}},
		Prefabs: []PrefabEntry{{
			InternalID:   "Assets/Share/Addressables/Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069.prefab",
			InternalPath: "Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069",
			Dependencies: []string{bundle},
		}},
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatTOML, FormatFromPath("entries.toml"))
	assert.Equal(t, FormatJSON, FormatFromPath("entries.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("entries.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("entries.yaml"))
	assert.Equal(t, FormatTOML, FormatFromPath("entries"))
}

func TestDecodeEntries(t *testing.T) {
	tests := []struct {
		name   string
		format EntriesFormat
		data   string
	}{
		{name: "toml", format: FormatTOML, data: exampleTOML},
		{name: "json", format: FormatJSON, data: exampleJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEntries([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, exampleEntries(), got)
			assert.NoError(t, got.Validate())
		})
	}

	_, err := DecodeEntries([]byte("[[bundles]\n"), FormatTOML)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, format := range []EntriesFormat{FormatTOML, FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := exampleEntries().Encode(format)
			require.NoError(t, err)

			got, err := DecodeEntries(data, format)
			require.NoError(t, err)
			assert.Equal(t, exampleEntries(), got)
		})
	}
}

func TestLoadEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entries.json")
	require.NoError(t, os.WriteFile(path, []byte(exampleJSON), 0644))

	got, err := LoadEntries(path)
	require.NoError(t, err)
	assert.Len(t, got.Prefabs, 1)

	_, err = LoadEntries(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	e := &Entries{
		Bundles: []BundleEntry{
			{InternalID: "a.bundle", InternalPath: "a.bundle"},
			{InternalID: "a.bundle", InternalPath: ""},
		},
		Prefabs: []PrefabEntry{
			{InternalID: "", InternalPath: "x"},
			{InternalID: "B.prefab", InternalPath: "B", Dependencies: []string{"B.prefab"}},
		},
	}

	err := e.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 4)
	assert.Contains(t, err.Error(), "bundle 1: internal_path is empty")
	assert.Contains(t, err.Error(), "listed twice")
	assert.Contains(t, err.Error(), "prefab 0: internal_id is empty")
	assert.Contains(t, err.Error(), "depends on itself")
}
