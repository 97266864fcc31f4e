package tileserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AllEmpty(t *testing.T) {
	expected := `TileServerOptions {
    base_url: "",
    uri_scheme_alias: "",
    source_template: "",
    source_domain_name: "",
    source_version_prefix: None,
    style_template: "",
    style_domain_name: "",
    style_version_prefix: None,
    sprites_template: "",
    sprites_domain_name: "",
    sprites_version_prefix: None,
    glyphs_template: "",
    glyphs_domain_name: "",
    glyphs_version_prefix: None,
    tile_template: "",
    tile_domain_name: "",
    tile_version_prefix: None,
    api_key_parameter_name: "",
    requires_api_key: false,
    default_style: "",
}`
	assert.Equal(t, expected, New().String())
}

func TestSetters(t *testing.T) {
	v1 := "/tiles1"
	opts := New().
		WithBaseURL("https://example.com").
		WithURISchemeAlias("example").
		WithSourceTemplate("/tiles/{domain}.json", "source_example", nil).
		WithStyleTemplate("{path}.json", "style_example", nil).
		WithSpritesTemplate("/{path}/sprite{scale}.{format}", "sprites_example", nil).
		WithGlyphsTemplate("/font/{fontstack}/{start}-{end}.pbf", "glyphs_example", nil).
		WithTileTemplate("/{path}", "tiles_example", &v1).
		WithAPIKeyParameterName("api-key").
		SetRequiresAPIKey(true).
		WithDefaultStyle("abc")

	assert.Equal(t, "https://example.com", opts.BaseURL)
	assert.Equal(t, "glyphs_example", opts.Glyphs.DomainName)
	assert.Contains(t, opts.String(), `tile_version_prefix: "/tiles1",`)
	assert.Contains(t, opts.String(), `style_version_prefix: None,`)
	assert.Contains(t, opts.String(), `requires_api_key: true,`)

	u, err := opts.TileURL("3/4/2.pbf", "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/tiles1/3/4/2.pbf?api-key=s3cr3t", u)
}

func TestPresets(t *testing.T) {
	maptiler, err := Preset("MapTiler")
	require.NoError(t, err)
	assert.Equal(t, "https://api.maptiler.com", maptiler.BaseURL)
	assert.Equal(t, "key", maptiler.APIKeyParameterName)

	u, err := maptiler.StyleURL("/basic", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, "https://api.maptiler.com/maps/basic/style.json?key=abcdef", u)

	_, err = maptiler.TileURL("/x", "")
	assert.ErrorContains(t, err, "requires an API key")

	mapbox, err := Preset("mapbox")
	require.NoError(t, err)
	u, err = mapbox.SourceURL("", "tok")
	require.NoError(t, err)
	assert.Equal(t, "https://api.mapbox.com/v4/.json?access_token=tok", u)

	maplibre, err := Preset("maplibre")
	require.NoError(t, err)
	u, err = maplibre.TileURL("tiles/3/4/2.pbf", "")
	require.NoError(t, err)
	assert.Equal(t, "https://demotiles.maplibre.org/tiles/3/4/2.pbf", u)

	// a leading slash on path is optional for every preset
	u, err = maplibre.TileURL("/1/1/0.pbf", "")
	require.NoError(t, err)
	assert.Equal(t, "https://demotiles.maplibre.org/1/1/0.pbf", u)
	u, err = maptiler.TileURL("1/1/0.pbf", "k")
	require.NoError(t, err)
	assert.Equal(t, "https://api.maptiler.com/1/1/0.pbf?key=k", u)

	// presets hand out independent copies
	maplibre.WithBaseURL("http://localhost:8080")
	fresh, _ := Preset("maplibre")
	assert.Equal(t, "https://demotiles.maplibre.org", fresh.BaseURL)

	_, err = Preset("osm")
	assert.ErrorContains(t, err, "want one of mapbox, maplibre, maptiler")
}

func TestExpand(t *testing.T) {
	assert.Equal(t, "/font/Open Sans/0-255.pbf",
		Expand("/font/{fontstack}/{start}-{end}.pbf", map[string]string{"fontstack": "Open Sans", "start": "0", "end": "255"}))
	assert.Equal(t, "/{unknown}", Expand("/{unknown}", map[string]string{"path": "x"}))
	assert.Equal(t, "{path}", Expand("{path}", nil))
}

func TestParseTileID(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  TileID
		expectErr bool
	}{
		{name: "root tile", input: "0/0/0", expected: TileID{}},
		{name: "regular tile", input: "3/4/2", expected: TileID{Z: 3, X: 4, Y: 2}},
		{name: "error - missing part", input: "3/4", expectErr: true},
		{name: "error - not a number", input: "3/a/2", expectErr: true},
		{name: "error - x out of range", input: "2/4/0", expectErr: true},
		{name: "error - negative zoom", input: "-1/0/0", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseTileID(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
			assert.Equal(t, tc.input, id.String())
		})
	}
}

func TestBoundsAndTileAt(t *testing.T) {
	w, s, e, n := TileID{}.Bounds()
	assert.InDelta(t, -180, w, 1e-9)
	assert.InDelta(t, 180, e, 1e-9)
	assert.InDelta(t, 85.0511287798, n, 1e-6)
	assert.InDelta(t, -85.0511287798, s, 1e-6)

	w, s, e, n = TileID{Z: 1, X: 1, Y: 0}.Bounds()
	assert.InDelta(t, 0, w, 1e-9)
	assert.InDelta(t, 0, s, 1e-9)
	assert.InDelta(t, 180, e, 1e-9)
	assert.InDelta(t, 85.0511287798, n, 1e-6)

	// Berlin
	assert.Equal(t, TileID{Z: 10, X: 550, Y: 335}, TileAt(13.4050, 52.5200, 10))
	assert.Equal(t, TileID{Z: 2, X: 3, Y: 3}, TileAt(180, -89.9, 2))
}
