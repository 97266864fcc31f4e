// Package tileserver describes where a tile server keeps its sources,
// styles, sprites, glyphs and tiles, and expands URL templates against it.
package tileserver

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Resource is one templated endpoint family of a tile server.
type Resource struct {
	Template      string
	DomainName    string
	VersionPrefix *string // nil when the server does not version this family
}

// Options configures a tile server. The zero value has every field empty.
type Options struct {
	BaseURL             string
	URISchemeAlias      string
	Source              Resource
	Style               Resource
	Sprites             Resource
	Glyphs              Resource
	Tile                Resource
	APIKeyParameterName string
	RequiresAPIKey      bool
	DefaultStyle        string
}

func prefix(s string) *string {
	return &s
}

// New returns options with every field empty.
func New() *Options {
	return &Options{}
}

// MapLibre returns the options of the MapLibre demo tile server.
func MapLibre() *Options {
	return &Options{
		BaseURL:        "https://demotiles.maplibre.org",
		URISchemeAlias: "maplibre",
		Source:         Resource{Template: "/tiles/{domain}.json"},
		Style:          Resource{Template: "{path}.json"},
		Sprites:        Resource{Template: "/{path}/sprite{scale}.{format}"},
		Glyphs:         Resource{Template: "/font/{fontstack}/{start}-{end}.pbf"},
		Tile:           Resource{Template: "/{path}"},
		DefaultStyle:   "Basic",
	}
}

// Mapbox returns the options of the Mapbox API.
func Mapbox() *Options {
	return &Options{
		BaseURL:             "https://api.mapbox.com",
		URISchemeAlias:      "mapbox",
		Source:              Resource{Template: "/{domain}.json", VersionPrefix: prefix("/v4")},
		Style:               Resource{Template: "/styles/v1{path}", DomainName: "styles"},
		Sprites:             Resource{Template: "/styles/v1{directory}{filename}/sprite{extension}", DomainName: "sprites"},
		Glyphs:              Resource{Template: "/fonts/v1{path}", DomainName: "fonts"},
		Tile:                Resource{Template: "{path}", DomainName: "tiles", VersionPrefix: prefix("/v4")},
		APIKeyParameterName: "access_token",
		RequiresAPIKey:      true,
		DefaultStyle:        "Streets",
	}
}

// MapTiler returns the options of the MapTiler API.
func MapTiler() *Options {
	return &Options{
		BaseURL:             "https://api.maptiler.com",
		URISchemeAlias:      "maptiler",
		Source:              Resource{Template: "/tiles{path}/tiles.json", DomainName: "sources"},
		Style:               Resource{Template: "/maps{path}/style.json", DomainName: "maps"},
		Sprites:             Resource{Template: "/maps{path}", DomainName: "sprites"},
		Glyphs:              Resource{Template: "/fonts{path}", DomainName: "fonts"},
		Tile:                Resource{Template: "{path}", DomainName: "tiles"},
		APIKeyParameterName: "key",
		RequiresAPIKey:      true,
		DefaultStyle:        "Streets",
	}
}

var presets = map[string]func() *Options{
	"maplibre": MapLibre,
	"mapbox":   Mapbox,
	"maptiler": MapTiler,
}

// PresetNames lists the names accepted by Preset.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh copy of the named preset.
func Preset(name string) (*Options, error) {
	fn, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown tile server preset %q (want one of %s)", name, strings.Join(PresetNames(), ", "))
	}
	return fn(), nil
}

func (o *Options) WithBaseURL(baseURL string) *Options {
	o.BaseURL = baseURL
	return o
}

func (o *Options) WithURISchemeAlias(alias string) *Options {
	o.URISchemeAlias = alias
	return o
}

func (o *Options) WithSourceTemplate(template, domainName string, versionPrefix *string) *Options {
	o.Source = Resource{Template: template, DomainName: domainName, VersionPrefix: versionPrefix}
	return o
}

func (o *Options) WithStyleTemplate(template, domainName string, versionPrefix *string) *Options {
	o.Style = Resource{Template: template, DomainName: domainName, VersionPrefix: versionPrefix}
	return o
}

func (o *Options) WithSpritesTemplate(template, domainName string, versionPrefix *string) *Options {
	o.Sprites = Resource{Template: template, DomainName: domainName, VersionPrefix: versionPrefix}
	return o
}

func (o *Options) WithGlyphsTemplate(template, domainName string, versionPrefix *string) *Options {
	o.Glyphs = Resource{Template: template, DomainName: domainName, VersionPrefix: versionPrefix}
	return o
}

func (o *Options) WithTileTemplate(template, domainName string, versionPrefix *string) *Options {
	o.Tile = Resource{Template: template, DomainName: domainName, VersionPrefix: versionPrefix}
	return o
}

func (o *Options) WithAPIKeyParameterName(name string) *Options {
	o.APIKeyParameterName = name
	return o
}

func (o *Options) SetRequiresAPIKey(required bool) *Options {
	o.RequiresAPIKey = required
	return o
}

// WithDefaultStyle sets the style loaded when none is requested.
func (o *Options) WithDefaultStyle(style string) *Options {
	o.DefaultStyle = style
	return o
}

// Expand substitutes every {name} placeholder of template found in vars.
// Unknown placeholders are left in place.
func Expand(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func (o *Options) resourceURL(r Resource, vars map[string]string, apiKey string) (string, error) {
	if o.RequiresAPIKey && apiKey == "" {
		return "", fmt.Errorf("tile server %s requires an API key", o.BaseURL)
	}

	u := o.BaseURL
	if r.VersionPrefix != nil {
		u += *r.VersionPrefix
	}
	u += cleanPath(Expand(r.Template, vars))

	if apiKey != "" && o.APIKeyParameterName != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + o.APIKeyParameterName + "=" + url.QueryEscape(apiKey)
	}
	return u, nil
}

// cleanPath gives an expanded template exactly one leading slash and no
// empty segments, since presets disagree on whether {path} carries the slash.
func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// TileURL builds the URL of the tile at path, e.g. "/tiles/3/4/2.pbf".
func (o *Options) TileURL(path, apiKey string) (string, error) {
	return o.resourceURL(o.Tile, map[string]string{"path": path, "domain": o.Tile.DomainName}, apiKey)
}

// StyleURL builds the URL of the style at path.
func (o *Options) StyleURL(path, apiKey string) (string, error) {
	return o.resourceURL(o.Style, map[string]string{"path": path, "domain": o.Style.DomainName}, apiKey)
}

// SourceURL builds the URL of the TileJSON source at path.
func (o *Options) SourceURL(path, apiKey string) (string, error) {
	return o.resourceURL(o.Source, map[string]string{"path": path, "domain": o.Source.DomainName}, apiKey)
}

func formatPrefix(p *string) string {
	if p == nil {
		return "None"
	}
	return fmt.Sprintf("%q", *p)
}

// String dumps every field, one per line.
func (o *Options) String() string {
	var b strings.Builder
	b.WriteString("TileServerOptions {\n")
	fmt.Fprintf(&b, "    base_url: %q,\n", o.BaseURL)
	fmt.Fprintf(&b, "    uri_scheme_alias: %q,\n", o.URISchemeAlias)
	for _, r := range []struct {
		name string
		res  Resource
	}{
		{"source", o.Source},
		{"style", o.Style},
		{"sprites", o.Sprites},
		{"glyphs", o.Glyphs},
		{"tile", o.Tile},
	} {
		fmt.Fprintf(&b, "    %s_template: %q,\n", r.name, r.res.Template)
		fmt.Fprintf(&b, "    %s_domain_name: %q,\n", r.name, r.res.DomainName)
		fmt.Fprintf(&b, "    %s_version_prefix: %s,\n", r.name, formatPrefix(r.res.VersionPrefix))
	}
	fmt.Fprintf(&b, "    api_key_parameter_name: %q,\n", o.APIKeyParameterName)
	fmt.Fprintf(&b, "    requires_api_key: %t,\n", o.RequiresAPIKey)
	fmt.Fprintf(&b, "    default_style: %q,\n", o.DefaultStyle)
	b.WriteString("}")
	return b.String()
}
