package tileserver

import (
	"errors"
	"fmt"
	"strings"
)

// Limits of the headless map view.
const (
	MaxPixelRatio = 8
	MaxMapZoom    = 24
	MaxBearing    = 360
	MaxPitch      = 85
)

// MapOptions describes the headless map view a renderer is created with.
type MapOptions struct {
	Width    uint32
	Height   uint32
	Ratio    float64
	Zoom     float64
	Bearing  float64
	Pitch    float64
	Provider string // Substring of a preset name; empty means MapLibre
	Token    string
}

// DefaultMapOptions returns a 1024x1024 view at pixel ratio 1 on MapLibre.
func DefaultMapOptions() MapOptions {
	return MapOptions{Width: 1024, Height: 1024, Ratio: 1}
}

// ProviderPreset picks the preset whose name occurs in provider, so values
// like "maptiler-cloud" still select MapTiler.
func ProviderPreset(provider string) (*Options, error) {
	p := strings.ToLower(provider)
	switch {
	case p == "":
		return MapLibre(), nil
	case strings.Contains(p, "mapbox"):
		return Mapbox(), nil
	case strings.Contains(p, "maptiler"):
		return MapTiler(), nil
	case strings.Contains(p, "maplibre"):
		return MapLibre(), nil
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// TileServer returns the provider's tile server options.
func (m MapOptions) TileServer() (*Options, error) {
	return ProviderPreset(m.Provider)
}

// Validate reports every out-of-range field, and a missing token when the
// provider requires an API key.
func (m MapOptions) Validate() error {
	var errs []error
	if m.Width == 0 {
		errs = append(errs, errors.New("width must be greater than 0"))
	}
	if m.Height == 0 {
		errs = append(errs, errors.New("height must be greater than 0"))
	}
	if m.Ratio <= 0 {
		errs = append(errs, errors.New("ratio must be greater than 0"))
	} else if m.Ratio > MaxPixelRatio {
		errs = append(errs, fmt.Errorf("ratio must be no greater than %d", MaxPixelRatio))
	}
	if m.Zoom < 0 {
		errs = append(errs, errors.New("zoom must be at least 0"))
	} else if m.Zoom > MaxMapZoom {
		errs = append(errs, fmt.Errorf("zoom must be no greater than %d", MaxMapZoom))
	}
	if m.Bearing < 0 {
		errs = append(errs, errors.New("bearing must be at least 0"))
	} else if m.Bearing > MaxBearing {
		errs = append(errs, fmt.Errorf("bearing must be no greater than %d", MaxBearing))
	}
	if m.Pitch < 0 {
		errs = append(errs, errors.New("pitch must be at least 0"))
	} else if m.Pitch > MaxPitch {
		errs = append(errs, fmt.Errorf("pitch must be no greater than %d", MaxPitch))
	}

	tiles, err := m.TileServer()
	if err != nil {
		errs = append(errs, err)
	} else if tiles.RequiresAPIKey && m.Token == "" {
		errs = append(errs, fmt.Errorf("provider '%s' requires a token", m.Provider))
	}
	return errors.Join(errs...)
}

func (m MapOptions) String() string {
	provider := m.Provider
	if provider == "" {
		provider = "maplibre"
	}
	return fmt.Sprintf("%dx%d@%gx zoom=%g bearing=%g pitch=%g provider=%s",
		m.Width, m.Height, m.Ratio, m.Zoom, m.Bearing, m.Pitch, provider)
}
