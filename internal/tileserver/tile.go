package tileserver

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxZoom is the deepest zoom level accepted for tile addressing.
const MaxZoom = 30

// TileID addresses a web-mercator tile.
type TileID struct {
	Z, X, Y int
}

// ParseTileID parses "z/x/y".
func ParseTileID(s string) (TileID, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return TileID{}, fmt.Errorf("invalid tile %q: want z/x/y", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return TileID{}, fmt.Errorf("invalid tile %q: %w", s, err)
		}
		nums[i] = n
	}

	id := TileID{Z: nums[0], X: nums[1], Y: nums[2]}
	if err := id.Validate(); err != nil {
		return TileID{}, err
	}
	return id, nil
}

// Validate checks that x and y lie inside the grid of zoom z.
func (t TileID) Validate() error {
	if t.Z < 0 || t.Z > MaxZoom {
		return fmt.Errorf("invalid tile %s: zoom must be within 0..%d", t, MaxZoom)
	}
	n := 1 << t.Z
	if t.X < 0 || t.X >= n || t.Y < 0 || t.Y >= n {
		return fmt.Errorf("invalid tile %s: x and y must be within 0..%d", t, n-1)
	}
	return nil
}

func (t TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Bounds returns the west, south, east and north edges of the tile in degrees.
func (t TileID) Bounds() (west, south, east, north float64) {
	n := float64(int(1) << t.Z)
	west = float64(t.X)/n*360 - 180
	east = float64(t.X+1)/n*360 - 180
	north = tileLat(float64(t.Y), n)
	south = tileLat(float64(t.Y+1), n)
	return west, south, east, north
}

func tileLat(y, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y/n))) * 180 / math.Pi
}

// TileAt returns the tile containing the given longitude and latitude at zoom z.
func TileAt(lng, lat float64, z int) TileID {
	n := float64(int(1) << z)
	latRad := lat * math.Pi / 180

	x := int(math.Floor((lng + 180) / 360 * n))
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	maxIdx := int(n) - 1
	return TileID{Z: z, X: clamp(x, 0, maxIdx), Y: clamp(y, 0, maxIdx)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
