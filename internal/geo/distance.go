package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/maptile"
)

// TileZoom is the slippy-map zoom level used to bucket stops.
// A zoom 14 tile is roughly 2.4 km wide at the equator.
const TileZoom maptile.Zoom = 14

// Haversine returns the great-circle distance in meters between two lat/lon points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// BoundAround returns the bounding box containing every point within
// radiusMeters of the given point.
func BoundAround(lat, lon, radiusMeters float64) orb.Bound {
	return geo.NewBoundAroundPoint(orb.Point{lon, lat}, radiusMeters)
}

// TileID packs the zoom 14 tile containing the point into a single id.
func TileID(lat, lon float64) uint32 {
	t := maptile.At(orb.Point{lon, lat}, TileZoom)
	return t.X<<uint(TileZoom) | t.Y
}

// TilesCovering returns the ids of all zoom 14 tiles intersecting the bound.
func TilesCovering(b orb.Bound) []uint32 {
	a := maptile.At(b.Min, TileZoom)
	c := maptile.At(b.Max, TileZoom)

	minX, maxX := a.X, c.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	// tile rows grow southwards
	minY, maxY := c.Y, a.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	var ids []uint32
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			ids = append(ids, x<<uint(TileZoom)|y)
		}
	}
	return ids
}
