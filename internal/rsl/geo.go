package rsl

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

/*------------------------------------------------------------------
 * Purpose: Optional BTS site geodesy. Not required by TS 08.58, but
 * site surveys arrive in UTM often enough that converting them and
 * computing inter-site distances is worth carrying here.
 *
 * A BTS's surveyed site, when configured, lets the measurement-report
 * ingest path (measurement.go) log how far every other surveyed BTS
 * sits from the serving cell when a report carries neighbour cells; the
 * reported neighbours themselves are not matched to BTSs. Useful context
 * for the handover layer even though this controller never decides
 * handover itself.
 *---------------------------------------------------------------*/

const earthRadiusMeters = 6371000.0

// Site is a BTS's surveyed geographic location.
type Site struct {
	LatLng s2.LatLng
}

// NewSiteFromDegrees builds a Site from plain decimal-degree coordinates.
func NewSiteFromDegrees(latDeg, lonDeg float64) Site {
	return Site{LatLng: s2.LatLngFromDegrees(latDeg, lonDeg)}
}

// NewSiteFromUTM converts surveyor-supplied UTM coordinates into a Site.
func NewSiteFromUTM(zone int, hemisphere coordconv.Hemisphere, easting, northing float64) (Site, error) {
	utm := coordconv.UTMCoord{Zone: zone, Hemisphere: hemisphere, Easting: easting, Northing: northing}
	ll, err := coordconv.DefaultUTMConverter.ConvertToGeodetic(utm)
	if err != nil {
		return Site{}, err
	}
	return Site{LatLng: ll}, nil
}

// hemisphereFromString maps a config file's "N"/"S" onto
// coordconv.Hemisphere.
func hemisphereFromString(s string) coordconv.Hemisphere {
	switch s {
	case "N", "n":
		return coordconv.HemisphereNorth
	case "S", "s":
		return coordconv.HemisphereSouth
	default:
		return coordconv.HemisphereInvalid
	}
}

// DistanceMeters returns the great-circle distance between two sites.
func DistanceMeters(a, b Site) float64 {
	return float64(a.LatLng.Distance(b.LatLng)) * earthRadiusMeters
}

// distanceAngle exists purely so callers that want the raw angle (e.g.
// for further s1.Angle arithmetic) don't need to reach into s2 directly.
func distanceAngle(a, b Site) s1.Angle {
	return a.LatLng.Distance(b.LatLng)
}
