// Package mapview models the map widget's state: one marker per listing,
// keyed by id, with in-place position updates and nearest-listing
// computation.
//
// The browser widget (web/static/js/map.js) keeps the same registry on
// its side; this package backs the initial view payload and the
// server-side nearest endpoint, and pins down the update semantics the
// client mirrors.
package mapview

import (
	"restaura/internal/events"
	"restaura/internal/geo"
)

// Marker is one rendered listing on the map. Coordinates are GeoJSON
// order, [longitude, latitude].
type Marker struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	Coordinates [2]float64 `json:"coordinates"`
	Current     bool       `json:"current"`
}

// Point returns the marker position as a geo.Point.
func (m Marker) Point() geo.Point {
	return geo.Point{Lat: m.Coordinates[1], Lon: m.Coordinates[0]}
}

// View owns the id-to-marker registry. Markers enter on render and leave
// on unmount; updates for ids outside the registry are no-ops.
type View struct {
	currentID string
	center    geo.Point
	order     []string
	markers   map[string]*Marker
}

// New creates a view centered on the given point. currentID marks the
// listing rendered with the highlighted glyph; it may be empty on index
// views.
func New(currentID string, center geo.Point) *View {
	return &View{
		currentID: currentID,
		center:    center,
		markers:   make(map[string]*Marker),
	}
}

// Add renders a marker into the registry. Re-adding an id replaces the
// marker in place without changing scan order.
func (v *View) Add(m Marker) {
	m.Current = m.ID == v.currentID
	if _, ok := v.markers[m.ID]; !ok {
		v.order = append(v.order, m.ID)
	}
	v.markers[m.ID] = &m
	if m.Current {
		v.center = m.Point()
	}
}

// Remove unmounts a marker. Unknown ids are ignored.
func (v *View) Remove(id string) {
	if _, ok := v.markers[id]; !ok {
		return
	}
	delete(v.markers, id)
	for i, mid := range v.order {
		if mid == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// ApplyUpdate moves a marker in response to a location event and reports
// whether anything changed. Updates for ids not in the registry, or with
// missing coordinates, are skipped without error. When the updated
// listing is the current one the view re-centers on it.
func (v *View) ApplyUpdate(u events.LocationUpdate) bool {
	m, ok := v.markers[u.ID]
	if !ok || len(u.Coordinates) != 2 {
		return false
	}

	m.Coordinates = [2]float64{u.Coordinates[0], u.Coordinates[1]}
	if u.Title != "" {
		m.Title = u.Title
	}
	if u.Location != "" {
		m.Location = u.Location
	}

	if u.ID == v.currentID {
		v.center = m.Point()
	}
	return true
}

// Nearest returns the marker closest to the user, scanning in render
// order with a strict less-than so ties keep the first-seen marker. ok is
// false when the view is empty.
func (v *View) Nearest(user geo.Point) (Marker, float64, bool) {
	points := make([]geo.Point, len(v.order))
	for i, id := range v.order {
		points[i] = v.markers[id].Point()
	}

	idx, dist := geo.Nearest(user, points)
	if idx < 0 {
		return Marker{}, 0, false
	}
	return *v.markers[v.order[idx]], dist, true
}

// Markers lists the rendered markers in render order.
func (v *View) Markers() []Marker {
	out := make([]Marker, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, *v.markers[id])
	}
	return out
}

// Center returns the current view center.
func (v *View) Center() geo.Point {
	return v.center
}

// CurrentID returns the highlighted listing id, if any.
func (v *View) CurrentID() string {
	return v.currentID
}
