package tiff

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/jpfielding/rok4tile.go/pkg/crs"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

// GeoTagsSize is the size of the five GeoTIFF IFD entries
const GeoTagsSize = 5 * entrySize

var ErrUnsupportedProjection = errors.New("tiff: projection not supported by geotiff")

type geoKey struct {
	id, location, count, value uint16
}

// geoKeys accumulates the GeoKeyDirectory and its double and ascii params.
type geoKeys struct {
	keys    []geoKey
	doubles []float64
	ascii   strings.Builder
	seen    map[uint16]bool
}

func (g *geoKeys) has(id uint16) bool { return g.seen[id] }

func (g *geoKeys) add(k geoKey) {
	if g.seen == nil {
		g.seen = map[uint16]bool{}
	}
	g.seen[k.id] = true
	g.keys = append(g.keys, k)
}

func (g *geoKeys) short(id, v uint16) {
	g.add(geoKey{id: id, count: 1, value: v})
}

func (g *geoKeys) double(id uint16, vals ...float64) {
	g.add(geoKey{id: id, location: TagGeoDoubleParams, count: uint16(len(vals)), value: uint16(len(g.doubles))})
	g.doubles = append(g.doubles, vals...)
}

func (g *geoKeys) text(id uint16, s string) {
	s = strings.ReplaceAll(s, "|", " ") + "|"
	g.add(geoKey{id: id, location: TagGeoAsciiParams, count: uint16(len(s)), value: uint16(g.ascii.Len())})
	g.ascii.WriteString(s)
}

// param adds a double key from a proj4 parameter. Absent parameters are
// skipped silently, unparseable ones with a warning.
func (g *geoKeys) param(c *crs.CRS, name string, id uint16) {
	if !c.Has(name) || g.has(id) {
		return
	}
	v, err := c.Float(name)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		slog.Warn("geotiff parameter ignored", "param", name, "value", c.Param(name), "error", err)
		return
	}
	g.double(id, v)
}

// directory encodes the key records: version header, sorted keys and a
// terminating zero record.
func (g *geoKeys) directory() []uint16 {
	sort.SliceStable(g.keys, func(i, j int) bool { return g.keys[i].id < g.keys[j].id })
	out := make([]uint16, 0, 4*(len(g.keys)+2))
	out = append(out, 1, 1, 0, 0)
	for _, k := range g.keys {
		out = append(out, k.id, k.location, k.count, k.value)
	}
	out = append(out, 0, 0, 0, 0)
	out[3] = uint16(len(g.keys))
	return out
}

func selectProjection(c *crs.CRS) (string, projection, bool) {
	name := c.Proj()
	switch name {
	case "lcc":
		name = "lcc_1sp"
		if c.Has("lat_2") && c.Param("lat_2") != c.Param("lat_1") {
			name = "lcc_2sp"
		}
	case "stere":
		if lat, err := c.Float("lat_0"); err == nil && math.Abs(lat) == 90 {
			name = "stere_polar"
		}
	}
	p, ok := projections[name]
	return name, p, ok
}

// buildGeoKeys fills the three GeoTIFF side tables from a CRS.
func buildGeoKeys(c *crs.CRS) (*geoKeys, error) {
	g := &geoKeys{}
	var proj projection
	if !c.IsLongLat() {
		var ok bool
		if _, proj, ok = selectProjection(c); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedProjection, c.Proj())
		}
	}

	if c.IsLongLat() {
		g.short(keyModelType, modelGeographic)
	} else {
		g.short(keyModelType, modelProjected)
	}
	g.short(keyRasterType, rasterPixelArea)
	g.text(keyCitation, c.Proj4())

	// user defined geographic system described by its ellipsoid
	g.short(keyGeographic, userDefined)
	if c.Has("ellps") {
		g.text(keyGeogCitation, c.Param("ellps"))
	}
	g.short(keyDatum, userDefined)
	g.short(keyPrimeMerid, userDefined)
	g.short(keyAngularUnits, angularDegree)
	g.short(keyEllipsoid, userDefined)

	g.param(c, "a", keySemiMajor)
	g.param(c, "b", keySemiMinor)
	g.param(c, "rf", keyInvFlat)
	if e, ok := ellipsoids[c.Param("ellps")]; ok {
		if !g.has(keySemiMajor) {
			g.double(keySemiMajor, e[0])
		}
		if !g.has(keyInvFlat) && !g.has(keySemiMinor) {
			g.double(keyInvFlat, e[1])
		}
	}
	g.param(c, "pm", keyPMLong)
	if c.Has("towgs84") {
		if w, err := c.Floats("towgs84"); err == nil && (len(w) == 3 || len(w) == 7) {
			g.double(keyTOWGS84, w...)
		} else {
			slog.Warn("geotiff parameter ignored", "param", "towgs84", "value", c.Param("towgs84"), "error", err)
		}
	}

	if !c.IsLongLat() {
		g.short(keyProjectedCS, userDefined)
		g.short(keyProjection, userDefined)
		g.short(keyCoordTrans, proj.transform)
		g.short(keyLinearUnits, linearMetre)
		for _, p := range proj.params {
			g.param(c, p.name, p.key)
		}
	}
	return g, nil
}

// InsertGeoTags returns a copy of a prepared header extended with the
// ModelPixelScale, ModelTiepoint, GeoKeyDirectory, GeoDoubleParams and
// GeoAsciiParams tags. The five entries are inserted after the existing IFD
// entries, so every out of line value moves by GeoTagsSize, and the strip
// offset is set to the new header size.
//
// Without a CRS the header is returned unchanged; an unsupported projection
// returns the unchanged header with ErrUnsupportedProjection.
func InsertGeoTags(header []byte, geo *raster.Georef) ([]byte, error) {
	if geo == nil || geo.CRS.Proj() == "" {
		slog.Warn("no crs, geotiff tags skipped")
		return header, nil
	}
	keys, err := buildGeoKeys(geo.CRS)
	if err != nil {
		return header, err
	}

	old := HeaderOf(header)
	n, err := old.TagCount()
	if err != nil {
		return header, err
	}
	ifdEnd := entryOffset(n)
	if ifdEnd > len(header) {
		return header, fmt.Errorf("%w: %d entries in %d bytes", ErrOutOfBounds, n, len(header))
	}

	dir := keys.directory()
	ascii := keys.ascii.String()
	scaleAt := len(header) + GeoTagsSize
	tieAt := scaleAt + 3*8
	dirAt := tieAt + 6*8
	doublesAt := dirAt + 2*len(dir)
	asciiAt := doublesAt + 8*len(keys.doubles)
	total := asciiAt + len(ascii) + 1

	buf := make([]byte, total)
	copy(buf, header[:ifdEnd])
	copy(buf[ifdEnd+GeoTagsSize:], header[ifdEnd:])
	h := HeaderOf(buf)
	if err := h.setTagCount(n + 5); err != nil {
		return header, err
	}
	for i := 0; i < n; i++ {
		e, err := h.Entry(i)
		if err != nil {
			return header, err
		}
		if e.Inline() {
			continue
		}
		if err := h.putUint32(ValueOffset(i), e.Values[0]+GeoTagsSize); err != nil {
			return header, err
		}
	}

	geoEntries := []Entry{
		{Tag: TagModelPixelScale, Type: TypeDouble, Count: 3},
		{Tag: TagModelTiepoint, Type: TypeDouble, Count: 6},
		{Tag: TagGeoKeyDirectory, Type: TypeShort, Count: uint32(len(dir))},
		{Tag: TagGeoDoubleParams, Type: TypeDouble, Count: uint32(len(keys.doubles))},
		{Tag: TagGeoAsciiParams, Type: TypeASCII, Count: uint32(len(ascii) + 1)},
	}
	for i, at := range []int{scaleAt, tieAt, dirAt, doublesAt, asciiAt} {
		p := buf[ifdEnd+entrySize*i:]
		le.PutUint16(p[0:], geoEntries[i].Tag)
		le.PutUint16(p[2:], geoEntries[i].Type)
		le.PutUint32(p[4:], geoEntries[i].Count)
		le.PutUint32(p[8:], uint32(at))
	}

	putDoubles(buf[scaleAt:], geo.ResX, geo.ResY, 0)
	putDoubles(buf[tieAt:], 0, 0, 0, geo.BBox.XMin, geo.BBox.YMax, 0)
	for i, v := range dir {
		le.PutUint16(buf[dirAt+2*i:], v)
	}
	putDoubles(buf[doublesAt:], keys.doubles...)
	copy(buf[asciiAt:], ascii)

	if i, ok := h.Find(TagStripOffsets); ok {
		if err := h.putUint32(ValueOffset(i), uint32(total)); err != nil {
			return header, err
		}
	}
	return buf, nil
}

func putDoubles(p []byte, vals ...float64) {
	for i, v := range vals {
		le.PutUint64(p[8*i:], math.Float64bits(v))
	}
}
