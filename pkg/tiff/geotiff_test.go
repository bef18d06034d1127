package tiff

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/jpfielding/rok4tile.go/pkg/crs"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xtiff "golang.org/x/image/tiff"
)

const lambert93 = "+proj=lcc +lat_1=49 +lat_2=44 +lat_0=46.5 +lon_0=3 +x_0=700000 +y_0=6600000 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"

func georef(def string) *raster.Georef {
	return &raster.Georef{
		CRS:  crs.MustParseProj4(def),
		BBox: crs.BBox{XMin: 600000, YMin: 6700000, XMax: 600256, YMax: 6700256},
		ResX: 1, ResY: 1,
	}
}

// geoKeyMap decodes the key directory of a geotiff header.
func geoKeyMap(t *testing.T, buf []byte) map[uint16][4]uint16 {
	t.Helper()
	h := HeaderOf(buf)
	i, ok := h.Find(TagGeoKeyDirectory)
	require.True(t, ok)
	e, err := h.Entry(i)
	require.NoError(t, err)
	at := int(e.Values[0])
	n := int(binary.LittleEndian.Uint16(buf[at+6:]))
	out := map[uint16][4]uint16{}
	prev := uint16(0)
	for k := 1; k <= n; k++ {
		p := buf[at+8*k:]
		rec := [4]uint16{binary.LittleEndian.Uint16(p), binary.LittleEndian.Uint16(p[2:]), binary.LittleEndian.Uint16(p[4:]), binary.LittleEndian.Uint16(p[6:])}
		assert.Greater(t, rec[0], prev, "keys sorted")
		prev = rec[0]
		out[rec[0]] = rec
	}
	// terminating zero record
	assert.Equal(t, make([]byte, 8), buf[at+8*(n+1):at+8*(n+2)])
	return out
}

func geoDouble(t *testing.T, buf []byte, rec [4]uint16) float64 {
	t.Helper()
	h := HeaderOf(buf)
	i, ok := h.Find(TagGeoDoubleParams)
	require.True(t, ok)
	e, _ := h.Entry(i)
	at := int(e.Values[0]) + 8*int(rec[3])
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[at:]))
}

func TestInsertGeoTagsShiftsOffsets(t *testing.T) {
	for _, ch := range []int{1, 3, 4} {
		h, err := NewHeader(CompressionDeflate, raster.Uint, ch, 256, 256, 1000)
		require.NoError(t, err)
		before := h.Bytes()
		n, _ := h.TagCount()

		out, err := InsertGeoTags(before, georef(lambert93))
		require.NoError(t, err)
		g := HeaderOf(out)

		count, err := g.TagCount()
		require.NoError(t, err)
		assert.Equal(t, n+5, count)

		for i := 0; i < n; i++ {
			old, _ := h.Entry(i)
			now, _ := g.Entry(i)
			assert.Equal(t, old.Tag, now.Tag)
			if old.Tag == TagStripOffsets {
				assert.EqualValues(t, len(out), now.Values[0])
				continue
			}
			if old.Inline() {
				assert.Equal(t, old.Values, now.Values)
			} else {
				assert.Equal(t, old.Values[0]+GeoTagsSize, now.Values[0], "tag %d", old.Tag)
			}
		}
		// the shifted values still hold the same bytes
		dir, err := ReadDirectory(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Len(t, dir.Tags[TagBitsPerSample], ch)
		assert.EqualValues(t, 256, dir.First(TagImageWidth))
		assert.EqualValues(t, 1000, dir.First(TagStripByteCounts))
		assert.EqualValues(t, len(out), dir.First(TagStripOffsets))
	}
}

func TestInsertGeoTagsSize(t *testing.T) {
	h, err := NewHeader(CompressionNone, raster.Uint, 1, 4, 4, 16)
	require.NoError(t, err)
	out, err := InsertGeoTags(h.Bytes(), georef("+proj=longlat +ellps=WGS84 +no_defs"))
	require.NoError(t, err)

	keys := geoKeyMap(t, out)
	g := HeaderOf(out)
	i, _ := g.Find(TagGeoKeyDirectory)
	kd, _ := g.Entry(i)
	i, _ = g.Find(TagGeoDoubleParams)
	dp, _ := g.Entry(i)
	i, _ = g.Find(TagGeoAsciiParams)
	ap, _ := g.Entry(i)

	want := h.Len() + GeoTagsSize + 24 + 48 + 2*int(kd.Count) + 8*int(dp.Count) + int(ap.Count)
	assert.Equal(t, want, len(out))
	assert.EqualValues(t, 4*(len(keys)+2), kd.Count)
	assert.Equal(t, byte(0), out[len(out)-1])
}

func TestInsertGeoTagsLongLat(t *testing.T) {
	h, _ := NewHeader(CompressionNone, raster.Uint, 3, 4, 4, 48)
	out, err := InsertGeoTags(h.Bytes(), georef("+proj=longlat +a=6378137 +rf=298.257223563 +no_defs"))
	require.NoError(t, err)
	keys := geoKeyMap(t, out)

	assert.EqualValues(t, modelGeographic, keys[keyModelType][3])
	assert.EqualValues(t, rasterPixelArea, keys[keyRasterType][3])
	assert.EqualValues(t, userDefined, keys[keyGeographic][3])
	assert.EqualValues(t, angularDegree, keys[keyAngularUnits][3])
	assert.NotContains(t, keys, keyCoordTrans)
	assert.Equal(t, 6378137.0, geoDouble(t, out, keys[keySemiMajor]))
	assert.Equal(t, 298.257223563, geoDouble(t, out, keys[keyInvFlat]))

	// citation is the proj4 string
	g := HeaderOf(out)
	i, _ := g.Find(TagGeoAsciiParams)
	ap, _ := g.Entry(i)
	cit := keys[keyCitation]
	start := int(ap.Values[0]) + int(cit[3])
	assert.Equal(t, "+proj=longlat +a=6378137 +rf=298.257223563 +no_defs|", string(out[start:start+int(cit[2])]))

	// pixel scale and tiepoint
	i, _ = g.Find(TagModelTiepoint)
	tp, _ := g.Entry(i)
	at := int(tp.Values[0])
	assert.Equal(t, 600000.0, math.Float64frombits(binary.LittleEndian.Uint64(out[at+24:])))
	assert.Equal(t, 6700256.0, math.Float64frombits(binary.LittleEndian.Uint64(out[at+32:])))
}

func TestInsertGeoTagsLambert(t *testing.T) {
	h, _ := NewHeader(CompressionLZW, raster.Uint, 1, 4, 4, 10)
	out, err := InsertGeoTags(h.Bytes(), georef(lambert93))
	require.NoError(t, err)
	keys := geoKeyMap(t, out)

	assert.EqualValues(t, modelProjected, keys[keyModelType][3])
	assert.EqualValues(t, 8, keys[keyCoordTrans][3], "lcc with two parallels")
	assert.EqualValues(t, linearMetre, keys[keyLinearUnits][3])
	assert.Equal(t, 49.0, geoDouble(t, out, keys[keyStdParallel1]))
	assert.Equal(t, 44.0, geoDouble(t, out, keys[keyStdParallel2]))
	assert.Equal(t, 46.5, geoDouble(t, out, keys[keyFalseOriginLat]))
	assert.Equal(t, 3.0, geoDouble(t, out, keys[keyFalseOriginLong]))
	assert.Equal(t, 700000.0, geoDouble(t, out, keys[keyFalseOriginEast]))
	assert.Equal(t, 6600000.0, geoDouble(t, out, keys[keyFalseOriginNorth]))
	assert.Equal(t, 6378137.0, geoDouble(t, out, keys[keySemiMajor]), "from ellps")
	assert.EqualValues(t, 7, keys[keyTOWGS84][2])
}

func TestInsertGeoTagsProjectionTable(t *testing.T) {
	tests := []struct {
		def       string
		transform uint16
	}{
		{"+proj=lcc +lat_1=45 +lat_0=45 +lon_0=0 +k_0=0.9998 +x_0=0 +y_0=0", 9},
		{"+proj=tmerc +lat_0=0 +lon_0=3 +k=0.9996 +x_0=500000 +y_0=0", 1},
		{"+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +a=6378137 +b=6378137", 7},
		{"+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=37.5 +lon_0=-96", 11},
		{"+proj=aeqd +lat_0=90 +lon_0=0", 12},
		{"+proj=cass +lat_0=10 +lon_0=-61", 18},
		{"+proj=cea +lat_ts=30 +lon_0=0", 28},
		{"+proj=eqdc +lat_1=10 +lat_2=40 +lat_0=0 +lon_0=0", 13},
		{"+proj=eqc +lat_ts=0 +lon_0=0", 17},
		{"+proj=gnom +lat_0=90 +lon_0=0", 19},
		{"+proj=omerc +lat_0=4 +lonc=102.25 +alpha=323.0257905 +k=0.99984", 3},
		{"+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000", 10},
		{"+proj=mill +lat_0=0 +lon_0=0", 20},
		{"+proj=sterea +lat_0=52.15 +lon_0=5.38 +k=0.9999079", 16},
		{"+proj=ortho +lat_0=45 +lon_0=0", 21},
		{"+proj=poly +lat_0=0 +lon_0=-54", 22},
		{"+proj=robin +lon_0=0", 23},
		{"+proj=sinu +lon_0=0", 24},
		{"+proj=stere +lat_0=45 +lon_0=0 +k=1", 14},
		{"+proj=stere +lat_0=90 +lat_ts=70 +lon_0=-45", 15},
		{"+proj=vandg +lon_0=0", 25},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			h, _ := NewHeader(CompressionNone, raster.Uint, 1, 4, 4, 16)
			out, err := InsertGeoTags(h.Bytes(), georef(tt.def))
			require.NoError(t, err)
			keys := geoKeyMap(t, out)
			assert.Equal(t, tt.transform, keys[keyCoordTrans][3])
		})
	}
}

func TestInsertGeoTagsFallbacks(t *testing.T) {
	h, _ := NewHeader(CompressionNone, raster.Uint, 1, 4, 4, 16)

	out, err := InsertGeoTags(h.Bytes(), nil)
	require.NoError(t, err)
	assert.Equal(t, h.Bytes(), out)

	out, err = InsertGeoTags(h.Bytes(), &raster.Georef{})
	require.NoError(t, err)
	assert.Equal(t, h.Bytes(), out)

	out, err = InsertGeoTags(h.Bytes(), georef("+proj=healpix +lon_0=0"))
	assert.ErrorIs(t, err, ErrUnsupportedProjection)
	assert.Equal(t, h.Bytes(), out)
}

func TestInsertGeoTagsOmitsBadParameter(t *testing.T) {
	h, _ := NewHeader(CompressionNone, raster.Uint, 1, 4, 4, 16)
	out, err := InsertGeoTags(h.Bytes(), georef("+proj=tmerc +lat_0=0 +lon_0=east +k=0.9996 +x_0=500000 +y_0=0"))
	require.NoError(t, err)
	keys := geoKeyMap(t, out)
	assert.NotContains(t, keys, keyNatOriginLong)
	assert.Contains(t, keys, keyNatOriginLat)
	assert.Contains(t, keys, keyScaleAtNatOrigin)
}

func TestGeoTiffStillDecodes(t *testing.T) {
	w, ht := 8, 4
	payload := bytes.Repeat([]byte{10, 20, 30}, w*ht)
	h, _ := NewHeader(CompressionNone, raster.Uint, 3, w, ht, len(payload))
	out, err := InsertGeoTags(h.Bytes(), georef(lambert93))
	require.NoError(t, err)

	img, err := xtiff.Decode(bytes.NewReader(append(out, payload...)))
	require.NoError(t, err)
	r, g, b, _ := img.At(3, 2).RGBA()
	assert.EqualValues(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
}
