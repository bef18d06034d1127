package tiff

// GeoKey ids
const (
	keyModelType    uint16 = 1024
	keyRasterType   uint16 = 1025
	keyCitation     uint16 = 1026
	keyGeographic   uint16 = 2048
	keyGeogCitation uint16 = 2049
	keyDatum        uint16 = 2050
	keyPrimeMerid   uint16 = 2051
	keyAngularUnits uint16 = 2054
	keyEllipsoid    uint16 = 2056
	keySemiMajor    uint16 = 2057
	keySemiMinor    uint16 = 2058
	keyInvFlat      uint16 = 2059
	keyPMLong       uint16 = 2061
	keyTOWGS84      uint16 = 2062
	keyProjectedCS  uint16 = 3072
	keyProjection   uint16 = 3074
	keyCoordTrans   uint16 = 3075
	keyLinearUnits  uint16 = 3076

	keyStdParallel1     uint16 = 3078
	keyStdParallel2     uint16 = 3079
	keyNatOriginLong    uint16 = 3080
	keyNatOriginLat     uint16 = 3081
	keyFalseEasting     uint16 = 3082
	keyFalseNorthing    uint16 = 3083
	keyFalseOriginLong  uint16 = 3084
	keyFalseOriginLat   uint16 = 3085
	keyFalseOriginEast  uint16 = 3086
	keyFalseOriginNorth uint16 = 3087
	keyCenterLong       uint16 = 3088
	keyCenterLat        uint16 = 3089
	keyScaleAtNatOrigin uint16 = 3092
	keyScaleAtCenter    uint16 = 3093
	keyAzimuth          uint16 = 3094
	keyStraightVertPole uint16 = 3095
)

const (
	modelProjected  = 1
	modelGeographic = 2
	rasterPixelArea = 1
	userDefined     = 32767
	angularDegree   = 9102
	linearMetre     = 9001
)

type projParam struct {
	name string
	key  uint16
}

// projection maps a proj name to its coordinate transformation code and the
// proj4 parameters it carries, in key order.
type projection struct {
	transform uint16
	params    []projParam
}

var (
	falseEN = []projParam{{"x_0", keyFalseEasting}, {"y_0", keyFalseNorthing}}
	scaleK  = []projParam{{"k", keyScaleAtNatOrigin}, {"k_0", keyScaleAtNatOrigin}}
)

func params(groups ...[]projParam) []projParam {
	var out []projParam
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var projections = map[string]projection{
	"tmerc": {1, params([]projParam{{"lat_0", keyNatOriginLat}, {"lon_0", keyNatOriginLong}}, scaleK, falseEN)},
	"omerc": {3, params([]projParam{{"lat_0", keyCenterLat}, {"lonc", keyCenterLong}, {"alpha", keyAzimuth},
		{"k", keyScaleAtCenter}, {"k_0", keyScaleAtCenter}}, falseEN)},
	"merc": {7, params([]projParam{{"lat_ts", keyStdParallel1}, {"lat_0", keyNatOriginLat}, {"lon_0", keyNatOriginLong}}, scaleK, falseEN)},
	"lcc_2sp": {8, params([]projParam{{"lat_1", keyStdParallel1}, {"lat_2", keyStdParallel2},
		{"lat_0", keyFalseOriginLat}, {"lon_0", keyFalseOriginLong},
		{"x_0", keyFalseOriginEast}, {"y_0", keyFalseOriginNorth}})},
	"lcc_1sp": {9, params([]projParam{{"lat_1", keyNatOriginLat}, {"lat_0", keyNatOriginLat}, {"lon_0", keyNatOriginLong}}, scaleK, falseEN)},
	"laea":    {10, params([]projParam{{"lat_0", keyCenterLat}, {"lon_0", keyCenterLong}}, falseEN)},
	"aea": {11, params([]projParam{{"lat_1", keyStdParallel1}, {"lat_2", keyStdParallel2},
		{"lat_0", keyFalseOriginLat}, {"lon_0", keyFalseOriginLong},
		{"x_0", keyFalseOriginEast}, {"y_0", keyFalseOriginNorth}})},
	"aeqd": {12, params([]projParam{{"lat_0", keyCenterLat}, {"lon_0", keyCenterLong}}, falseEN)},
	"eqdc": {13, params([]projParam{{"lat_1", keyStdParallel1}, {"lat_2", keyStdParallel2},
		{"lat_0", keyCenterLat}, {"lon_0", keyCenterLong}}, falseEN)},
	"stere":       {14, params([]projParam{{"lat_0", keyNatOriginLat}, {"lon_0", keyNatOriginLong}}, scaleK, falseEN)},
	"stere_polar": {15, params([]projParam{{"lat_ts", keyNatOriginLat}, {"lat_0", keyNatOriginLat}, {"lon_0", keyStraightVertPole}}, scaleK, falseEN)},
	"sterea":      {16, params([]projParam{{"lat_0", keyNatOriginLat}, {"lon_0", keyNatOriginLong}}, scaleK, falseEN)},
	"eqc":         {17, params([]projParam{{"lat_ts", keyStdParallel1}, {"lat_0", keyCenterLat}, {"lon_0", keyCenterLong}}, falseEN)},
	"cass":        {18, params([]projParam{{"lat_0", keyNatOriginLat}, {"lon_0", keyNatOriginLong}}, falseEN)},
	"gnom":        {19, params([]projParam{{"lat_0", keyCenterLat}, {"lon_0", keyCenterLong}}, falseEN)},
	"mill":        {20, params([]projParam{{"lat_0", keyCenterLat}, {"lon_0", keyCenterLong}}, falseEN)},
	"ortho":       {21, params([]projParam{{"lat_0", keyCenterLat}, {"lon_0", keyCenterLong}}, falseEN)},
	"poly":        {22, params([]projParam{{"lat_0", keyNatOriginLat}, {"lon_0", keyNatOriginLong}}, falseEN)},
	"robin":       {23, params([]projParam{{"lon_0", keyCenterLong}}, falseEN)},
	"sinu":        {24, params([]projParam{{"lon_0", keyCenterLong}}, falseEN)},
	"vandg":       {25, params([]projParam{{"lon_0", keyCenterLong}}, falseEN)},
	"cea":         {28, params([]projParam{{"lat_ts", keyStdParallel1}, {"lon_0", keyNatOriginLong}}, falseEN)},
}

// ellipsoids lists semi major axis and inverse flattening of the +ellps
// names seen in pyramid descriptors.
var ellipsoids = map[string][2]float64{
	"GRS80":     {6378137, 298.257222101},
	"WGS84":     {6378137, 298.257223563},
	"intl":      {6378388, 297},
	"clrk80ign": {6378249.2, 293.4660212936269},
}
