// Package crs models the coordinate reference system collaborator: a Proj4
// definition split into named parameters plus the bounding box helpers used by
// the GeoTIFF tags.
package crs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrEmptyDefinition = errors.New("crs: empty proj4 definition")

// LongLat is the proj name of geographic systems
const LongLat = "longlat"

// CRS is a parsed Proj4 definition
type CRS struct {
	code   string
	def    string
	params map[string]string
}

// ParseProj4 splits "+proj=lcc +lat_1=49 +no_defs" style definitions. Flags
// without a value are stored with an empty value.
func ParseProj4(def string) (*CRS, error) {
	def = strings.TrimSpace(def)
	if def == "" {
		return nil, ErrEmptyDefinition
	}
	c := &CRS{def: def, params: map[string]string{}}
	for _, field := range strings.Fields(def) {
		field = strings.TrimPrefix(field, "+")
		if field == "" {
			continue
		}
		k, v, _ := strings.Cut(field, "=")
		c.params[k] = v
	}
	if _, ok := c.params["proj"]; !ok {
		return nil, fmt.Errorf("crs: missing proj in %q", def)
	}
	return c, nil
}

// MustParseProj4 is ParseProj4 for static definitions
func MustParseProj4(def string) *CRS {
	c, err := ParseProj4(def)
	if err != nil {
		panic(err)
	}
	return c
}

// WithCode names the CRS (e.g. "EPSG:2154"); the name is informational.
func (c *CRS) WithCode(code string) *CRS {
	c.code = code
	return c
}

func (c *CRS) Code() string {
	if c == nil {
		return ""
	}
	return c.code
}

// Proj4 returns the definition as given.
func (c *CRS) Proj4() string {
	if c == nil {
		return ""
	}
	return c.def
}

// Proj returns the proj identifier, "" for a nil CRS.
func (c *CRS) Proj() string {
	if c == nil {
		return ""
	}
	return c.params["proj"]
}

// Param returns a named parameter or "" when absent.
func (c *CRS) Param(name string) string {
	if c == nil {
		return ""
	}
	return c.params[name]
}

// Has reports whether the definition names the parameter.
func (c *CRS) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.params[name]
	return ok
}

// Float parses a numeric parameter.
func (c *CRS) Float(name string) (float64, error) {
	v := c.Param(name)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("crs: parameter %s=%q: %w", name, v, err)
	}
	return f, nil
}

// Floats parses a comma separated numeric parameter such as towgs84.
func (c *CRS) Floats(name string) ([]float64, error) {
	v := c.Param(name)
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("crs: parameter %s=%q: %w", name, v, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// IsLongLat reports a geographic system.
func (c *CRS) IsLongLat() bool {
	return c.Proj() == LongLat || c.Proj() == "latlong"
}

func (c *CRS) String() string {
	if c == nil {
		return ""
	}
	if c.code != "" {
		return c.code
	}
	return c.def
}

// BBox is an axis aligned extent in CRS units
type BBox struct {
	XMin, YMin, XMax, YMax float64
}

func (b BBox) Width() float64  { return b.XMax - b.XMin }
func (b BBox) Height() float64 { return b.YMax - b.YMin }

// ParseBBox reads "xmin,ymin,xmax,ymax".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("crs: bbox %q needs 4 values", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("crs: bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := BBox{v[0], v[1], v[2], v[3]}
	if b.XMax <= b.XMin || b.YMax <= b.YMin {
		return BBox{}, fmt.Errorf("crs: bbox %q is empty", s)
	}
	return b, nil
}
