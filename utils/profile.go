package utils

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Profile is the geospatial metadata shared by every band of a scene.
// It is handled as a value: derive a new one with Clone or ForRGB instead
// of editing the profile returned by a reader.
type Profile struct {
	Driver          string
	DataType        string
	Width, Height   int
	Count           int
	GeoTransform    [6]float64
	ProjWKT         string
	NoData          float64
	HasNoData       bool
	ColorInterp     []string
	CreationOptions []string
}

var RGBColorInterp = []string{"Red", "Green", "Blue"}

func (p Profile) Clone() Profile {
	out := p
	if p.ColorInterp != nil {
		out.ColorInterp = append([]string(nil), p.ColorInterp...)
	}
	if p.CreationOptions != nil {
		out.CreationOptions = append([]string(nil), p.CreationOptions...)
	}
	return out
}

// ForRGB returns the write-time profile of a 3-band byte RGB composite
// built from a scene with this profile. The transform and CRS carry over;
// a nodata value that cannot be represented in a byte is dropped.
func (p Profile) ForRGB(driver string) Profile {
	out := p.Clone()
	out.Driver = driver
	out.DataType = "Byte"
	out.Count = 3
	out.ColorInterp = append([]string(nil), RGBColorInterp...)

	if out.HasNoData && (math.IsNaN(out.NoData) || out.NoData < 0 || out.NoData > 255 || out.NoData != math.Trunc(out.NoData)) {
		out.HasNoData = false
		out.NoData = 0
	}

	var opts []string
	for _, opt := range out.CreationOptions {
		if !strings.HasPrefix(strings.ToUpper(opt), "PHOTOMETRIC=") {
			opts = append(opts, opt)
		}
	}
	if driver == "GTiff" {
		opts = append(opts, "PHOTOMETRIC=RGB")
	}
	out.CreationOptions = opts
	return out
}

func (p Profile) Shape() Shape {
	return Shape{Height: p.Height, Width: p.Width}
}

// SameGrid reports whether two profiles describe the same pixel grid:
// identical size, geotransform within tol and the same CRS.
func (p Profile) SameGrid(o Profile, tol float64) bool {
	if p.Width != o.Width || p.Height != o.Height {
		return false
	}
	for i := range p.GeoTransform {
		if math.Abs(p.GeoTransform[i]-o.GeoTransform[i]) > tol {
			return false
		}
	}
	return strings.TrimSpace(p.ProjWKT) == strings.TrimSpace(o.ProjWKT)
}

var driverExtensions = map[string]string{
	".tif":  "GTiff",
	".tiff": "GTiff",
	".nc":   "netCDF",
}

// DriverForPath picks the GDAL output driver from the destination extension.
func DriverForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	driver, ok := driverExtensions[ext]
	if !ok {
		return "", &ConfigError{Field: "output extension", Value: fmt.Sprintf("%q", ext), Reason: "supported extensions are .tif, .tiff and .nc"}
	}
	return driver, nil
}
