package utils

// #include <stdlib.h>
// #include "gdal.h"
// #include "cpl_error.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"
)

var identityGeoTransform = [6]float64{0, 1, 0, 0, 0, 1}

// ReadBand decodes a single-band raster and its profile.
func ReadBand(path string) (Raster, Profile, error) {
	rs, profile, err := ReadRaster(path)
	if err != nil {
		return nil, Profile{}, err
	}
	if len(rs) != 1 {
		return nil, Profile{}, &DecodeError{Path: path, Err: fmt.Errorf("expecting a single-band raster, found %d bands", len(rs))}
	}
	return rs[0], profile, nil
}

// ReadRaster decodes every band of the dataset at path. All bands must
// share one data type.
func ReadRaster(path string) ([]Raster, Profile, error) {
	C.GDALAllRegister()

	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	C.CPLErrorReset()
	hDataset := C.GDALOpenEx(pathC, C.GDAL_OF_READONLY|C.GDAL_OF_RASTER|C.GDAL_OF_VERBOSE_ERROR, nil, nil, nil)
	if hDataset == nil {
		return nil, Profile{}, &DecodeError{Path: path, Err: fmt.Errorf("%s", lastGdalError())}
	}
	defer C.GDALClose(hDataset)

	profile := Profile{
		Driver:       C.GoString(C.GDALGetDriverShortName(C.GDALGetDatasetDriver(hDataset))),
		Width:        int(C.GDALGetRasterXSize(hDataset)),
		Height:       int(C.GDALGetRasterYSize(hDataset)),
		Count:        int(C.GDALGetRasterCount(hDataset)),
		ProjWKT:      C.GoString(C.GDALGetProjectionRef(hDataset)),
		GeoTransform: identityGeoTransform,
	}
	if profile.Count == 0 {
		return nil, Profile{}, &DecodeError{Path: path, Err: fmt.Errorf("dataset has no raster bands")}
	}

	var geot [6]C.double
	if C.GDALGetGeoTransform(hDataset, &geot[0]) == C.CE_None {
		for i := range geot {
			profile.GeoTransform[i] = float64(geot[i])
		}
	}

	rs := make([]Raster, profile.Count)
	for i := 0; i < profile.Count; i++ {
		hBand := C.GDALGetRasterBand(hDataset, C.int(i+1))
		rType := C.GoString(C.GDALGetDataTypeName(C.GDALGetRasterDataType(hBand)))
		if i == 0 {
			profile.DataType = rType
		} else if rType != profile.DataType {
			return nil, Profile{}, &DecodeError{Path: path, Err: fmt.Errorf("Mixed types: band 1 is %s, band %d is %s", profile.DataType, i+1, rType)}
		}

		var hasNoData C.int
		noData := float64(C.GDALGetRasterNoDataValue(hBand, &hasNoData))
		if i == 0 && hasNoData != 0 {
			profile.HasNoData = true
			profile.NoData = noData
		}
		ci := C.GDALGetRasterColorInterpretation(hBand)
		profile.ColorInterp = append(profile.ColorInterp, C.GoString(C.GDALGetColorInterpretationName(ci)))

		r, err := newRaster(rType, profile.Width, profile.Height, noData)
		if err != nil {
			return nil, Profile{}, &DecodeError{Path: path, Err: err}
		}
		if gerr := rasterIO(hBand, C.GF_Read, r); gerr != C.CE_None {
			return nil, Profile{}, &DecodeError{Path: path, Err: fmt.Errorf("Error reading raster band %d: %s", i+1, lastGdalError())}
		}
		rs[i] = r
	}

	return rs, profile, nil
}

func newRaster(rType string, width, height int, noData float64) (Raster, error) {
	size := width * height
	if size <= 0 {
		return nil, fmt.Errorf("empty raster %dx%d", height, width)
	}
	switch rType {
	case "Byte":
		return &ByteRaster{Data: make([]uint8, size), Width: width, Height: height, NoData: noData}, nil
	case "Int16":
		return &Int16Raster{Data: make([]int16, size), Width: width, Height: height, NoData: noData}, nil
	case "UInt16":
		return &UInt16Raster{Data: make([]uint16, size), Width: width, Height: height, NoData: noData}, nil
	case "Float32":
		return &Float32Raster{Data: make([]float32, size), Width: width, Height: height, NoData: noData}, nil
	default:
		return nil, fmt.Errorf("unsupported raster data type %s", rType)
	}
}
