package utils

// #include <stdlib.h>
// #include "gdal.h"
// #include "cpl_conv.h"
// #include "cpl_error.h"
// #include "cpl_string.h"
// #cgo pkg-config: gdal
import "C"

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"unsafe"
)

type Raster interface {
	GetNoData() float64
	Shape() Shape
}

type ByteRaster struct {
	Data          []uint8
	Height, Width int
	NoData        float64
}

func (r *ByteRaster) GetNoData() float64 {
	return r.NoData
}

func (r *ByteRaster) Shape() Shape {
	return Shape{Height: r.Height, Width: r.Width}
}

type Int16Raster struct {
	Data          []int16
	Height, Width int
	NoData        float64
}

func (r *Int16Raster) GetNoData() float64 {
	return r.NoData
}

func (r *Int16Raster) Shape() Shape {
	return Shape{Height: r.Height, Width: r.Width}
}

type UInt16Raster struct {
	Data          []uint16
	Height, Width int
	NoData        float64
}

func (r *UInt16Raster) GetNoData() float64 {
	return r.NoData
}

func (r *UInt16Raster) Shape() Shape {
	return Shape{Height: r.Height, Width: r.Width}
}

type Float32Raster struct {
	Data          []float32
	Height, Width int
	NoData        float64
}

func (r *Float32Raster) GetNoData() float64 {
	return r.NoData
}

func (r *Float32Raster) Shape() Shape {
	return Shape{Height: r.Height, Width: r.Width}
}

// EncodePNG renders one band as grey or three bands as an opaque RGB
// quicklook. Pixels that are 0 in every band stay transparent.
func EncodePNG(br []*ByteRaster) ([]byte, error) {
	if len(br) == 0 || br[0] == nil {
		return nil, fmt.Errorf("no bands to encode")
	}
	buf := new(bytes.Buffer)
	canvas := image.NewRGBA(image.Rect(0, 0, br[0].Width, br[0].Height))

	switch len(br) {
	case 1:
		for i, value := range br[0].Data {
			if value != 0 {
				canvas.Pix[i*4] = value
				canvas.Pix[i*4+1] = value
				canvas.Pix[i*4+2] = value
				canvas.Pix[i*4+3] = 0xff
			}
		}

	case 3:
		rasterR := br[0]
		rasterG := br[1]
		rasterB := br[2]

		if rasterR == nil || rasterG == nil || rasterB == nil {
			return nil, fmt.Errorf("At least one of the bands is nil")
		}
		if rasterG.Shape() != rasterR.Shape() || rasterB.Shape() != rasterR.Shape() {
			return nil, &ShapeMismatchError{What: "png encoder", Want: rasterR.Shape(), Got: rasterG.Shape()}
		}

		var start int
		for i := 0; i < rasterR.Width*rasterR.Height; i++ {
			if rasterR.Data[i] != 0 || rasterG.Data[i] != 0 || rasterB.Data[i] != 0 {
				start = i * 4
				canvas.Pix[start] = rasterR.Data[i]
				canvas.Pix[start+1] = rasterG.Data[i]
				canvas.Pix[start+2] = rasterB.Data[i]
				canvas.Pix[start+3] = 0xff
			}
		}

	default:
		return nil, fmt.Errorf("Cannot encode other than 1 or 3 bands into a PNG: Received %d", len(br))
	}

	err := png.Encode(buf, canvas)

	return buf.Bytes(), err
}

func rasterTypeName(r Raster) (string, error) {
	switch r.(type) {
	case *ByteRaster:
		return "Byte", nil
	case *Int16Raster:
		return "Int16", nil
	case *UInt16Raster:
		return "UInt16", nil
	case *Float32Raster:
		return "Float32", nil
	default:
		return "", fmt.Errorf("Raster type not implemented")
	}
}

// ValidateRasterSlice checks that every raster shares one type and one shape.
func ValidateRasterSlice(rs []Raster) (int, int, string, error) {
	var shape Shape
	var rasterType string

	if len(rs) == 0 {
		return 0, 0, "", fmt.Errorf("empty raster slice")
	}

	for i, r := range rs {
		if r == nil {
			return 0, 0, "", fmt.Errorf("raster %d is nil", i)
		}
		rType, err := rasterTypeName(r)
		if err != nil {
			return 0, 0, "", err
		}
		if err := CheckRaster(r); err != nil {
			return 0, 0, "", err
		}

		if i == 0 {
			rasterType = rType
			shape = r.Shape()
			continue
		}
		if rType != rasterType {
			return 0, 0, "", fmt.Errorf("Mixed types: %s and %s", rasterType, rType)
		}
		if r.Shape() != shape {
			return 0, 0, "", &ShapeMismatchError{What: fmt.Sprintf("raster %d", i), Want: shape, Got: r.Shape()}
		}
	}
	return shape.Width, shape.Height, rasterType, nil
}

var GDALTypes = map[string]C.GDALDataType{"Unkown": 0, "Byte": 1, "UInt16": 2, "Int16": 3,
	"UInt32": 4, "Int32": 5, "Float32": 6, "Float64": 7,
	"CInt16": 8, "CInt32": 9, "CFloat32": 10, "CFloat64": 11,
	"TypeCount": 12}

func lastGdalError() string {
	msg := C.GoString(C.CPLGetLastErrorMsg())
	if msg == "" {
		return "unknown GDAL error"
	}
	return msg
}

// DriverAvailable reports whether the GDAL shared library was built with
// the named driver.
func DriverAvailable(name string) bool {
	C.GDALAllRegister()
	nameC := C.CString(name)
	defer C.free(unsafe.Pointer(nameC))
	return C.GDALGetDriverByName(nameC) != nil
}

// WriteRaster writes rs to dstPath with the metadata of profile.
// Bands are staged in a temporary file next to dstPath which replaces
// dstPath only once every band has been written and the dataset closed.
func WriteRaster(dstPath string, profile Profile, rs []Raster) error {
	w, h, rType, err := ValidateRasterSlice(rs)
	if err != nil {
		return &WriteError{Path: dstPath, Err: fmt.Errorf("Error validating raster %w", err)}
	}
	if w != profile.Width || h != profile.Height {
		return &WriteError{Path: dstPath, Err: &ShapeMismatchError{What: "profile", Want: profile.Shape(), Got: Shape{Height: h, Width: w}}}
	}
	if len(rs) != profile.Count {
		return &WriteError{Path: dstPath, Err: fmt.Errorf("profile declares %d bands, received %d", profile.Count, len(rs))}
	}
	if rType != profile.DataType {
		return &WriteError{Path: dstPath, Err: fmt.Errorf("profile declares %s data, received %s", profile.DataType, rType)}
	}

	base := filepath.Base(dstPath)
	tempFileHandle, err := os.CreateTemp(filepath.Dir(dstPath), "."+base+"-*"+filepath.Ext(base))
	if err != nil {
		return &WriteError{Path: dstPath, Err: fmt.Errorf("failed to create raster temp file: %w", err)}
	}
	tempFile := tempFileHandle.Name()
	tempFileHandle.Close()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tempFile)
		}
	}()

	if err = encodeGdal(tempFile, profile, rs); err != nil {
		return &WriteError{Path: dstPath, Err: err}
	}

	if err = os.Chmod(tempFile, 0644); err != nil {
		return &WriteError{Path: dstPath, Err: err}
	}
	if err = os.Rename(tempFile, dstPath); err != nil {
		return &WriteError{Path: dstPath, Err: err}
	}
	committed = true
	return nil
}

// WriteFile replaces dstPath with data the way WriteRaster does.
func WriteFile(dstPath string, data []byte) error {
	base := filepath.Base(dstPath)
	tempFileHandle, err := os.CreateTemp(filepath.Dir(dstPath), "."+base+"-*")
	if err != nil {
		return &WriteError{Path: dstPath, Err: err}
	}
	tempFile := tempFileHandle.Name()

	_, err = tempFileHandle.Write(data)
	if cerr := tempFileHandle.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tempFile, 0644)
	}
	if err == nil {
		err = os.Rename(tempFile, dstPath)
	}
	if err != nil {
		os.Remove(tempFile)
		return &WriteError{Path: dstPath, Err: err}
	}
	return nil
}

func encodeGdal(path string, profile Profile, rs []Raster) error {
	C.GDALAllRegister()

	driverNameC := C.CString(profile.Driver)
	defer C.free(unsafe.Pointer(driverNameC))
	hDriver := C.GDALGetDriverByName(driverNameC)
	if hDriver == nil {
		return fmt.Errorf("GDAL driver %s is not available", profile.Driver)
	}

	var opts **C.char
	for _, opt := range profile.CreationOptions {
		optC := C.CString(opt)
		opts = C.CSLAddString(opts, optC)
		C.free(unsafe.Pointer(optC))
	}
	defer C.CSLDestroy(opts)

	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	C.CPLErrorReset()
	hDstDS := C.GDALCreate(hDriver, pathC, C.int(profile.Width), C.int(profile.Height), C.int(len(rs)), GDALTypes[profile.DataType], opts)
	if hDstDS == nil {
		return fmt.Errorf("Error creating raster: %s", lastGdalError())
	}
	closed := false
	defer func() {
		if !closed {
			C.GDALClose(hDstDS)
		}
	}()

	if len(profile.ProjWKT) > 0 {
		projC := C.CString(profile.ProjWKT)
		defer C.free(unsafe.Pointer(projC))
		if C.GDALSetProjection(hDstDS, projC) != C.CE_None {
			return fmt.Errorf("Error setting projection: %s", lastGdalError())
		}
	}

	geot := profile.GeoTransform
	if C.GDALSetGeoTransform(hDstDS, (*C.double)(&geot[0])) != C.CE_None {
		return fmt.Errorf("Error setting geotransform: %s", lastGdalError())
	}

	for i, r := range rs {
		hBand := C.GDALGetRasterBand(hDstDS, C.int(i+1))
		if i < len(profile.ColorInterp) {
			ciC := C.CString(profile.ColorInterp[i])
			C.GDALSetRasterColorInterpretation(hBand, C.GDALGetColorInterpretationByName(ciC))
			C.free(unsafe.Pointer(ciC))
		}
		if profile.HasNoData {
			C.GDALSetRasterNoDataValue(hBand, C.double(profile.NoData))
		}

		if gerr := rasterIO(hBand, C.GF_Write, r); gerr != C.CE_None {
			return fmt.Errorf("Error writing raster band %d: %s", i+1, lastGdalError())
		}
	}

	closed = true
	C.CPLErrorReset()
	C.GDALClose(hDstDS)
	if C.CPLGetLastErrorType() >= C.CE_Failure {
		return fmt.Errorf("Error flushing raster: %s", lastGdalError())
	}
	return nil
}

func rasterIO(hBand C.GDALRasterBandH, flag C.GDALRWFlag, r Raster) C.CPLErr {
	switch t := r.(type) {
	case *ByteRaster:
		return C.GDALRasterIO(hBand, flag, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_Byte, 0, 0)
	case *Int16Raster:
		return C.GDALRasterIO(hBand, flag, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_Int16, 0, 0)
	case *UInt16Raster:
		return C.GDALRasterIO(hBand, flag, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_UInt16, 0, 0)
	case *Float32Raster:
		return C.GDALRasterIO(hBand, flag, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_Float32, 0, 0)
	default:
		return C.CE_Failure
	}
}
