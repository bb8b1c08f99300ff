package utils

// #include "gdal.h"
// #include "gdal_frmts.h"
// #cgo pkg-config: gdal
import "C"

import (
	"os"
	"sync"
)

var gdalInitOnce sync.Once

// InitGdal sets conservative GDAL defaults for reading single-band scene
// files over the network and registers the drivers used by the pipeline
// ahead of the rest. Only the first call has any effect.
func InitGdal() {
	gdalInitOnce.Do(func() {
		setDefaultEnv("GDAL_PAM_ENABLED", "NO")
		setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
		setDefaultEnv("CPL_VSIL_CURL_ALLOWED_EXTENSIONS", ".TIF,.tif,.tiff")
		setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "10")

		registerGDALDrivers()
	})
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}

func registerGDALDrivers() {
	// Drivers are interrogated in a linear scan on open, so the scene
	// format goes first.
	var haveGTiff, haveNetCDF bool

	C.GDALAllRegister()
	for i := 0; i < int(C.GDALGetDriverCount()); i++ {
		driver := C.GDALGetDriver(C.int(i))
		switch C.GoString(C.GDALGetDriverShortName(driver)) {
		case "GTiff":
			haveGTiff = true
		case "netCDF":
			haveNetCDF = true
		}
	}

	for C.GDALGetDriverCount() > 0 {
		C.GDALDeregisterDriver(C.GDALGetDriver(0))
	}

	if haveGTiff {
		C.GDALRegister_GTiff()
	}
	if haveNetCDF {
		C.GDALRegister_netCDF()
	}
	C.GDALAllRegister()
}
