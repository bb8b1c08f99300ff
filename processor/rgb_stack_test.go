package processor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nci/bandstack/utils"
)

var testGeoTransform = [6]float64{144, 0.00025, 0, -35, 0, -0.00025}

const testWKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]`

func byteBand(height, width int, data ...uint8) *utils.ByteRaster {
	return &utils.ByteRaster{Data: data, Height: height, Width: width}
}

func requireGTiff(t *testing.T) {
	t.Helper()
	utils.InitGdal()
	if !utils.DriverAvailable("GTiff") {
		t.Skip("GDAL GTiff driver is unavailable. Skipping tests that write rasters")
	}
}

func testProfile(height, width int, dataType string) utils.Profile {
	return utils.Profile{
		Driver:       "GTiff",
		DataType:     dataType,
		Width:        width,
		Height:       height,
		Count:        1,
		GeoTransform: testGeoTransform,
		ProjWKT:      testWKT,
	}
}

func TestStackShapeMismatch(t *testing.T) {
	red := byteBand(2, 2, 1, 2, 3, 4)
	green := byteBand(2, 2, 5, 6, 7, 8)
	blue := byteBand(1, 4, 9, 10, 11, 12)

	stack, err := Stack(red, green, blue)
	if !errors.Is(err, utils.ErrShapeMismatch) {
		t.Fatalf("expecting ErrShapeMismatch, actual %v", err)
	}
	if stack != nil {
		t.Errorf("expecting no stack on error")
	}

	var sme *utils.ShapeMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("expecting *ShapeMismatchError, actual %T", err)
	}
	if sme.Want != red.Shape() || sme.Got != blue.Shape() {
		t.Errorf("mismatch shapes expecting (%v, %v), actual (%v, %v)", red.Shape(), blue.Shape(), sme.Want, sme.Got)
	}

	if _, err = Stack(red, nil, blue); err == nil {
		t.Errorf("nil band expecting error, actual nil")
	}
}

func TestStackOrder(t *testing.T) {
	red := byteBand(1, 2, 1, 2)
	green := byteBand(1, 2, 3, 4)
	blue := byteBand(1, 2, 5, 6)

	stack, err := Stack(red, green, blue)
	if err != nil {
		t.Fatalf("Stack failed: %v", err)
	}
	if diff := cmp.Diff([]*utils.ByteRaster{red, green, blue}, stack.Bands()); diff != "" {
		t.Errorf("bands out of order (-want +got):\n%s", diff)
	}
}

func TestWriteRGBRejectsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	stack, err := Stack(byteBand(1, 2, 1, 2), byteBand(1, 2, 3, 4), byteBand(1, 2, 5, 6))
	if err != nil {
		t.Fatalf("Stack failed: %v", err)
	}

	dst := filepath.Join(dir, "rgb.tif")
	err = WriteRGB(stack, testProfile(3, 3, "UInt16"), dst)
	if !errors.Is(err, utils.ErrShapeMismatch) {
		t.Errorf("profile of another shape expecting ErrShapeMismatch, actual %v", err)
	}

	err = WriteRGB(stack, testProfile(1, 2, "UInt16"), filepath.Join(dir, "rgb.png"))
	if !errors.Is(err, utils.ErrConfig) {
		t.Errorf("unsupported extension expecting ErrConfig, actual %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expecting no files written, found %d", len(entries))
	}
}

func TestWriteRGBUnwritableDestination(t *testing.T) {
	utils.InitGdal()
	dir := t.TempDir()
	stack, err := Stack(byteBand(1, 2, 1, 2), byteBand(1, 2, 3, 4), byteBand(1, 2, 5, 6))
	if err != nil {
		t.Fatalf("Stack failed: %v", err)
	}

	dst := filepath.Join(dir, "missing", "rgb.tif")
	err = WriteRGB(stack, testProfile(1, 2, "UInt16"), dst)
	if !errors.Is(err, utils.ErrWrite) {
		t.Fatalf("missing directory expecting ErrWrite, actual %v", err)
	}
	var we *utils.WriteError
	if !errors.As(err, &we) || we.Path != dst {
		t.Errorf("write error expecting path %s, actual %v", dst, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expecting no files written, found %d", len(entries))
	}
}

func TestWriteRGBRoundTrip(t *testing.T) {
	requireGTiff(t)

	red := byteBand(2, 3, 0, 10, 20, 30, 40, 255)
	green := byteBand(2, 3, 1, 11, 21, 31, 41, 254)
	blue := byteBand(2, 3, 2, 12, 22, 32, 42, 253)
	stack, err := Stack(red, green, blue)
	if err != nil {
		t.Fatalf("Stack failed: %v", err)
	}

	profile := testProfile(2, 3, "UInt16")
	profile.HasNoData = true
	profile.NoData = 65535
	dst := filepath.Join(t.TempDir(), "rgb.tif")
	if err = WriteRGB(stack, profile, dst); err != nil {
		t.Fatalf("WriteRGB failed: %v", err)
	}

	rs, got, err := utils.ReadRaster(dst)
	if err != nil {
		t.Fatalf("ReadRaster failed: %v", err)
	}
	if len(rs) != 3 || got.Count != 3 {
		t.Fatalf("bands expecting 3, actual %d", len(rs))
	}
	if got.DataType != "Byte" {
		t.Errorf("data type expecting Byte, actual %s", got.DataType)
	}
	if got.GeoTransform != testGeoTransform {
		t.Errorf("geotransform expecting %v, actual %v", testGeoTransform, got.GeoTransform)
	}
	if got.ProjWKT == "" {
		t.Errorf("projection lost")
	}
	if got.HasNoData {
		t.Errorf("nodata 65535 must not carry over to a byte raster")
	}
	if diff := cmp.Diff(utils.RGBColorInterp, got.ColorInterp); diff != "" {
		t.Errorf("colour interpretation (-want +got):\n%s", diff)
	}
	for i, want := range stack.Bands() {
		if diff := cmp.Diff(want.Data, rs[i].(*utils.ByteRaster).Data); diff != "" {
			t.Errorf("band %d pixels (-want +got):\n%s", i+1, diff)
		}
	}

	// overwrite in place
	if err = WriteRGB(stack, profile, dst); err != nil {
		t.Errorf("overwriting failed: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Errorf("expecting only the output file, found %d entries", len(entries))
	}
}
