package utils

import (
	"encoding/xml"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type parsedVRT struct {
	XSize        int    `xml:"rasterXSize,attr"`
	YSize        int    `xml:"rasterYSize,attr"`
	SRS          string `xml:"SRS"`
	GeoTransform string `xml:"GeoTransform"`
	Bands        []struct {
		Band        int    `xml:"band,attr"`
		DataType    string `xml:"dataType,attr"`
		ColorInterp string `xml:"ColorInterp"`
		Source      string `xml:"SimpleSource>SourceFilename"`
	} `xml:"VRTRasterBand"`
}

func TestRenderSourceVRT(t *testing.T) {
	profile := Profile{
		DataType:     "UInt16",
		Width:        7611,
		Height:       7761,
		GeoTransform: [6]float64{381885, 30, 0, 2162415, 0, -30},
		ProjWKT:      `PROJCS["WGS 84 / UTM zone 45N",AUTHORITY["EPSG","32645"]]`,
	}
	dir := t.TempDir()
	sources := []VRTSource{
		{Path: filepath.Join(dir, "red.tif"), ColorInterp: "Red"},
		{Path: filepath.Join(dir, "green & co.tif"), ColorInterp: "Green"},
		{Path: filepath.Join(dir, "blue.tif")},
	}

	out, err := RenderSourceVRT(profile, sources)
	if err != nil {
		t.Fatalf("RenderSourceVRT failed: %v", err)
	}

	var vrt parsedVRT
	if err = xml.Unmarshal(out, &vrt); err != nil {
		t.Fatalf("rendered VRT is not valid XML: %v\n%s", err, out)
	}
	if vrt.XSize != 7611 || vrt.YSize != 7761 {
		t.Errorf("size expecting 7611x7761, actual %dx%d", vrt.XSize, vrt.YSize)
	}
	if vrt.SRS != profile.ProjWKT {
		t.Errorf("SRS expecting %s, actual %s", profile.ProjWKT, vrt.SRS)
	}
	if strings.ReplaceAll(vrt.GeoTransform, " ", "") != "381885,30,0,2162415,0,-30" {
		t.Errorf("unexpected geotransform %q", vrt.GeoTransform)
	}

	var interps, paths []string
	for i, b := range vrt.Bands {
		if b.Band != i+1 || b.DataType != "UInt16" {
			t.Errorf("band %d: unexpected attributes %d %s", i, b.Band, b.DataType)
		}
		interps = append(interps, b.ColorInterp)
		paths = append(paths, b.Source)
	}
	if diff := cmp.Diff([]string{"Red", "Green", "Undefined"}, interps); diff != "" {
		t.Errorf("colour interpretation (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{sources[0].Path, sources[1].Path, sources[2].Path}, paths); diff != "" {
		t.Errorf("source paths (-want +got):\n%s", diff)
	}

	if _, err = RenderSourceVRT(profile, nil); err == nil {
		t.Errorf("no sources expecting error, actual nil")
	}
}
