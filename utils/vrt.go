package utils

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edisonguo/jet"
)

const sourceVRTTemplate = `<VRTDataset rasterXSize="{{ .Width }}" rasterYSize="{{ .Height }}">
{{ if .SRS != "" }}  <SRS>{{ .SRS }}</SRS>
{{ end }}  <GeoTransform>{{ .GeoTransform }}</GeoTransform>
{{ range i, band := .Bands }}  <VRTRasterBand dataType="{{ band.DataType }}" band="{{ i + 1 }}">
    <ColorInterp>{{ band.ColorInterp }}</ColorInterp>
    <SimpleSource>
      <SourceFilename relativeToVRT="0">{{ band.Path }}</SourceFilename>
      <SourceBand>1</SourceBand>
    </SimpleSource>
  </VRTRasterBand>
{{ end }}</VRTDataset>
`

// VRTSource is one single-band file stacked into a source VRT.
type VRTSource struct {
	Path        string
	ColorInterp string
}

type vrtBand struct {
	Path        string
	DataType    string
	ColorInterp string
}

type vrtDataset struct {
	Width, Height int
	SRS           string
	GeoTransform  string
	Bands         []vrtBand
}

var vrtTemplates = jet.NewSet(jet.SafeWriter(func(w io.Writer, b []byte) {
	w.Write(b)
}), ".")

// RenderSourceVRT renders a GDAL VRT stacking the raw single-band files of
// a scene as separate bands, so the unnormalized composite can be opened
// next to the byte output.
func RenderSourceVRT(profile Profile, sources []VRTSource) ([]byte, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources for VRT")
	}

	template, err := vrtTemplates.LoadTemplate("source.vrt", sourceVRTTemplate)
	if err != nil {
		return nil, fmt.Errorf("VRT template error: %v", err)
	}

	geot := make([]string, len(profile.GeoTransform))
	for i, v := range profile.GeoTransform {
		geot[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	ds := &vrtDataset{
		Width:        profile.Width,
		Height:       profile.Height,
		SRS:          escapeXML(profile.ProjWKT),
		GeoTransform: strings.Join(geot, ", "),
	}
	for _, src := range sources {
		path, err := filepath.Abs(src.Path)
		if err != nil {
			return nil, err
		}
		ci := src.ColorInterp
		if ci == "" {
			ci = "Undefined"
		}
		ds.Bands = append(ds.Bands, vrtBand{Path: escapeXML(path), DataType: profile.DataType, ColorInterp: ci})
	}

	var resBuf bytes.Buffer
	vars := make(jet.VarMap)
	if err = template.Execute(&resBuf, vars, ds); err != nil {
		return nil, fmt.Errorf("VRT render error: %v", err)
	}
	return resBuf.Bytes(), nil
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
