package fetch

import (
	"fmt"
	"regexp"
	"strings"
)

var landsatBandSuffixes = map[string]string{
	"coastal":      "_B1.TIF",
	"blue":         "_B2.TIF",
	"green":        "_B3.TIF",
	"red":          "_B4.TIF",
	"nir":          "_B5.TIF",
	"swir1":        "_B6.TIF",
	"swir2":        "_B7.TIF",
	"panchromatic": "_B8.TIF",
	"cirrus":       "_B9.TIF",
	"tirs1":        "_B10.TIF",
	"tirs2":        "_B11.TIF",
	"qa":           "_BQA.TIF",
}

// Collection-1 product IDs, e.g. LC08_L1TP_139045_20170304_20170316_01_T1.
var landsatProductID = regexp.MustCompile(`^L[COT]08_L1(TP|GT|GS)_(\d{3})(\d{3})_\d{8}_\d{8}_01_(RT|T1|T2)$`)

// LandsatLocators returns the public archive URL of each requested band
// role of a Landsat-8 Collection-1 scene.
func LandsatLocators(productID, baseURL string, roles []string) (map[string]string, error) {
	m := landsatProductID.FindStringSubmatch(productID)
	if m == nil {
		return nil, fmt.Errorf("Invalid scene ID: %s", productID)
	}
	path, row := m[2], m[3]
	folder := fmt.Sprintf("%s/c1/L8/%s/%s/%s/", strings.TrimSuffix(baseURL, "/"), path, row, productID)

	locators := make(map[string]string, len(roles))
	for _, role := range roles {
		suffix, found := landsatBandSuffixes[role]
		if !found {
			return nil, fmt.Errorf("unknown Landsat-8 band role: %s", role)
		}
		locators[role] = folder + productID + suffix
	}
	return locators, nil
}
