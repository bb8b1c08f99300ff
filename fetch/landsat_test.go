package fetch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLandsatLocators(t *testing.T) {
	id := "LC08_L1TP_139045_20170304_20170316_01_T1"
	locators, err := LandsatLocators(id, "https://landsat-pds.s3.amazonaws.com/", []string{"red", "green", "blue", "qa"})
	if err != nil {
		t.Fatalf("LandsatLocators failed: %v", err)
	}

	base := "https://landsat-pds.s3.amazonaws.com/c1/L8/139/045/" + id + "/" + id
	expected := map[string]string{
		"red":   base + "_B4.TIF",
		"green": base + "_B3.TIF",
		"blue":  base + "_B2.TIF",
		"qa":    base + "_BQA.TIF",
	}
	if diff := cmp.Diff(expected, locators); diff != "" {
		t.Errorf("unexpected locators (-want +got):\n%s", diff)
	}
}

func TestLandsatLocatorsInvalid(t *testing.T) {
	for _, id := range []string{"", "LC08_L1TP_139045_20170304", "LE07_L1TP_139045_20170304_20170316_01_T1", "LC81390452017063LGN00"} {
		if _, err := LandsatLocators(id, "https://example.com", []string{"red"}); err == nil {
			t.Errorf("%q expecting error, actual nil", id)
		}
	}

	_, err := LandsatLocators("LC08_L1TP_139045_20170304_20170316_01_T1", "https://example.com", []string{"infrared"})
	if err == nil {
		t.Errorf("unknown role expecting error, actual nil")
	}
}
