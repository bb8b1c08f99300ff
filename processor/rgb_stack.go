package processor

import (
	"fmt"

	"github.com/nci/bandstack/utils"
)

// RGBStack holds three normalized bands of identical shape in R, G, B order.
type RGBStack struct {
	Red   *utils.ByteRaster
	Green *utils.ByteRaster
	Blue  *utils.ByteRaster
}

func (s *RGBStack) Shape() utils.Shape {
	return s.Red.Shape()
}

func (s *RGBStack) Bands() []*utils.ByteRaster {
	return []*utils.ByteRaster{s.Red, s.Green, s.Blue}
}

func (s *RGBStack) rasters() []utils.Raster {
	return []utils.Raster{s.Red, s.Green, s.Blue}
}

// Stack combines three normalized bands into a composite. Every band must
// have the shape of the red band.
func Stack(red, green, blue *utils.ByteRaster) (*RGBStack, error) {
	names := []string{"red", "green", "blue"}
	for i, b := range []*utils.ByteRaster{red, green, blue} {
		if b == nil {
			return nil, fmt.Errorf("stack: %s band is missing", names[i])
		}
		if err := utils.CheckRaster(b); err != nil {
			return nil, fmt.Errorf("stack: %s band: %w", names[i], err)
		}
		if b.Shape() != red.Shape() {
			return nil, &utils.ShapeMismatchError{What: names[i] + " band", Want: red.Shape(), Got: b.Shape()}
		}
	}
	return &RGBStack{Red: red, Green: green, Blue: blue}, nil
}

// WriteRGB writes the composite to dst as a 3-band byte raster
// georeferenced by profile. The driver follows the file extension.
func WriteRGB(stack *RGBStack, profile utils.Profile, dst string) error {
	if stack == nil {
		return fmt.Errorf("write rgb: no stack")
	}
	if profile.Shape() != stack.Shape() {
		return &utils.ShapeMismatchError{What: "profile", Want: stack.Shape(), Got: profile.Shape()}
	}
	driver, err := utils.DriverForPath(dst)
	if err != nil {
		return err
	}
	return utils.WriteRaster(dst, profile.ForRGB(driver), stack.rasters())
}
