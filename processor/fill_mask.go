package processor

import (
	"fmt"
	"math"
	"strings"

	goeval "github.com/edisonguo/govaluate"
	"github.com/nci/bandstack/utils"
)

// DefaultFillExpression flags the Landsat-8 designated fill pixels.
const DefaultFillExpression = "qa == 1"

// FillMask marks the pixels that carry no scene data. A nil *FillMask
// marks nothing.
type FillMask struct {
	Data   []bool
	Height int
	Width  int
}

func (m *FillMask) Shape() utils.Shape {
	if m == nil {
		return utils.Shape{}
	}
	return utils.Shape{Height: m.Height, Width: m.Width}
}

func (m *FillMask) Filled(i int) bool {
	return m != nil && m.Data[i]
}

// Count returns the number of filled pixels.
func (m *FillMask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, filled := range m.Data {
		if filled {
			n++
		}
	}
	return n
}

// FillExpression is a boolean expression over the quality band value qa.
type FillExpression struct {
	Source string
	expr   *goeval.EvaluableExpression
}

// ParseFillExpression compiles s. An empty expression yields a nil
// *FillExpression, which builds no mask.
func ParseFillExpression(s string) (*FillExpression, error) {
	if len(strings.TrimSpace(s)) == 0 {
		return nil, nil
	}

	expr, err := goeval.NewEvaluableExpression(s)
	if err != nil {
		return nil, &utils.ConfigError{Field: "fill_mask", Value: s, Reason: err.Error()}
	}

	for _, token := range expr.Tokens() {
		if token.Kind == goeval.VARIABLE {
			varName, ok := token.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
			}
			if varName != "qa" {
				return nil, &utils.ConfigError{Field: "fill_mask", Value: s,
					Reason: fmt.Sprintf("variable %v is not supported, the only valid variable is qa", varName)}
			}
		}
	}
	return &FillExpression{Source: s, expr: expr}, nil
}

// BuildMask evaluates the expression for every pixel of the quality band.
// NaN quality values are never fill.
func (f *FillExpression) BuildMask(qa utils.Raster) (*FillMask, error) {
	if f == nil {
		return nil, nil
	}
	if err := utils.CheckRaster(qa); err != nil {
		return nil, fmt.Errorf("fill mask: %w", err)
	}
	samples, err := utils.Samples(qa)
	if err != nil {
		return nil, err
	}

	shape := qa.Shape()
	mask := &FillMask{Data: make([]bool, len(samples)), Height: shape.Height, Width: shape.Width}

	// quality bands are bit packed so only a handful of distinct values occur
	seen := make(map[float64]bool)
	for i, value := range samples {
		if math.IsNaN(value) {
			continue
		}
		filled, found := seen[value]
		if !found {
			filled, err = f.evaluate(value)
			if err != nil {
				return nil, err
			}
			seen[value] = filled
		}
		mask.Data[i] = filled
	}
	return mask, nil
}

func (f *FillExpression) evaluate(qa float64) (bool, error) {
	result, err := f.expr.Evaluate(map[string]interface{}{"qa": qa})
	if err != nil {
		return false, fmt.Errorf("fill mask expression: %v", err)
	}

	val, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("fill mask expression: result '%v' is not boolean", result)
	}
	return val, nil
}
