package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/nci/bandstack/fetch"
	"github.com/nci/bandstack/metrics"
	"github.com/nci/bandstack/utils"
	"go.uber.org/zap"
)

// ScenePipeline composes the RGB raster of one scene: load, normalize the
// red, green and blue bands, stack and write.
type ScenePipeline struct {
	Context   context.Context
	Loader    *SceneLoader
	Method    Method
	Fill      *FillExpression
	Output    string
	Quicklook string
	SourceVRT string
	Metrics   *metrics.Collector
	logger    *zap.Logger
}

// Composite is the outcome of a successful run.
type Composite struct {
	Output  string
	Profile utils.Profile
	Stack   *RGBStack
	Mask    *FillMask
}

// InitScenePipeline checks everything that can be checked before touching
// any band, so configuration errors surface before a download starts.
func InitScenePipeline(ctx context.Context, config *utils.Config, loader *SceneLoader, collector *metrics.Collector, logger *zap.Logger) (*ScenePipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	method, err := ParseMethod(config.Normalization)
	if err != nil {
		return nil, err
	}
	fill, err := ParseFillExpression(config.FillMask)
	if err != nil {
		return nil, err
	}
	output := config.OutputPath()
	if _, err = utils.DriverForPath(output); err != nil {
		return nil, err
	}
	if collector != nil {
		collector.Info.Method = method.Name()
		collector.Info.Output = output
		collector.Info.SceneID = config.Scene.SceneID
	}

	return &ScenePipeline{
		Context:   ctx,
		Loader:    loader,
		Method:    method,
		Fill:      fill,
		Output:    output,
		Quicklook: config.Quicklook,
		SourceVRT: config.SourceVRT,
		Metrics:   collector,
		logger:    logger,
	}, nil
}

// SceneLocators returns the band locators of the configured scene. Explicit
// bands take precedence over locators derived from the scene ID.
func SceneLocators(config *utils.Config) (map[string]string, error) {
	if len(config.Scene.Bands) > 0 {
		locators := make(map[string]string, len(config.Scene.Bands))
		for role, locator := range config.Scene.Bands {
			locators[role] = locator
		}
		return locators, nil
	}
	if strings.TrimSpace(config.Scene.SceneID) == "" {
		return nil, &utils.ConfigError{Field: "scene", Value: "{}", Reason: "either scene_id or bands must be set"}
	}
	roles := append([]string(nil), config.Scene.Roles...)
	for _, role := range utils.RequiredRoles {
		if !contains(roles, role) {
			roles = append(roles, role)
		}
	}
	locators, err := fetch.LandsatLocators(config.Scene.SceneID, config.Scene.BaseURL, roles)
	if err != nil {
		return nil, &utils.ConfigError{Field: "scene.scene_id", Value: config.Scene.SceneID, Reason: err.Error()}
	}
	return locators, nil
}

func (p *ScenePipeline) Process(locators map[string]string) (*Composite, error) {
	for _, role := range utils.RequiredRoles {
		if _, found := locators[role]; !found {
			return nil, &utils.ConfigError{Field: "scene.bands", Value: role, Reason: "required band role is missing"}
		}
	}

	done := p.stage("load")
	scene, err := p.Loader.Load(p.Context, locators)
	done()
	if err != nil {
		return nil, err
	}
	if p.Metrics != nil {
		for _, entry := range scene.Sources {
			p.Metrics.AddFetch(entry.Cached, entry.Bytes)
		}
		p.Metrics.Info.Width = scene.Profile.Width
		p.Metrics.Info.Height = scene.Profile.Height
	}

	var mask *FillMask
	qa, hasQA := scene.Bands["qa"]
	switch {
	case !hasQA:
		p.logger.Warn("no qa band, normalizing without a fill mask")
	case p.Fill == nil:
		p.logger.Debug("fill mask expression is empty, qa band ignored")
	default:
		done = p.stage("mask")
		mask, err = p.Fill.BuildMask(qa)
		done()
		if err != nil {
			return nil, err
		}
		if p.Metrics != nil {
			p.Metrics.Info.FillPixels = mask.Count()
		}
		p.logger.Debug("built fill mask", zap.String("expression", p.Fill.Source), zap.Int("fill_pixels", mask.Count()))
	}

	done = p.stage("normalize")
	normalized := make([]*utils.ByteRaster, len(utils.RequiredRoles))
	for i, role := range utils.RequiredRoles {
		normalized[i], err = Normalize(scene.Bands[role], mask, p.Method)
		if err != nil {
			done()
			return nil, fmt.Errorf("normalize %s band: %w", role, err)
		}
	}
	done()

	stack, err := Stack(normalized[0], normalized[1], normalized[2])
	if err != nil {
		return nil, err
	}

	done = p.stage("write")
	err = WriteRGB(stack, scene.Profile, p.Output)
	done()
	if err != nil {
		return nil, err
	}
	p.logger.Info("wrote composite", zap.String("output", p.Output), zap.String("method", p.Method.Name()))

	if p.Quicklook != "" {
		if err = p.writeQuicklook(stack); err != nil {
			return nil, err
		}
	}
	if p.SourceVRT != "" {
		if err = p.writeSourceVRT(scene); err != nil {
			return nil, err
		}
	}

	return &Composite{Output: p.Output, Profile: scene.Profile, Stack: stack, Mask: mask}, nil
}

func (p *ScenePipeline) writeQuicklook(stack *RGBStack) error {
	defer p.stage("quicklook")()
	img, err := utils.EncodePNG(stack.Bands())
	if err != nil {
		return &utils.WriteError{Path: p.Quicklook, Err: err}
	}
	if err = utils.WriteFile(p.Quicklook, img); err != nil {
		return err
	}
	p.logger.Info("wrote quicklook", zap.String("path", p.Quicklook))
	return nil
}

func (p *ScenePipeline) writeSourceVRT(scene *Scene) error {
	defer p.stage("vrt")()
	var sources []utils.VRTSource
	for i, role := range utils.RequiredRoles {
		sources = append(sources, utils.VRTSource{Path: scene.Sources[role].Path, ColorInterp: utils.RGBColorInterp[i]})
	}
	vrt, err := utils.RenderSourceVRT(scene.Profile, sources)
	if err != nil {
		return &utils.WriteError{Path: p.SourceVRT, Err: err}
	}
	if err = utils.WriteFile(p.SourceVRT, vrt); err != nil {
		return err
	}
	p.logger.Info("wrote source VRT", zap.String("path", p.SourceVRT))
	return nil
}

func (p *ScenePipeline) stage(name string) func() {
	if p.Metrics == nil {
		return func() {}
	}
	return p.Metrics.Stage(name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
