package processor

import (
	"context"
	"fmt"
	"sort"

	"github.com/nci/bandstack/fetch"
	"github.com/nci/bandstack/utils"
	"go.uber.org/zap"
)

// Bands of one scene agree on their geotransform to within this tolerance.
const geoTransformTolerance = 1e-6

// Scene is the set of decoded bands of one acquisition keyed by role.
type Scene struct {
	Bands   map[string]utils.Raster
	Profile utils.Profile
	Sources map[string]*fetch.Entry
}

func (s *Scene) Roles() []string {
	roles := make([]string, 0, len(s.Bands))
	for role := range s.Bands {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

type SceneLoader struct {
	Cache  *fetch.Cache
	logger *zap.Logger
}

func NewSceneLoader(cache *fetch.Cache, logger *zap.Logger) *SceneLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SceneLoader{Cache: cache, logger: logger}
}

// Load retrieves and decodes the band of every role in locators. Local
// paths are read in place; remote locators go through the cache. All bands
// must share one pixel grid.
func (l *SceneLoader) Load(ctx context.Context, locators map[string]string) (*Scene, error) {
	if len(locators) == 0 {
		return nil, fmt.Errorf("load scene: no band locators")
	}

	roles := make([]string, 0, len(locators))
	for role := range locators {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	scene := &Scene{
		Bands:   make(map[string]utils.Raster, len(roles)),
		Sources: make(map[string]*fetch.Entry, len(roles)),
	}
	var ref string
	for _, role := range roles {
		entry, err := l.resolve(ctx, role, locators[role])
		if err != nil {
			return nil, err
		}

		band, profile, err := utils.ReadBand(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s band: %w", role, err)
		}
		l.logger.Debug("decoded band",
			zap.String("role", role),
			zap.String("path", entry.Path),
			zap.String("type", profile.DataType),
			zap.Stringer("shape", profile.Shape()),
		)

		if ref == "" {
			ref = role
			scene.Profile = profile
		} else {
			if profile.Shape() != scene.Profile.Shape() {
				return nil, &utils.ShapeMismatchError{What: role + " band", Want: scene.Profile.Shape(), Got: profile.Shape()}
			}
			if !profile.SameGrid(scene.Profile, geoTransformTolerance) {
				return nil, fmt.Errorf("load %s band: georeferencing differs from %s band, bands are not from the same scene", role, ref)
			}
		}
		scene.Bands[role] = band
		scene.Sources[role] = entry
	}
	return scene, nil
}

// Fetch resolves every locator to a local file without decoding it.
func (l *SceneLoader) Fetch(ctx context.Context, locators map[string]string) (map[string]*fetch.Entry, error) {
	entries := make(map[string]*fetch.Entry, len(locators))
	for role, locator := range locators {
		entry, err := l.resolve(ctx, role, locator)
		if err != nil {
			return nil, err
		}
		entries[role] = entry
	}
	return entries, nil
}

func (l *SceneLoader) resolve(ctx context.Context, role, locator string) (*fetch.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path, ok := fetch.LocalPath(locator); ok {
		rc, err := l.localFetcher().Fetch(ctx, locator)
		if err != nil {
			return nil, err
		}
		rc.Close()
		return &fetch.Entry{Role: role, Path: path, Cached: true}, nil
	}
	if l.Cache == nil {
		return nil, &fetch.RetrievalError{Locator: locator, Err: fmt.Errorf("no cache configured for remote locators")}
	}
	return l.Cache.Get(ctx, role, locator)
}

// localFetcher opens local locators so that a missing or unreadable file is
// reported as a retrieval failure rather than as undecodable content.
func (l *SceneLoader) localFetcher() fetch.Fetcher {
	if l.Cache != nil && l.Cache.Fetcher != nil {
		return l.Cache.Fetcher
	}
	return fetch.FileFetcher{}
}
