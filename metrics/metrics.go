package metrics

import (
	"bytes"
	"encoding/json"
	"time"
)

type FetchInfo struct {
	Bands        int   `json:"bands"`
	CacheHits    int   `json:"cache_hits"`
	BytesFetched int64 `json:"bytes_fetched"`
}

type RunInfo struct {
	RunID       string                   `json:"run_id"`
	StartTime   string                   `json:"start_time"`
	RunDuration time.Duration            `json:"run_duration"`
	SceneID     string                   `json:"scene_id,omitempty"`
	Method      string                   `json:"method"`
	Output      string                   `json:"output"`
	Width       int                      `json:"width"`
	Height      int                      `json:"height"`
	FillPixels  int                      `json:"fill_pixels"`
	Stages      map[string]time.Duration `json:"stages"`
	Fetch       *FetchInfo               `json:"fetch"`
	Error       string                   `json:"error,omitempty"`
}

type Collector struct {
	Info   *RunInfo
	logger Logger
	start  time.Time
}

func NewCollector(runID string, logger Logger) *Collector {
	start := time.Now()
	return &Collector{
		Info: &RunInfo{
			RunID:     runID,
			StartTime: start.UTC().Format(time.RFC3339),
			Stages:    make(map[string]time.Duration),
			Fetch:     &FetchInfo{},
		},
		logger: logger,
		start:  start,
	}
}

// Stage starts timing the named stage and returns the function that
// stops it. Repeated stages accumulate.
func (m *Collector) Stage(name string) func() {
	t0 := time.Now()
	return func() {
		m.Info.Stages[name] += time.Since(t0)
	}
}

func (m *Collector) AddFetch(cached bool, bytesFetched int64) {
	m.Info.Fetch.Bands++
	if cached {
		m.Info.Fetch.CacheHits++
	}
	m.Info.Fetch.BytesFetched += bytesFetched
}

// Log closes the record with the outcome of the run and hands it to the
// logger.
func (m *Collector) Log(err error) {
	m.Info.RunDuration = time.Since(m.start)
	if err != nil {
		m.Info.Error = err.Error()
	}
	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *RunInfo) ToJSON() (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err == nil {
		return buf.String(), nil
	} else {
		return "", err
	}
}
