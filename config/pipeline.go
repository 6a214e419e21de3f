package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"daymart/model/model"
)

// QualityConf holds the gate thresholds. Zero values fall back to the
// compiled-in defaults on load.
type QualityConf struct {
	// Trailing history window for statistical rules, in days.
	TrailingDays int `yaml:"trailing_days"`
	// Absolute z-score above which a daily metric is anomalous.
	ZScoreThreshold float64 `yaml:"zscore_threshold"`
	// Schema reject rate (0..1) above which the partition is untrustworthy.
	RejectRateThreshold float64 `yaml:"reject_rate_threshold"`
}

// PipelineConf is the semantic definition of one engine deployment: the
// funnel, cohort rules and gate thresholds. Loaded from YAML with defaults
// for anything unset; behaviour never comes from an ambient clock or
// hardcoded dates.
type PipelineConf struct {
	FunnelSteps           []model.FunnelStep `yaml:"funnel_steps"`
	CohortQualifyingEvent string             `yaml:"cohort_qualifying_event"`
	MinCohortSize         int                `yaml:"min_cohort_size"`
	RetentionMaxOffset    int                `yaml:"retention_max_offset"`
	StageRetries          int                `yaml:"stage_retries"`
	RetryBackoffSeconds   int                `yaml:"retry_backoff_seconds"`
	Quality               QualityConf        `yaml:"quality"`
}

func DefaultPipelineConf() *PipelineConf {
	return &PipelineConf{
		FunnelSteps:           model.DefaultFunnelSteps(),
		CohortQualifyingEvent: model.DefaultCohortQualifyingEvent,
		MinCohortSize:         model.DefaultMinCohortSize,
		RetentionMaxOffset:    model.DefaultRetentionMaxOffset,
		StageRetries:          2,
		RetryBackoffSeconds:   5,
		Quality: QualityConf{
			TrailingDays:        30,
			ZScoreThreshold:     3.0,
			RejectRateThreshold: 0.05,
		},
	}
}

// LoadPipelineConf reads the pipeline definition file and overlays it on
// the defaults. An empty path returns the defaults.
func LoadPipelineConf(filepath string) (*PipelineConf, error) {
	conf := DefaultPipelineConf()
	if filepath == "" {
		return conf, nil
	}

	raw, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "read pipeline definition")
	}

	loaded := &PipelineConf{}
	if err := yaml.Unmarshal(raw, loaded); err != nil {
		return nil, errors.Wrap(err, "unmarshal pipeline definition")
	}

	if len(loaded.FunnelSteps) > 0 {
		conf.FunnelSteps = loaded.FunnelSteps
	}
	if loaded.CohortQualifyingEvent != "" {
		conf.CohortQualifyingEvent = loaded.CohortQualifyingEvent
	}
	if loaded.MinCohortSize > 0 {
		conf.MinCohortSize = loaded.MinCohortSize
	}
	if loaded.RetentionMaxOffset > 0 {
		conf.RetentionMaxOffset = loaded.RetentionMaxOffset
	}
	if loaded.StageRetries > 0 {
		conf.StageRetries = loaded.StageRetries
	}
	if loaded.RetryBackoffSeconds > 0 {
		conf.RetryBackoffSeconds = loaded.RetryBackoffSeconds
	}
	if loaded.Quality.TrailingDays > 0 {
		conf.Quality.TrailingDays = loaded.Quality.TrailingDays
	}
	if loaded.Quality.ZScoreThreshold > 0 {
		conf.Quality.ZScoreThreshold = loaded.Quality.ZScoreThreshold
	}
	if loaded.Quality.RejectRateThreshold > 0 {
		conf.Quality.RejectRateThreshold = loaded.Quality.RejectRateThreshold
	}

	log.WithFields(log.Fields{"file": filepath,
		"funnel_steps": len(conf.FunnelSteps)}).Info("Pipeline definition loaded.")
	return conf, nil
}
