package research

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultModel is used for every role that is not configured.
const DefaultModel = "qwen2.5-72b-instruct"

const (
	DefaultNumberOfInitialQueries = 3
	DefaultMaxResearchLoops       = 2
	DefaultSearchResultCount      = 10
	DefaultRetryMaxAttempts       = 10
)

// Configuration holds the run-independent knobs of a Workflow.
type Configuration struct {
	QueryGeneratorModel string `yaml:"query_generator_model"`
	ReflectionModel     string `yaml:"reflection_model"`
	AnswerModel         string `yaml:"answer_model"`
	PlannerModel        string `yaml:"planner_model"`

	NumberOfInitialQueries int `yaml:"number_of_initial_queries"`
	MaxResearchLoops       int `yaml:"max_research_loops"`
	SearchResultCount      int `yaml:"search_result_count"`

	// MaxConcurrency bounds parallel web_research branches. 0 means unbounded.
	MaxConcurrency   int    `yaml:"max_concurrency"`
	RetryMaxAttempts int    `yaml:"retry_max_attempts"`
	CitationPrefix   string `yaml:"citation_prefix"`
	PlanConfirmation bool   `yaml:"plan_confirmation"`
}

// DefaultConfiguration returns the built-in settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		QueryGeneratorModel:    DefaultModel,
		ReflectionModel:        DefaultModel,
		AnswerModel:            DefaultModel,
		PlannerModel:           DefaultModel,
		NumberOfInitialQueries: DefaultNumberOfInitialQueries,
		MaxResearchLoops:       DefaultMaxResearchLoops,
		SearchResultCount:      DefaultSearchResultCount,
		RetryMaxAttempts:       DefaultRetryMaxAttempts,
	}
}

// LoadConfiguration reads a YAML file over DefaultConfiguration.
func LoadConfiguration(path string) (Configuration, error) {
	config := DefaultConfiguration()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read configuration: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse configuration %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config.withDefaults(), nil
}

// Environment variables read by FromEnv.
const (
	EnvQueryGeneratorModel    = "PROSEARCH_QUERY_GENERATOR_MODEL"
	EnvReflectionModel        = "PROSEARCH_REFLECTION_MODEL"
	EnvAnswerModel            = "PROSEARCH_ANSWER_MODEL"
	EnvPlannerModel           = "PROSEARCH_PLANNER_MODEL"
	EnvNumberOfInitialQueries = "PROSEARCH_NUMBER_OF_INITIAL_QUERIES"
	EnvMaxResearchLoops       = "PROSEARCH_MAX_RESEARCH_LOOPS"
	EnvSearchResultCount      = "PROSEARCH_SEARCH_RESULT_COUNT"
	EnvMaxConcurrency         = "PROSEARCH_MAX_CONCURRENCY"
	EnvRetryMaxAttempts       = "PROSEARCH_RETRY_MAX_ATTEMPTS"
	EnvCitationPrefix         = "PROSEARCH_CITATION_PREFIX"
	EnvPlanConfirmation       = "PROSEARCH_PLAN_CONFIRMATION"
)

// FromEnv overrides c with every PROSEARCH_* variable that is set.
func (c Configuration) FromEnv() (Configuration, error) {
	texts := map[string]*string{
		EnvQueryGeneratorModel: &c.QueryGeneratorModel,
		EnvReflectionModel:     &c.ReflectionModel,
		EnvAnswerModel:         &c.AnswerModel,
		EnvPlannerModel:        &c.PlannerModel,
		EnvCitationPrefix:      &c.CitationPrefix,
	}
	for name, field := range texts {
		if value, ok := lookupEnv(name); ok {
			*field = value
		}
	}

	ints := map[string]*int{
		EnvNumberOfInitialQueries: &c.NumberOfInitialQueries,
		EnvMaxResearchLoops:       &c.MaxResearchLoops,
		EnvSearchResultCount:      &c.SearchResultCount,
		EnvMaxConcurrency:         &c.MaxConcurrency,
		EnvRetryMaxAttempts:       &c.RetryMaxAttempts,
	}
	var errs []error
	for name, field := range ints {
		value, ok := lookupEnv(name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*field = parsed
	}

	if value, ok := lookupEnv(EnvPlanConfirmation); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPlanConfirmation, err))
		} else {
			c.PlanConfirmation = parsed
		}
	}
	if len(errs) > 0 {
		return c, errors.Join(errs...)
	}
	return c, c.Validate()
}

func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// Validate rejects negative counts.
func (c Configuration) Validate() error {
	var errs []error
	check := func(name string, value int) {
		if value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, value))
		}
	}
	check("number_of_initial_queries", c.NumberOfInitialQueries)
	check("max_research_loops", c.MaxResearchLoops)
	check("search_result_count", c.SearchResultCount)
	check("max_concurrency", c.MaxConcurrency)
	check("retry_max_attempts", c.RetryMaxAttempts)
	return errors.Join(errs...)
}

// withDefaults fills every unset field from DefaultConfiguration.
func (c Configuration) withDefaults() Configuration {
	defaults := DefaultConfiguration()
	fillString := func(field *string, fallback string) {
		if *field == "" {
			*field = fallback
		}
	}
	fillInt := func(field *int, fallback int) {
		if *field <= 0 {
			*field = fallback
		}
	}
	fillString(&c.QueryGeneratorModel, defaults.QueryGeneratorModel)
	fillString(&c.ReflectionModel, defaults.ReflectionModel)
	fillString(&c.AnswerModel, defaults.AnswerModel)
	fillString(&c.PlannerModel, defaults.PlannerModel)
	fillInt(&c.NumberOfInitialQueries, defaults.NumberOfInitialQueries)
	fillInt(&c.MaxResearchLoops, defaults.MaxResearchLoops)
	fillInt(&c.SearchResultCount, defaults.SearchResultCount)
	fillInt(&c.RetryMaxAttempts, defaults.RetryMaxAttempts)
	return c
}
