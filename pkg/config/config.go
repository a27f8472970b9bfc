package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/volleyhq/volley/pkg/models"
	"gopkg.in/yaml.v3"
)

// YAMLRule mirrors one validation rule in a YAML test file.
type YAMLRule struct {
	Type        string      `yaml:"type"`
	Value       interface{} `yaml:"value"`
	Path        string      `yaml:"path,omitempty"`
	Description string      `yaml:"description,omitempty"`
}

// YAMLConfig is the on-disk shape of a test configuration, used by the
// headless `run` command.
type YAMLConfig struct {
	Target struct {
		URL             string            `yaml:"url"`
		Method          string            `yaml:"method,omitempty"`
		Headers         map[string]string `yaml:"headers,omitempty"`
		Timeout         int               `yaml:"timeout,omitempty"` // seconds
		VerifySSL       bool              `yaml:"verify_ssl,omitempty"`
		FollowRedirects *bool             `yaml:"follow_redirects,omitempty"`
	} `yaml:"target"`

	Body struct {
		Type   string            `yaml:"type,omitempty"` // json, form, raw
		Values map[string]string `yaml:"values,omitempty"`
		Fields []struct {
			Key    string `yaml:"key"`
			Value  string `yaml:"value"`
			Random bool   `yaml:"random,omitempty"`
		} `yaml:"fields,omitempty"`
		Raw string `yaml:"raw,omitempty"`
	} `yaml:"body,omitempty"`

	Load struct {
		Concurrency int `yaml:"concurrency"`
		Batches     int `yaml:"batches,omitempty"`
	} `yaml:"load"`

	Rules []YAMLRule `yaml:"rules,omitempty"`
}

// LoadFile parses and validates a YAML test configuration.
func LoadFile(path string) (*models.TestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc YAMLConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := &models.TestConfig{
		URL:               yc.Target.URL,
		Method:            yc.Target.Method,
		Headers:           yc.Target.Headers,
		BodyType:          yc.Body.Type,
		RequestBody:       yc.Body.Values,
		RawBody:           yc.Body.Raw,
		ConcurrentCalls:   yc.Load.Concurrency,
		SequentialBatches: yc.Load.Batches,
		TimeoutSeconds:    yc.Target.Timeout,
		FollowRedirects:   true,
		VerifySSL:         yc.Target.VerifySSL,
	}
	if yc.Target.FollowRedirects != nil {
		cfg.FollowRedirects = *yc.Target.FollowRedirects
	}
	for _, f := range yc.Body.Fields {
		cfg.BodyFields = append(cfg.BodyFields, models.BodyField{
			Key: f.Key, Value: f.Value, IsRandom: f.Random,
		})
	}
	for _, r := range yc.Rules {
		cfg.Rules = append(cfg.Rules, models.Rule{
			Type:        models.RuleType(r.Type),
			Value:       r.Value,
			FieldPath:   r.Path,
			Description: r.Description,
		})
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

var validBodyTypes = map[string]bool{"json": true, "form": true, "raw": true}

// ApplyDefaults fills the optional fields the API treats as defaulted.
func ApplyDefaults(cfg *models.TestConfig) {
	if cfg.Method == "" {
		cfg.Method = "POST"
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	if cfg.BodyType == "" {
		cfg.BodyType = "json"
	}
	if cfg.ConcurrentCalls == 0 {
		cfg.ConcurrentCalls = 1
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}
}

// Validate checks a test configuration's structural constraints and
// ranges, accumulating every problem into one error.
func Validate(cfg *models.TestConfig) error {
	var problems []string
	add := func(field, msg string) {
		problems = append(problems, fmt.Sprintf("%s: %s", field, msg))
	}

	if cfg.URL == "" {
		add("base_url", "target URL is required")
	} else if u, err := url.Parse(cfg.URL); err != nil {
		add("base_url", fmt.Sprintf("invalid URL: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("base_url", fmt.Sprintf("unsupported scheme %q (expected http or https)", u.Scheme))
	}

	if !validMethods[strings.ToUpper(cfg.Method)] {
		add("http_method", fmt.Sprintf("unsupported method %q", cfg.Method))
	}
	if !validBodyTypes[cfg.BodyType] {
		add("body_type", fmt.Sprintf("unsupported body type %q (expected json, form or raw)", cfg.BodyType))
	}

	if cfg.ConcurrentCalls < 1 || cfg.ConcurrentCalls > 1000 {
		add("concurrent_calls", fmt.Sprintf("must be between 1 and 1000, got %d", cfg.ConcurrentCalls))
	}
	if cfg.SequentialBatches < 0 || cfg.SequentialBatches > 100 {
		add("sequential_batches", fmt.Sprintf("must be between 1 and 100, got %d", cfg.SequentialBatches))
	}
	if cfg.TimeoutSeconds < 0 || cfg.TimeoutSeconds > 300 {
		add("timeout", fmt.Sprintf("must be between 1 and 300 seconds, got %d", cfg.TimeoutSeconds))
	}

	valid := make(map[models.RuleType]bool)
	for _, t := range models.RuleTypes() {
		valid[t] = true
	}
	for i, r := range cfg.Rules {
		if !valid[r.Type] {
			add(fmt.Sprintf("validation_rules[%d].type", i), fmt.Sprintf("unknown rule type %q", r.Type))
		}
		if r.Type == models.RuleJSONPath && r.FieldPath == "" {
			add(fmt.Sprintf("validation_rules[%d].field_path", i), "json_path rules require a field path")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid test configuration:\n  - %s", strings.Join(problems, "\n  - "))
}
