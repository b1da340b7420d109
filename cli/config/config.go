package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Config represents a ddmscope.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Source   string        `yaml:"source"`
	LogLevel string        `yaml:"log_level"`
	Decode   DecodeConfig  `yaml:"decode"`
	Capture  CaptureConfig `yaml:"capture"`
	Storage  StorageConfig `yaml:"storage"`
	Policy   PolicyConfig  `yaml:"policy"`
	Adapter  AdapterConfig `yaml:"adapter"`
}

// DecodeConfig holds decoding defaults.
type DecodeConfig struct {
	Handshake  bool  `yaml:"handshake"`
	Chunks     bool  `yaml:"chunks"`
	MaxPackets int64 `yaml:"max_packets"`
}

// CaptureConfig holds capture file defaults.
type CaptureConfig struct {
	// Direction selects the stream decoded from a capture file
	// (to_vm or from_vm).
	Direction string `yaml:"direction"`
}

// StorageConfig holds archive storage defaults.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig holds archive policy defaults.
type PolicyConfig struct {
	Name          string   `yaml:"name"`
	BufferRecords int      `yaml:"buffer_records"`
	BufferBytes   int64    `yaml:"buffer_bytes"`
	FlushCount    int      `yaml:"flush_count"`
	FlushInterval Duration `yaml:"flush_interval"`
	FlushOnFail   bool     `yaml:"flush_on_fail"`
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
	Secret  string            `yaml:"secret,omitempty"`
	Retain  Duration          `yaml:"retain,omitempty"`
}

// Accepted enum values. Empty always means "use the command default".
var (
	Backends     = []string{"fs", "s3"}
	Policies     = []string{"strict", "buffered", "streaming", "noop"}
	AdapterTypes = []string{"webhook", "redis"}
	Directions   = []string{"to_vm", "from_vm"}
	LogLevels    = []string{"debug", "info", "warn", "error"}
)

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.Duration.String(), nil
}

// Validate checks enum fields and numeric bounds. Cross-field requirements
// that depend on flags (e.g. a storage path for archiving) are checked by
// the commands.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed []string) {
		if value != "" && !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %v)", field, value, allowed))
		}
	}
	check("log_level", c.LogLevel, LogLevels)
	check("capture.direction", c.Capture.Direction, Directions)
	check("storage.backend", c.Storage.Backend, Backends)
	check("policy.name", c.Policy.Name, Policies)
	check("adapter.type", c.Adapter.Type, AdapterTypes)

	if c.Decode.MaxPackets < 0 {
		errs = append(errs, fmt.Errorf("decode.max_packets: must be >= 0, got %d", c.Decode.MaxPackets))
	}
	if c.Policy.BufferRecords < 0 || c.Policy.BufferBytes < 0 || c.Policy.FlushCount < 0 || c.Policy.FlushInterval.Duration < 0 {
		errs = append(errs, errors.New("policy: limits must be >= 0"))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries: must be >= 0, got %d", *c.Adapter.Retries))
	}
	if c.Adapter.Timeout.Duration < 0 || c.Adapter.Retain.Duration < 0 {
		errs = append(errs, errors.New("adapter: durations must be >= 0"))
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		errs = append(errs, fmt.Errorf("adapter.url: required for adapter type %q", c.Adapter.Type))
	}
	return errors.Join(errs...)
}
