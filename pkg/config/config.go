// Package config loads deadapi configuration from TOML, YAML or JSON files.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalid is wrapped by every schema or semantic validation failure.
var ErrInvalid = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON []byte

// Config holds all configuration options for deadapi.
type Config struct {
	// Core artifact location
	Core CoreConfig `koanf:"core" toml:"core"`

	// Plugin discovery
	Plugins PluginsConfig `koanf:"plugins" toml:"plugins"`

	// Scheduler and archive reading
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Candidate filters
	Candidates CandidatesConfig `koanf:"candidates" toml:"candidates"`

	// Report filtering
	Report ReportConfig `koanf:"report" toml:"report"`

	// Quarantine cache
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Prometheus endpoint
	Metrics MetricsConfig `koanf:"metrics" toml:"metrics"`
}

// CoreConfig locates the core artifact.
type CoreConfig struct {
	Path string `koanf:"path" toml:"path"`
	// IndexScope selects the nested jar candidates are seeded from when the
	// core is a war. Ignored when the core is itself a jar.
	IndexScope string `koanf:"index_scope" toml:"index_scope"`
}

// PluginsConfig controls plugin discovery.
type PluginsConfig struct {
	Dir      string   `koanf:"dir" toml:"dir"`
	Patterns []string `koanf:"patterns" toml:"patterns"`
	Ignore   []string `koanf:"ignore" toml:"ignore"`
}

// AnalysisConfig controls the scheduler and archive reading.
type AnalysisConfig struct {
	Workers            int      `koanf:"workers" toml:"workers"` // 0 = one per CPU
	TemplateExtensions []string `koanf:"template_extensions" toml:"template_extensions"`
	SkipEntries        []string `koanf:"skip_entries" toml:"skip_entries"`
	StdlibCacheSize    int      `koanf:"stdlib_cache_size" toml:"stdlib_cache_size"`
	DeleteCorrupt      bool     `koanf:"delete_corrupt" toml:"delete_corrupt"`
}

// CandidatesConfig extends the built-in candidate filters.
type CandidatesConfig struct {
	IgnoreNames    []string `koanf:"ignore_names" toml:"ignore_names"`
	BundleSuffixes []string `koanf:"bundle_suffixes" toml:"bundle_suffixes"`
	SkipPrivate    bool     `koanf:"skip_private" toml:"skip_private"`
}

// ReportConfig filters and sizes the report.
type ReportConfig struct {
	IncludePrefixes []string `koanf:"include_prefixes" toml:"include_prefixes"`
	TopPackages     int      `koanf:"top_packages" toml:"top_packages"`
}

// CacheConfig controls the quarantine cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `koanf:"listen" toml:"listen"` // empty disables the endpoint
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Path:       "jenkins.war",
			IndexScope: "WEB-INF/lib/jenkins-core-*.jar",
		},
		Plugins: PluginsConfig{
			Dir:      "plugins",
			Patterns: []string{"*.hpi", "*.jpi"},
			Ignore:   []string{"python-wrapper.hpi"},
		},
		Analysis: AnalysisConfig{
			TemplateExtensions: []string{".jelly"},
			SkipEntries:        []string{"com/ibm/icu/impl/data/LocaleElements_zh__PINYIN.class"},
			StdlibCacheSize:    1024,
		},
		Candidates: CandidatesConfig{
			BundleSuffixes: []string{"/Messages"},
		},
		Report: ReportConfig{
			IncludePrefixes: []string{"hudson/", "jenkins/"},
			TopPackages:     10,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".deadapi/cache",
			TTL:     24 * 7,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file, validates it against the schema and
// overlays it on the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := validateSchema(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configNames are searched in order in each search directory.
var configNames = []string{
	"deadapi.toml",
	"deadapi.yaml",
	"deadapi.yml",
	"deadapi.json",
	".deadapi.toml",
	".deadapi.yaml",
	".deadapi.yml",
	".deadapi.json",
}

var searchDirs = []string{".", ".deadapi"}

// Locate returns the first config file found in the standard locations, or
// an empty string.
func Locate() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Resolve loads path when set, else the first file found by Locate, else
// the defaults. It also returns the file the config came from.
func Resolve(path string) (*Config, string, error) {
	if path == "" {
		path = Locate()
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	cfg, _, err := Resolve("")
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Core.Path == "" {
		errs = append(errs, errors.New("core.path must not be empty"))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be >= 0, got %d", c.Analysis.Workers))
	}
	for _, ext := range c.Analysis.TemplateExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("analysis.template_extensions: %q must start with a dot", ext))
		}
	}
	for _, p := range c.Report.IncludePrefixes {
		if strings.Contains(p, ".") {
			errs = append(errs, fmt.Errorf("report.include_prefixes: %q must use internal names (hudson/, not hudson.)", p))
		}
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir must be set when the cache is enabled"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("deadapi.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("deadapi.schema.json")
})

// validateSchema checks a raw parsed document. The document is normalized
// through JSON first so every parser's value types look alike.
func validateSchema(raw map[string]any) error {
	sch, err := compileSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
