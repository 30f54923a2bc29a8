package moviequiz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigErrNotFound means a config file was required but does not exist
	ConfigErrNotFound = "config_not_found"
	// ConfigErrInvalid means the config file could not be read or parsed, or a field is invalid
	ConfigErrInvalid = "config_invalid"
)

const (
	DefaultConfigFile = "moviequiz.yaml"
	DefaultCount      = 20
	DefaultSeed       = 42
	DefaultLogDir     = "log"
	MaxDistractors    = 10
)

// FileConfig mirrors moviequiz.yaml. Pointer fields distinguish "unset"
// from an explicit zero.
type FileConfig struct {
	Source           string            `yaml:"source"`
	Count            *int              `yaml:"count"`
	Seed             *int64            `yaml:"seed"`
	Distractors      *int              `yaml:"distractors"`
	Kinds            []string          `yaml:"kinds"`
	Delimiter        string            `yaml:"delimiter"`
	Synonyms         map[string]string `yaml:"synonyms"`
	ExcludeOwnGenres bool              `yaml:"exclude_own_genres"`
	Dedup            *bool             `yaml:"dedup"`
	Output           string            `yaml:"output"`
	DB               string            `yaml:"db"`
	LogDir           string            `yaml:"log_dir"`
	FetchTimeout     string            `yaml:"fetch_timeout"`
	Review           ReviewConfig      `yaml:"review"`
}

// ReviewConfig enables the optional LLM review pass
type ReviewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Overrides carries command line values together with whether each was
// explicitly set, so an explicit flag always beats the file.
type Overrides struct {
	Source    string
	SourceSet bool

	Count    int
	CountSet bool

	Seed    int64
	SeedSet bool

	Distractors    int
	DistractorsSet bool

	Kinds    []string
	KindsSet bool

	Output    string
	OutputSet bool

	DB    string
	DBSet bool

	Review    bool
	ReviewSet bool
}

// Config is the merged, validated configuration consumed by the generator
type Config struct {
	Source       string
	Count        int
	Seed         int64
	Loader       LoaderOptions
	Synth        SynthOptions
	Dedup        bool
	Output       string
	DB           string
	LogDir       string
	FetchTimeout time.Duration
	Review       ReviewConfig
	APIKey       string
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Count:        DefaultCount,
		Seed:         DefaultSeed,
		Loader:       LoaderOptions{Delimiter: ','},
		Synth:        SynthOptions{K: DefaultDistractors, Kinds: append([]QuestionKind(nil), AllKinds...)},
		Dedup:        true,
		FetchTimeout: defaultFetchTimeout,
	}
}

// ConfigError is a structured configuration error
type ConfigError struct {
	Code   string
	Path   string
	Issues []string
	Err    error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Code == ConfigErrNotFound:
		return fmt.Sprintf("%s: config file %q not found", e.Code, e.Path)
	case len(e.Issues) > 0:
		return fmt.Sprintf("%s: config %q: %s", e.Code, e.Path, strings.Join(e.Issues, "; "))
	case e.Err != nil:
		return fmt.Sprintf("%s: config %q: %v", e.Code, e.Path, e.Err)
	}
	return e.Code
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConfigErrorCode extracts the code from a *ConfigError, or "" for other errors
func ConfigErrorCode(err error) string {
	var e *ConfigError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadConfig reads the config file at path and merges it with overrides.
// An empty path means DefaultConfigFile in the working directory, which is
// optional; an explicit path must exist.
func LoadConfig(path string, o Overrides) (Config, error) {
	required := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	var fc FileConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fc, err = ParseConfig(data)
		if err != nil {
			return Config{}, &ConfigError{Code: ConfigErrInvalid, Path: path, Err: err}
		}
	case os.IsNotExist(err) && !required:
		// no file, defaults and flags only
	case os.IsNotExist(err):
		return Config{}, &ConfigError{Code: ConfigErrNotFound, Path: path, Err: err}
	default:
		return Config{}, &ConfigError{Code: ConfigErrInvalid, Path: path, Err: err}
	}

	cfg, issues := fc.Merge(o)
	if os.Getenv("OPENAI_API_KEY") != "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Review.Enabled && cfg.APIKey == "" {
		issues = append(issues, "review.enabled requires OPENAI_API_KEY")
	}
	if len(issues) > 0 {
		return Config{}, &ConfigError{Code: ConfigErrInvalid, Path: path, Issues: issues}
	}
	return cfg, nil
}

// ParseConfig decodes a single YAML document, rejecting unknown fields
func ParseConfig(data []byte) (FileConfig, error) {
	var fc FileConfig
	if len(bytes.TrimSpace(data)) == 0 {
		return fc, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return FileConfig{}, fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return FileConfig{}, fmt.Errorf("parse yaml: %w", err)
	}
	return fc, nil
}

// Merge applies defaults, the file values and the overrides, in increasing
// precedence, and returns the result with any validation issues
func (fc FileConfig) Merge(o Overrides) (Config, []string) {
	cfg := DefaultConfig()
	var issues []string

	cfg.Source = strings.TrimSpace(fc.Source)
	if o.SourceSet {
		cfg.Source = strings.TrimSpace(o.Source)
	}

	if fc.Count != nil {
		cfg.Count = *fc.Count
	}
	if o.CountSet {
		cfg.Count = o.Count
	}
	if cfg.Count < 1 {
		issues = append(issues, fmt.Sprintf("count must be at least 1, got %d", cfg.Count))
	}

	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}
	if o.SeedSet {
		cfg.Seed = o.Seed
	}

	if fc.Distractors != nil {
		cfg.Synth.K = *fc.Distractors
	}
	if o.DistractorsSet {
		cfg.Synth.K = o.Distractors
	}
	if cfg.Synth.K < 1 || cfg.Synth.K > MaxDistractors {
		issues = append(issues, fmt.Sprintf("distractors must be between 1 and %d, got %d", MaxDistractors, cfg.Synth.K))
	}

	kinds := fc.Kinds
	if o.KindsSet {
		kinds = o.Kinds
	}
	if len(kinds) > 0 {
		cfg.Synth.Kinds = cfg.Synth.Kinds[:0]
		for _, name := range kinds {
			kind, err := ParseQuestionKind(name)
			if err != nil {
				issues = append(issues, "kinds: "+err.Error())
				continue
			}
			cfg.Synth.Kinds = append(cfg.Synth.Kinds, kind)
		}
	}
	cfg.Synth.ExcludeOwnGenres = fc.ExcludeOwnGenres

	if fc.Delimiter != "" {
		d, err := parseDelimiter(fc.Delimiter)
		if err != nil {
			issues = append(issues, err.Error())
		} else {
			cfg.Loader.Delimiter = d
		}
	}
	if len(fc.Synonyms) > 0 {
		cfg.Loader.Synonyms = make(map[string]string, len(fc.Synonyms))
		raws := make([]string, 0, len(fc.Synonyms))
		for raw := range fc.Synonyms {
			raws = append(raws, raw)
		}
		sort.Strings(raws)
		// Keys are stored the way headers are normalized before lookup
		seen := make(map[string]string, len(raws))
		for _, raw := range raws {
			canonical := strings.ToLower(strings.TrimSpace(fc.Synonyms[raw]))
			if !isCanonicalColumn(canonical) {
				issues = append(issues, fmt.Sprintf("synonyms: %q maps to unknown column %q", raw, canonical))
				continue
			}
			key := normalizeName(raw)
			if prev, ok := cfg.Loader.Synonyms[key]; ok && prev != canonical {
				issues = append(issues, fmt.Sprintf("synonyms: %q and %q both normalize to %q but map to %q and %q",
					seen[key], raw, key, prev, canonical))
				continue
			}
			cfg.Loader.Synonyms[key] = canonical
			seen[key] = raw
		}
	}

	if fc.Dedup != nil {
		cfg.Dedup = *fc.Dedup
	}

	cfg.Output = strings.TrimSpace(fc.Output)
	if o.OutputSet {
		cfg.Output = strings.TrimSpace(o.Output)
	}
	cfg.DB = strings.TrimSpace(fc.DB)
	if o.DBSet {
		cfg.DB = strings.TrimSpace(o.DB)
	}
	cfg.LogDir = strings.TrimSpace(fc.LogDir)

	if fc.FetchTimeout != "" {
		d, err := time.ParseDuration(fc.FetchTimeout)
		if err != nil || d <= 0 {
			issues = append(issues, fmt.Sprintf("fetch_timeout must be a positive duration, got %q", fc.FetchTimeout))
		} else {
			cfg.FetchTimeout = d
		}
	}

	cfg.Review = fc.Review
	if o.ReviewSet {
		cfg.Review.Enabled = o.Review
	}

	return cfg, issues
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}

func isCanonicalColumn(name string) bool {
	switch name {
	case ColumnTitle, ColumnYear, ColumnDirector, ColumnLeadActor, ColumnGenres, ColumnRating:
		return true
	}
	return false
}
