// Package config loads the register configuration.
//
// Values come from defaults, then the YAML file, then KASSIR_* environment
// variables. The result is validated against the embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "kassir.yaml"

// Environment variables that override the file.
const (
	EnvSupabaseURL     = "KASSIR_SUPABASE_URL"
	EnvSupabaseKey     = "KASSIR_SUPABASE_KEY"
	EnvCompanyID       = "KASSIR_COMPANY_ID"
	EnvStoreLocationID = "KASSIR_STORE_LOCATION_ID"
	EnvDB              = "KASSIR_DB"
)

// ErrRemoteNotConfigured is returned by RequireRemote.
var ErrRemoteNotConfigured = errors.New("backend not configured")

// Duration is a time.Duration written as "15s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Supabase struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

type Remote struct {
	Timeout Duration `yaml:"timeout"`
}

type Monitor struct {
	ProbeInterval Duration `yaml:"probe_interval"`
}

type API struct {
	Listen string `yaml:"listen"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Config is the complete register configuration.
type Config struct {
	Supabase        Supabase `yaml:"supabase"`
	CompanyID       string   `yaml:"company_id"`
	StoreLocationID string   `yaml:"store_location_id"`
	WarehouseID     string   `yaml:"warehouse_id"`
	DB              string   `yaml:"db"`
	Remote          Remote   `yaml:"remote"`
	Monitor         Monitor  `yaml:"monitor"`
	API             API      `yaml:"api"`
	Log             Log      `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DB:      "kassir.db",
		Remote:  Remote{Timeout: Duration(15 * time.Second)},
		Monitor: Monitor{ProbeInterval: Duration(15 * time.Second)},
		API:     API{Listen: "127.0.0.1:8787"},
		Log:     Log{Level: "info"},
	}
}

// Load reads path, applies environment overrides and validates the result.
//
// An empty path reads DefaultPath if it exists and otherwise starts from
// Default. A named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates it.
// Environment variables are not consulted.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Supabase.URL, EnvSupabaseURL)
	set(&c.Supabase.Key, EnvSupabaseKey)
	set(&c.CompanyID, EnvCompanyID)
	set(&c.StoreLocationID, EnvStoreLocationID)
	set(&c.DB, EnvDB)
}

// Validate checks the configuration against the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c.schemaView()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// RequireRemote reports whether the settings needed to talk to the
// backend are present.
func (c Config) RequireRemote() error {
	var missing []string
	if c.Supabase.URL == "" {
		missing = append(missing, "supabase.url")
	}
	if c.Supabase.Key == "" {
		missing = append(missing, "supabase.key")
	}
	if c.CompanyID == "" {
		missing = append(missing, "company_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrRemoteNotConfigured, missing)
	}
	return nil
}

// schemaView is the shape checked by schema.cue. Durations are whole
// milliseconds.
func (c Config) schemaView() map[string]any {
	return map[string]any{
		"supabase": map[string]any{
			"url": c.Supabase.URL,
			"key": c.Supabase.Key,
		},
		"company_id":        c.CompanyID,
		"store_location_id": c.StoreLocationID,
		"warehouse_id":      c.WarehouseID,
		"db":                c.DB,
		"remote":            map[string]any{"timeout_ms": time.Duration(c.Remote.Timeout).Milliseconds()},
		"monitor":           map[string]any{"probe_interval_ms": time.Duration(c.Monitor.ProbeInterval).Milliseconds()},
		"api":               map[string]any{"listen": c.API.Listen},
		"log":               map[string]any{"level": c.Log.Level},
	}
}
