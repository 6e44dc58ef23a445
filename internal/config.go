package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notepub/internal/parser"
	"github.com/starford/notepub/internal/pipeline"
	"github.com/starford/notepub/internal/scanner"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Source   SourceConfig      `yaml:"source"`
	Output   OutputConfig      `yaml:"output"`
	Pipeline PipelineConfig    `yaml:"pipeline"`
	Push     PushConfig        `yaml:"push"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// PipelineOptions assembles pipeline options from the source, output and
// pipeline sections.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		SourceRoot: c.Source.Path,
		Scan: scanner.Options{
			Extension:    c.Source.Extension,
			TemplatesDir: c.Source.TemplatesDir,
		},
		Parse:    parser.Options{Strict: c.Pipeline.StrictFrontmatter},
		BasePath: c.Output.BasePath,
		Workers:  c.Pipeline.Workers,
		TOC:      c.Pipeline.TOC,
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig describes the tree of Markdown notes.
type SourceConfig struct {
	Path         string `yaml:"path"`
	TemplatesDir string `yaml:"templates_dir"`
	Extension    string `yaml:"extension"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.TemplatesDir, validation.By(plainName)),
		validation.Field(&c.Extension, validation.By(func(v any) error {
			ext, _ := v.(string)
			if ext != "" && (!strings.HasPrefix(ext, ".") || len(ext) < 2) {
				return errors.New("must start with a dot")
			}
			return nil
		})),
	)
}

func plainName(v any) error {
	name, _ := v.(string)
	if strings.ContainsAny(name, `/\`) {
		return errors.New("must be a single directory name")
	}
	return nil
}

// OutputConfig describes where published documents are written.
type OutputConfig struct {
	Path     string `yaml:"path"`
	BasePath string `yaml:"base_path"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.BasePath, validation.By(func(v any) error {
			base, _ := v.(string)
			if base != "" && !strings.HasPrefix(base, "/") {
				return errors.New("must start with /")
			}
			return nil
		})),
	)
}

// PipelineConfig tunes the build.
type PipelineConfig struct {
	// Workers bounds concurrent parse and convert work; 0 means GOMAXPROCS.
	Workers           int  `yaml:"workers"`
	TOC               bool `yaml:"toc"`
	StrictFrontmatter bool `yaml:"strict_frontmatter"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
	)
}

// PushConfig names the destination the output tree is mirrored to.
type PushConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Path:         "./notes",
			TemplatesDir: "_templates",
			Extension:    ".md",
		},
		Output: OutputConfig{
			Path:     "./public",
			BasePath: "/",
		},
		SQLite: SQLiteConfig{
			Path: "./notepub.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
