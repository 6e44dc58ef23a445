package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestSourceConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		wantErr bool
	}{
		{"valid", SourceConfig{Path: "notes", Extension: ".md", TemplatesDir: "_templates"}, false},
		{"defaults left empty", SourceConfig{Path: "notes"}, false},
		{"missing path", SourceConfig{}, true},
		{"extension without dot", SourceConfig{Path: "notes", Extension: "md"}, true},
		{"bare dot", SourceConfig{Path: "notes", Extension: "."}, true},
		{"nested templates dir", SourceConfig{Path: "notes", TemplatesDir: "a/b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputConfig_Validation(t *testing.T) {
	if err := (&OutputConfig{Path: "public", BasePath: "/site/"}).Validate(); err != nil {
		t.Errorf("valid output: %v", err)
	}
	if err := (&OutputConfig{Path: "public", BasePath: "site"}).Validate(); err == nil {
		t.Error("relative base path should fail")
	}
	if err := (&OutputConfig{}).Validate(); err == nil {
		t.Error("missing path should fail")
	}
}

func TestPipelineConfig_Validation(t *testing.T) {
	if err := (&PipelineConfig{Workers: -1}).Validate(); err == nil {
		t.Error("negative workers should fail")
	}
	if err := (&PipelineConfig{Workers: 4, TOC: true}).Validate(); err != nil {
		t.Errorf("valid pipeline: %v", err)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Source.Path = "/src"
	cfg.Output.BasePath = "/site/"
	cfg.Pipeline = PipelineConfig{Workers: 3, TOC: true, StrictFrontmatter: true}

	opts := cfg.PipelineOptions()
	if opts.SourceRoot != "/src" || opts.BasePath != "/site/" || opts.Workers != 3 {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.TOC || !opts.Parse.Strict {
		t.Errorf("flags not carried: %+v", opts)
	}
	if opts.Scan.Extension != ".md" || opts.Scan.TemplatesDir != "_templates" {
		t.Errorf("scan = %+v", opts.Scan)
	}
}
