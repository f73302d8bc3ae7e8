package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Path = "vocab.csv"
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Storage.Path != "." {
		t.Errorf("expected storage path '.', got %q", cfg.Storage.Path)
	}
	if !cfg.Source.TrimSpace {
		t.Error("csv fields should be trimmed by default")
	}
}

func TestResolve_AbsoluteSourcePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Path = "/data/in/vocab.csv"
	cfg.Resolve()

	if cfg.Storage.Path != "/data/in" {
		t.Errorf("expected storage path /data/in, got %q", cfg.Storage.Path)
	}
	if cfg.Source.Path != "vocab.csv" {
		t.Errorf("expected source path vocab.csv, got %q", cfg.Source.Path)
	}
}

func TestResolve_ModeFromRanges(t *testing.T) {
	cfg := &Config{}
	cfg.Partition.Ranges = []RangeConfig{{Lower: 0, Upper: 2}}
	cfg.Resolve()
	if cfg.Partition.Mode != ModeCustom {
		t.Errorf("expected custom mode, got %q", cfg.Partition.Mode)
	}

	cfg = &Config{}
	cfg.Resolve()
	if cfg.Partition.Mode != ModeEqual {
		t.Errorf("expected equal mode, got %q", cfg.Partition.Mode)
	}
	if cfg.Source.Format != FormatCSV || cfg.Source.Delimiter != "," || cfg.Storage.Type != "local" {
		t.Errorf("expected csv defaults, got %+v", cfg.Source)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing path", func(c *Config) { c.Source.Path = "" }, true},
		{"bad format", func(c *Config) { c.Source.Format = "parquet" }, true},
		{"bad compression", func(c *Config) { c.Source.Compression = "gzip" }, true},
		{"snappy compression", func(c *Config) { c.Source.Compression = "snappy" }, false},
		{"long delimiter", func(c *Config) { c.Source.Delimiter = ";;" }, true},
		{"tab delimiter", func(c *Config) { c.Source.Delimiter = "\t" }, false},
		{"arrow source", func(c *Config) { c.Source.Format = FormatArrow }, false},
		{"sqlite without query", func(c *Config) { c.Source.Format = FormatSQLite }, true},
		{"sqlite with query", func(c *Config) {
			c.Source.Format = FormatSQLite
			c.Source.Query = "SELECT * FROM words"
		}, false},
		{"zero groups", func(c *Config) { c.Partition.Groups = 0 }, true},
		{"custom without ranges", func(c *Config) { c.Partition.Mode = ModeCustom }, true},
		{"custom with ranges", func(c *Config) {
			c.Partition.Mode = ModeCustom
			c.Partition.Ranges = []RangeConfig{{Lower: 0, Upper: 3}}
		}, false},
		{"header mode headerless csv", func(c *Config) {
			c.Partition.Mode = ModeHeader
			c.Source.HasHeader = false
		}, true},
		{"bad mode", func(c *Config) { c.Partition.Mode = "random" }, true},
		{"bad storage", func(c *Config) { c.Storage.Type = "gcs" }, true},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, true},
		{"s3 with bucket", func(c *Config) {
			c.Storage.Type = "s3"
			c.Storage.S3.Bucket = "wordlists"
		}, false},
		{"sqlite on s3", func(c *Config) {
			c.Storage.Type = "s3"
			c.Storage.S3.Bucket = "wordlists"
			c.Source.Format = FormatSQLite
			c.Source.Query = "SELECT 1"
		}, false},
		{"bad output", func(c *Config) { c.Output.Format = "xml" }, true},
		{"negative max rows", func(c *Config) { c.Output.MaxRows = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Source.Path = "vocab.csv"
			cfg.Resolve()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && cgerrors.GetCategory(err) != cgerrors.ErrCategoryConfig {
				t.Errorf("expected CONFIG category, got %s", cgerrors.GetCategory(err))
			}
		})
	}
}

func TestComma(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Comma() != ',' {
		t.Errorf("expected ',', got %q", cfg.Comma())
	}
	cfg.Source.Delimiter = "|"
	if cfg.Comma() != '|' {
		t.Errorf("expected '|', got %q", cfg.Comma())
	}
	cfg.Source.Delimiter = ""
	if cfg.Comma() != ',' {
		t.Errorf("expected fallback ',', got %q", cfg.Comma())
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colgroup.yaml")
	data := `
source:
  path: vocab.csv
  delimiter: ";"
  trim_space: true
partition:
  mode: custom
  ranges:
    - name: verbs
      lower: 0
      upper: 3
    - name: adjectives
      lower: 3
      upper: 6
output:
  format: json
  max_rows: 10
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Source.Path != "vocab.csv" || cfg.Source.Delimiter != ";" || !cfg.Source.TrimSpace {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if !cfg.Source.HasHeader {
		t.Error("has_header should keep its default")
	}
	if cfg.Partition.Mode != ModeCustom || len(cfg.Partition.Ranges) != 2 {
		t.Fatalf("unexpected partition: %+v", cfg.Partition)
	}
	if cfg.Partition.Ranges[1] != (RangeConfig{Name: "adjectives", Lower: 3, Upper: 6}) {
		t.Errorf("unexpected range: %+v", cfg.Partition.Ranges[1])
	}
	if cfg.Output.Format != "json" || cfg.Output.MaxRows != 10 {
		t.Errorf("unexpected output: %+v", cfg.Output)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colgroup.json")
	data := `{"source": {"path": "words.arrow", "format": "arrow"}, "partition": {"groups": 4}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Source.Format != FormatArrow || cfg.Partition.Groups != 4 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.Source.TrimSpace {
		t.Error("trim_space should keep its default when omitted")
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	toml := filepath.Join(dir, "colgroup.toml")
	if err := os.WriteFile(toml, []byte("x = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(toml); err == nil {
		t.Error("expected error for unsupported extension")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COLGROUP_SOURCE_PATH", "s3-words.csv")
	t.Setenv("COLGROUP_SOURCE_HAS_HEADER", "false")
	t.Setenv("COLGROUP_SOURCE_COMPRESSION", "snappy")
	t.Setenv("COLGROUP_PARTITION_GROUPS", "5")
	t.Setenv("COLGROUP_PARTITION_RANGES", "a:0-2,b:2-4")
	t.Setenv("COLGROUP_STORAGE_TYPE", "s3")
	t.Setenv("COLGROUP_S3_BUCKET", "wordlists")
	t.Setenv("COLGROUP_S3_USE_PATH_STYLE", "1")
	t.Setenv("COLGROUP_OUTPUT_MAX_ROWS", "notanumber")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Source.Path != "s3-words.csv" || cfg.Source.HasHeader || cfg.Source.Compression != "snappy" {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if cfg.Partition.Groups != 5 || len(cfg.Partition.Ranges) != 2 {
		t.Errorf("unexpected partition: %+v", cfg.Partition)
	}
	if cfg.Storage.Type != "s3" || cfg.Storage.S3.Bucket != "wordlists" || !cfg.Storage.S3.UsePathStyle {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Output.MaxRows != 0 {
		t.Errorf("unparseable max rows should be ignored, got %d", cfg.Output.MaxRows)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COLGROUP_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("COLGROUP_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("COLGROUP_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Errorf("empty path should be ignored: %v", err)
	}
}

func TestParseRanges(t *testing.T) {
	tests := []struct {
		in      string
		want    []RangeConfig
		wantErr bool
	}{
		{in: "verbs:0-3,adjectives:3-6", want: []RangeConfig{{"verbs", 0, 3}, {"adjectives", 3, 6}}},
		{in: "0-3, 3-6", want: []RangeConfig{{"", 0, 3}, {"", 3, 6}}},
		{in: " ids : 2 - 4 ,", want: []RangeConfig{{"ids", 2, 4}}},
		{in: "", wantErr: true},
		{in: "0:3", wantErr: true},
		{in: "a:x-3", wantErr: true},
		{in: "a:0-y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRanges(tt.in)
			if tt.wantErr {
				var ce *cgerrors.ColgroupError
				if !errors.As(err, &ce) || ce.Code != cgerrors.CodeInvalidConfig {
					t.Fatalf("expected INVALID_CONFIG, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRanges(%q) failed: %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("range %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
