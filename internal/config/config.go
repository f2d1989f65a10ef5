package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/policy"
)

// SourceTypeFileSystem is the only source type currently understood.
const SourceTypeFileSystem = "filesystem"

// Config represents the complete silo configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Sources    []SourceConfig   `yaml:"sources" json:"sources"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Indexer    IndexerConfig    `yaml:"indexer" json:"indexer"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Preview    PreviewConfig    `yaml:"preview" json:"preview"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// SourceConfig describes one content source. New source kinds become new
// Type values; today only "filesystem" exists.
type SourceConfig struct {
	Type             string   `yaml:"type" json:"type"`
	Roots            []string `yaml:"roots" json:"roots"`
	ExcludeGlobs     []string `yaml:"exclude_globs" json:"exclude_globs"`
	AllowExtensions  []string `yaml:"allow_extensions" json:"allow_extensions"`
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
	MaxTextBytes     int64    `yaml:"max_text_bytes" json:"max_text_bytes"`
	FollowSymlinks   bool     `yaml:"follow_symlinks" json:"follow_symlinks"`
}

// UnmarshalYAML fills omitted size limits with their defaults so a
// hand-written source entry does not end up with zero caps.
func (s *SourceConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SourceConfig
	seed := plain{
		Type:             SourceTypeFileSystem,
		MaxFileSizeBytes: policy.DefaultMaxFileSizeBytes,
		MaxTextBytes:     policy.DefaultMaxTextBytes,
	}
	if err := value.Decode(&seed); err != nil {
		return err
	}
	*s = SourceConfig(seed)
	return nil
}

// PolicyOptions converts the source into policy compiler input.
func (s SourceConfig) PolicyOptions() policy.Options {
	return policy.Options{
		ExcludeGlobs:     s.ExcludeGlobs,
		AllowExtensions:  s.AllowExtensions,
		MaxFileSizeBytes: s.MaxFileSizeBytes,
		MaxTextBytes:     s.MaxTextBytes,
		FollowSymlinks:   s.FollowSymlinks,
	}
}

// ChunkingConfig configures the whitespace window chunker.
type ChunkingConfig struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is one of noop, static, ollama or onnx.
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	OllamaHost string `yaml:"ollama_host" json:"ollama_host"` // default http://localhost:11434

	ONNXModelPath   string `yaml:"onnx_model_path" json:"onnx_model_path"`
	ONNXLibraryPath string `yaml:"onnx_library_path" json:"onnx_library_path"`
	MaxTokens       int    `yaml:"max_tokens" json:"max_tokens"`

	CacheSize int `yaml:"cache_size" json:"cache_size"` // 0 disables the query cache
	// InferenceWorkers bounds concurrent local inference. 0 means NumCPU/2.
	InferenceWorkers int `yaml:"inference_workers" json:"inference_workers"`
}

// IndexerConfig configures bulk indexing runs.
type IndexerConfig struct {
	Concurrency     int `yaml:"concurrency" json:"concurrency"`
	MaxFiles        int `yaml:"max_files" json:"max_files"` // 0 = unlimited
	MaxSampleErrors int `yaml:"max_sample_errors" json:"max_sample_errors"`
	QueueDepth      int `yaml:"queue_depth" json:"queue_depth"` // 0 = concurrency
}

// StoreConfig configures the vector store.
type StoreConfig struct {
	DataDir  string `yaml:"data_dir" json:"data_dir"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
}

// PreviewConfig caps the read-only preview operations.
type PreviewConfig struct {
	MaxSamples        int `yaml:"max_samples" json:"max_samples"`
	MaxSkippedSamples int `yaml:"max_skipped_samples" json:"max_skipped_samples"`
	ContentChars      int `yaml:"content_chars" json:"content_chars"`
}

// ServerConfig configures the tool server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig creates a new Config with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Sources: []SourceConfig{DefaultSource()},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "noop",
			Model:      "nomic-embed-text",
			Dimensions: 384,
			BatchSize:  32,
			MaxTokens:  256,
			CacheSize:  1000,
		},
		Indexer: IndexerConfig{
			Concurrency:     2,
			MaxSampleErrors: 20,
		},
		Store: StoreConfig{
			DataDir: "~/.silo/data",
		},
		Preview: PreviewConfig{
			MaxSamples:        200,
			MaxSkippedSamples: 200,
			ContentChars:      240,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// DefaultSource returns the default filesystem source: the whole home
// directory behind the built-in exclusions.
func DefaultSource() SourceConfig {
	return SourceConfig{
		Type:             SourceTypeFileSystem,
		Roots:            []string{homeDir()},
		ExcludeGlobs:     policy.DefaultExcludeGlobs(),
		AllowExtensions:  policy.DefaultExtensions(),
		MaxFileSizeBytes: policy.DefaultMaxFileSizeBytes,
		MaxTextBytes:     policy.DefaultMaxTextBytes,
	}
}

// FileSystem returns the first filesystem source, if any.
func (c *Config) FileSystem() (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Type == SourceTypeFileSystem {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Roots returns the filesystem roots with `~` expanded.
func (c *Config) Roots() []string {
	src, ok := c.FileSystem()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(src.Roots))
	for _, r := range src.Roots {
		out = append(out, ExpandTilde(r))
	}
	return out
}

// SetRoots replaces the filesystem roots, adding a default filesystem
// source when none exists.
func (c *Config) SetRoots(roots []string) {
	for i := range c.Sources {
		if c.Sources[i].Type == SourceTypeFileSystem {
			c.Sources[i].Roots = append([]string(nil), roots...)
			return
		}
	}
	src := DefaultSource()
	src.Roots = append([]string(nil), roots...)
	c.Sources = append(c.Sources, src)
}

// CompilePolicy compiles the filesystem source into a policy. It returns
// nil without error when no filesystem source is configured.
func (c *Config) CompilePolicy() (*policy.FileSystemPolicy, error) {
	src, ok := c.FileSystem()
	if !ok {
		return nil, nil
	}
	return policy.Compile(src.PolicyOptions())
}

// DataDir returns the store data directory with `~` expanded.
func (c *Config) DataDir() string {
	return ExpandTilde(c.Store.DataDir)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Sources = make([]SourceConfig, len(c.Sources))
	for i, s := range c.Sources {
		s.Roots = append([]string(nil), s.Roots...)
		s.ExcludeGlobs = append([]string(nil), s.ExcludeGlobs...)
		s.AllowExtensions = append([]string(nil), s.AllowExtensions...)
		out.Sources[i] = s
	}
	return &out
}

// DefaultConfigPath returns the configuration file location:
//   - $SILO_CONFIG_PATH (if set)
//   - ~/.config/silo/config.yaml (default)
func DefaultConfigPath() string {
	if p := os.Getenv("SILO_CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".config", "silo", "config.yaml")
}

// Load reads configuration from path. Values missing from the file keep
// their defaults; environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrInit loads path, writing the defaults there first if the file
// does not exist yet.
func LoadOrInit(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := NewConfig().WriteYAML(path); err != nil {
			return nil, err
		}
	}
	return Load(path)
}

// loadYAML decodes path over the receiver's current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return silerrors.New(silerrors.ErrCodeConfigNotFound, "config file not found: "+path, err)
		}
		return silerrors.IOError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return silerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// applyEnvOverrides applies SILO_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SILO_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SILO_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv("SILO_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("SILO_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("SILO_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("SILO_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Indexer.Concurrency = n
		}
	}
	if v := os.Getenv("SILO_STORE_DISABLED"); v != "" {
		c.Store.Disabled = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate validates the configuration and returns an error if invalid.
// Missing or inaccessible roots are not errors here; see the index
// config validation for those.
func (c *Config) Validate() error {
	for i, s := range c.Sources {
		if s.Type != SourceTypeFileSystem {
			return silerrors.ConfigError(fmt.Sprintf("sources[%d].type must be 'filesystem', got %q", i, s.Type), nil)
		}
		if s.MaxFileSizeBytes < 0 {
			return silerrors.ConfigError(fmt.Sprintf("sources[%d].max_file_size_bytes must be non-negative, got %d", i, s.MaxFileSizeBytes), nil)
		}
		if s.MaxTextBytes < 0 {
			return silerrors.ConfigError(fmt.Sprintf("sources[%d].max_text_bytes must be non-negative, got %d", i, s.MaxTextBytes), nil)
		}
	}

	if c.Chunking.Size < 0 {
		return silerrors.ConfigError(fmt.Sprintf("chunking.size must be non-negative, got %d", c.Chunking.Size), nil)
	}
	if c.Chunking.Overlap < 0 {
		return silerrors.ConfigError(fmt.Sprintf("chunking.overlap must be non-negative, got %d", c.Chunking.Overlap), nil)
	}
	if c.Chunking.Size > 0 && c.Chunking.Overlap >= c.Chunking.Size {
		return silerrors.ConfigError(fmt.Sprintf("chunking.overlap (%d) must be smaller than chunking.size (%d)", c.Chunking.Overlap, c.Chunking.Size), nil)
	}

	validProviders := map[string]bool{"noop": true, "static": true, "ollama": true, "onnx": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return silerrors.ConfigError(fmt.Sprintf("embeddings.provider must be 'noop', 'static', 'ollama' or 'onnx', got %q", c.Embeddings.Provider), nil)
	}
	if c.Embeddings.Dimensions < 0 || c.Embeddings.BatchSize < 0 || c.Embeddings.CacheSize < 0 ||
		c.Embeddings.MaxTokens < 0 || c.Embeddings.InferenceWorkers < 0 {
		return silerrors.ConfigError("embeddings sizes must be non-negative", nil)
	}

	if c.Indexer.Concurrency < 1 {
		return silerrors.ConfigError(fmt.Sprintf("indexer.concurrency must be at least 1, got %d", c.Indexer.Concurrency), nil)
	}
	if c.Indexer.MaxFiles < 0 || c.Indexer.MaxSampleErrors < 0 || c.Indexer.QueueDepth < 0 {
		return silerrors.ConfigError("indexer limits must be non-negative", nil)
	}

	if c.Preview.MaxSamples < 0 || c.Preview.MaxSkippedSamples < 0 || c.Preview.ContentChars < 0 {
		return silerrors.ConfigError("preview limits must be non-negative", nil)
	}

	if !strings.EqualFold(c.Server.Transport, "stdio") {
		return silerrors.ConfigError(fmt.Sprintf("server.transport must be 'stdio', got %q", c.Server.Transport), nil)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return silerrors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel), nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return silerrors.ConfigError("failed to marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return silerrors.IOError("failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return silerrors.IOError("failed to write config file", err)
	}

	return nil
}

// ExpandTilde resolves a leading `~` or `~/` against $HOME. Other paths
// are returned unchanged.
func ExpandTilde(path string) string {
	if path == "~" {
		return homeDir()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir(), rest)
	}
	return path
}

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}
