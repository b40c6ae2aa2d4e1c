// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     config
// Description: Application configuration from TOML or YAML files
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "DOLMETSCHER_"

// Config holds the complete application configuration
type Config struct {
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Audio     AudioConfig     `toml:"audio" yaml:"audio"`
	Silence   SilenceConfig   `toml:"silence" yaml:"silence"`
	Session   SessionConfig   `toml:"session" yaml:"session"`
	VAD       VADConfig       `toml:"vad" yaml:"vad"`
	Models    ModelsConfig    `toml:"models" yaml:"models"`
	Synthesis SynthesisConfig `toml:"synthesis" yaml:"synthesis"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Archive   ArchiveConfig   `toml:"archive" yaml:"archive"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Hotkey    HotkeyConfig    `toml:"hotkey" yaml:"hotkey"`
	Memory    MemoryConfig    `toml:"memory" yaml:"memory"`
}

// LoggingConfig configures the root logger
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `toml:"format" yaml:"format" validate:"oneof=text json"`
	File   string `toml:"file" yaml:"file"`
}

// AudioConfig configures the capture source
type AudioConfig struct {
	// Source is "microphone" or "synthetic"
	Source          string `toml:"source" yaml:"source" validate:"oneof=microphone synthetic"`
	SampleRate      int    `toml:"sample_rate" yaml:"sample_rate" validate:"oneof=8000 16000 32000 48000"`
	FramesPerBuffer int    `toml:"frames_per_buffer" yaml:"frames_per_buffer" validate:"gte=80,lte=8192"`
	Device          string `toml:"device" yaml:"device"`
	QueueSize       int    `toml:"queue_size" yaml:"queue_size" validate:"gte=1,lte=1024"`
}

// SilenceConfig configures the silence detector
type SilenceConfig struct {
	Threshold float64  `toml:"threshold" yaml:"threshold" validate:"gte=0,lte=1"`
	Duration  Duration `toml:"duration" yaml:"duration"`
}

// SessionConfig configures the coordinator
type SessionConfig struct {
	ManualMode     bool     `toml:"manual_mode" yaml:"manual_mode"`
	SourceLanguage string   `toml:"source_language" yaml:"source_language" validate:"oneof=en fr es de it pt"`
	TargetLanguage string   `toml:"target_language" yaml:"target_language" validate:"oneof=en fr es de it pt"`
	Workers        int      `toml:"workers" yaml:"workers" validate:"gte=1,lte=8"`
	MaxUtterance   Duration `toml:"max_utterance" yaml:"max_utterance"`
	Smoothing      float64  `toml:"smoothing" yaml:"smoothing" validate:"gte=0,lt=1"`
}

// VADConfig configures the optional speech gate
type VADConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	Mode    int  `toml:"mode" yaml:"mode" validate:"gte=0,lte=3"`
}

// ModelsConfig lists the installed models
type ModelsConfig struct {
	SpeechLanguages  []string `toml:"speech_languages" yaml:"speech_languages" validate:"dive,oneof=en fr es de it pt"`
	TranslationPairs []string `toml:"translation_pairs" yaml:"translation_pairs"`
}

// SynthesisConfig configures speech output
type SynthesisConfig struct {
	Enabled bool              `toml:"enabled" yaml:"enabled"`
	Engine  string            `toml:"engine" yaml:"engine" validate:"oneof=say log"`
	Volume  float64           `toml:"volume" yaml:"volume" validate:"gte=0,lte=1"`
	Rate    int               `toml:"rate" yaml:"rate" validate:"gte=50,lte=500"`
	Voices  map[string]string `toml:"voices" yaml:"voices"`
}

// StorageConfig configures the conversation history database
type StorageConfig struct {
	Enabled      bool   `toml:"enabled" yaml:"enabled"`
	Path         string `toml:"path" yaml:"path"`
	RestoreLimit int    `toml:"restore_limit" yaml:"restore_limit" validate:"gte=0"`
}

// ArchiveConfig configures transcript export
type ArchiveConfig struct {
	Dir string   `toml:"dir" yaml:"dir"`
	S3  S3Config `toml:"s3" yaml:"s3"`
}

// S3Config configures the optional S3 upload
type S3Config struct {
	Bucket          string `toml:"bucket" yaml:"bucket"`
	Region          string `toml:"region" yaml:"region"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Prefix          string `toml:"prefix" yaml:"prefix"`
	AccessKeyID     string `toml:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key" yaml:"secret_access_key"`
}

// ServerConfig configures the observer endpoints
type ServerConfig struct {
	HTTP HTTPConfig `toml:"http" yaml:"http"`
	GRPC GRPCConfig `toml:"grpc" yaml:"grpc"`
}

// HTTPConfig configures the HTTP API and websocket hub
type HTTPConfig struct {
	Enabled        bool     `toml:"enabled" yaml:"enabled"`
	Host           string   `toml:"host" yaml:"host"`
	Port           int      `toml:"port" yaml:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
}

// GRPCConfig configures the health endpoint
type GRPCConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Host    string `toml:"host" yaml:"host"`
	Port    int    `toml:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// HotkeyConfig configures the global start/stop key
type HotkeyConfig struct {
	Enabled   bool     `toml:"enabled" yaml:"enabled"`
	Key       string   `toml:"key" yaml:"key" validate:"omitempty,max=6,alphanum"`
	Modifiers []string `toml:"modifiers" yaml:"modifiers" validate:"dive,oneof=ctrl control shift alt option super cmd command win"`
}

// MemoryConfig configures the memory monitor
type MemoryConfig struct {
	Interval Duration `toml:"interval" yaml:"interval"`
	BudgetMB int      `toml:"budget_mb" yaml:"budget_mb" validate:"gte=16"`
	Warning  float64  `toml:"warning" yaml:"warning" validate:"gt=0,lt=1"`
	Critical float64  `toml:"critical" yaml:"critical" validate:"gt=0,lte=1"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %v", node.Tag)
	}
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalYAML formats the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as TOML. Defaults fill missing values,
// environment overrides are applied last and the result is validated.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Newf(apperr.CodeInvalidConfig, "config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := decode(path, data, cfg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInvalidConfig, "failed to parse config").
			WithDetail("path", path)
	}

	cfg.applyDefaults()
	cfg.applyEnv(os.LookupEnv)
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by DOLMETSCHER_CONFIG or the first
// default location that exists. Without any file the defaults are used.
func LoadFromEnv() (*Config, string, error) {
	path := os.Getenv(EnvPrefix + "CONFIG")
	if path == "" {
		for _, p := range DefaultPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		cfg := Default()
		cfg.applyEnv(os.LookupEnv)
		cfg.expandEnvVars()
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	cfg, err := Load(path)
	return cfg, path, err
}

// DefaultPaths returns the locations searched by LoadFromEnv
func DefaultPaths() []string {
	paths := []string{
		"./configs/dolmetscher.toml",
		"./dolmetscher.toml",
		"./dolmetscher.yaml",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "dolmetscher", "config.toml"),
			filepath.Join(dir, "dolmetscher", "config.yaml"))
	}
	return paths
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown config key %q", undecoded[0].String())
		}
		return nil
	}
}

// Encode writes the configuration in the given format ("toml" or "yaml")
func (c *Config) Encode(format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case "toml", "":
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Newf(apperr.CodeInvalidConfig, "unknown format %q", format)
	}
	return buf.Bytes(), nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	// Audio
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FramesPerBuffer == 0 {
		c.Audio.FramesPerBuffer = 512
	}
	if c.Audio.QueueSize == 0 {
		c.Audio.QueueSize = 64
	}

	// Silence
	if c.Silence.Threshold == 0 {
		c.Silence.Threshold = 0.1
	}
	if c.Silence.Duration.Duration == 0 {
		c.Silence.Duration.Duration = 1500 * time.Millisecond
	}

	// Session
	if c.Session.SourceLanguage == "" {
		c.Session.SourceLanguage = "fr"
	}
	if c.Session.TargetLanguage == "" {
		c.Session.TargetLanguage = "en"
	}
	if c.Session.Workers == 0 {
		c.Session.Workers = 1
	}
	if c.Session.MaxUtterance.Duration == 0 {
		c.Session.MaxUtterance.Duration = 30 * time.Second
	}

	// VAD
	if c.VAD.Mode == 0 {
		c.VAD.Mode = 2
	}

	// Models
	if c.Models.SpeechLanguages == nil {
		c.Models.SpeechLanguages = []string{"fr", "en", "es"}
	}
	if c.Models.TranslationPairs == nil {
		c.Models.TranslationPairs = []string{"fr-en", "en-fr", "en-es", "es-en"}
	}

	// Synthesis and storage sections without engine/path count as unset
	if c.Synthesis.Engine == "" {
		c.Synthesis.Engine = "say"
		c.Synthesis.Enabled = true
	}
	if c.Synthesis.Volume == 0 {
		c.Synthesis.Volume = 1.0
	}
	if c.Synthesis.Rate == 0 {
		c.Synthesis.Rate = 180
	}

	if c.Storage.Path == "" {
		c.Storage.Path = defaultDataPath("history.db")
		c.Storage.Enabled = true
	}
	if c.Storage.RestoreLimit == 0 {
		c.Storage.RestoreLimit = 100
	}

	// Archive
	if c.Archive.Dir == "" {
		c.Archive.Dir = defaultDataPath("transcripts")
	}
	if c.Archive.S3.Prefix == "" {
		c.Archive.S3.Prefix = "transcripts"
	}

	// Server
	if c.Server.HTTP.Host == "" {
		c.Server.HTTP.Host = "127.0.0.1"
	}
	if c.Server.HTTP.Port == 0 {
		c.Server.HTTP.Port = 8470
	}
	if c.Server.GRPC.Host == "" {
		c.Server.GRPC.Host = "127.0.0.1"
	}
	if c.Server.GRPC.Port == 0 {
		c.Server.GRPC.Port = 9470
	}

	// Hotkey
	if c.Hotkey.Key == "" {
		c.Hotkey.Key = "T"
	}
	if c.Hotkey.Modifiers == nil {
		c.Hotkey.Modifiers = []string{"ctrl", "shift"}
	}

	// Memory
	if c.Memory.Interval.Duration == 0 {
		c.Memory.Interval.Duration = 5 * time.Second
	}
	if c.Memory.BudgetMB == 0 {
		c.Memory.BudgetMB = 2048
	}
	if c.Memory.Warning == 0 {
		c.Memory.Warning = 0.75
	}
	if c.Memory.Critical == 0 {
		c.Memory.Critical = 0.90
	}
}

// applyEnv applies DOLMETSCHER_* overrides. Malformed values are ignored
// and left to validation of the file value.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				dst.Duration = d
			}
		}
	}

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("AUDIO_SOURCE", &c.Audio.Source)
	str("AUDIO_DEVICE", &c.Audio.Device)
	float("SILENCE_THRESHOLD", &c.Silence.Threshold)
	duration("SILENCE_DURATION", &c.Silence.Duration)
	boolean("MANUAL_MODE", &c.Session.ManualMode)
	str("SOURCE_LANGUAGE", &c.Session.SourceLanguage)
	str("TARGET_LANGUAGE", &c.Session.TargetLanguage)
	boolean("VAD_ENABLED", &c.VAD.Enabled)
	boolean("SYNTHESIS_ENABLED", &c.Synthesis.Enabled)
	str("STORAGE_PATH", &c.Storage.Path)
	str("ARCHIVE_DIR", &c.Archive.Dir)
	str("S3_BUCKET", &c.Archive.S3.Bucket)
	str("S3_REGION", &c.Archive.S3.Region)
	str("S3_ENDPOINT", &c.Archive.S3.Endpoint)
	str("S3_ACCESS_KEY_ID", &c.Archive.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &c.Archive.S3.SecretAccessKey)
	boolean("HTTP_ENABLED", &c.Server.HTTP.Enabled)
	boolean("GRPC_ENABLED", &c.Server.GRPC.Enabled)
}

// expandEnvVars expands environment variables in path and secret values
func (c *Config) expandEnvVars() {
	c.Logging.File = os.ExpandEnv(c.Logging.File)
	c.Storage.Path = os.ExpandEnv(c.Storage.Path)
	c.Archive.Dir = os.ExpandEnv(c.Archive.Dir)
	c.Archive.S3.AccessKeyID = os.ExpandEnv(c.Archive.S3.AccessKeyID)
	c.Archive.S3.SecretAccessKey = os.ExpandEnv(c.Archive.S3.SecretAccessKey)
}

// HTTPAddress returns host:port of the HTTP server
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.HTTP.Host, c.Server.HTTP.Port)
}

// GRPCAddress returns host:port of the gRPC server
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.GRPC.Host, c.Server.GRPC.Port)
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "data", name)
	}
	return filepath.Join(home, ".local", "share", "dolmetscher", name)
}
