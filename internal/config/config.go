package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the CLI looks for configuration when --config is not given.
const DefaultConfigPath = ".hearsay/config.yaml"

// Config holds all hearsay configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Grammar GrammarConfig `yaml:"grammar"`
	Lexicon LexiconConfig `yaml:"lexicon"`
	Morph   MorphConfig   `yaml:"morph"`
	Parser  ParserConfig  `yaml:"parser"`
	Speech  SpeechConfig  `yaml:"speech"`
	Store   StoreConfig   `yaml:"store"`
	Batch   BatchConfig   `yaml:"batch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GrammarConfig configures the grammar store and its loader.
type GrammarConfig struct {
	Path           string `yaml:"path"`
	MaxDictation   int    `yaml:"max_dictation"`   // N for * and + expansion
	ClosingMarkers bool   `yaml:"closing_markers"` // emit bare !/$/% after a fragment
	Watch          bool   `yaml:"watch"`
	Debounce       string `yaml:"debounce"`
}

// LexiconConfig configures the vocabulary and the typo corrector.
type LexiconConfig struct {
	Bins              int  `yaml:"bins"`
	BlockSize         int  `yaml:"block_size"`
	AllowSubstitution bool `yaml:"allow_substitution"`
	MinConfidence     int  `yaml:"min_confidence"` // 0..100
}

// MorphConfig configures the morphology engine.
type MorphConfig struct {
	MaxExceptions int `yaml:"max_exceptions"`
}

// ParserConfig configures the Earley parser.
type ParserConfig struct {
	MaxStates int `yaml:"max_states"`
}

// SpeechConfig configures speech-act classification and attention policy.
type SpeechConfig struct {
	AttentionMode string            `yaml:"attention_mode"` // always, anywhere, start, only
	QuestionHeads []string          `yaml:"question_heads"`
	CommandHeads  []string          `yaml:"command_heads"`
	FactHeads     []string          `yaml:"fact_heads"`
	RuleHeads     []string          `yaml:"rule_heads"`
	OpHeads       []string          `yaml:"op_heads"`
	ReviseHeads   []string          `yaml:"revise_heads"`
	Templates     map[string]string `yaml:"templates"`
	PolicyFile    string            `yaml:"policy_file"` // extra Mangle rules loaded after the built-in policy
}

// StoreConfig configures the learned-lexicon journal.
type StoreConfig struct {
	Enabled     bool   `yaml:"enabled"`
	JournalPath string `yaml:"journal_path"`
}

// BatchConfig configures parse-file.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// ValidAttentionModes lists the accepted speech.attention_mode values.
var ValidAttentionModes = []string{"always", "anywhere", "start", "only"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "hearsay",
		Version: "0.3.0",

		Grammar: GrammarConfig{
			Path:         "grammar/main.sgm",
			MaxDictation: 5,
			Debounce:     "500ms",
		},

		Lexicon: LexiconConfig{
			Bins:      16,
			BlockSize: 64,
		},

		Morph: MorphConfig{
			MaxExceptions: 20000,
		},

		Parser: ParserConfig{
			MaxStates: 200000,
		},

		Speech: SpeechConfig{
			AttentionMode: "anywhere",
			QuestionHeads: []string{"question", "query", "ask"},
			CommandHeads:  []string{"command", "order", "request"},
			FactHeads:     []string{"fact", "statement", "tell"},
			RuleHeads:     []string{"new-rule", "rule"},
			OpHeads:       []string{"new-op", "operator", "teach"},
			ReviseHeads:   []string{"revise-op", "revise", "correction"},
		},

		Store: StoreConfig{
			Enabled:     true,
			JournalPath: ".hearsay/journal.db",
		},

		Batch: BatchConfig{
			Workers: 4,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still honor the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("HEARSAY_GRAMMAR"); path != "" {
		c.Grammar.Path = path
	}
	if level := os.Getenv("HEARSAY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv("HEARSAY_JOURNAL"); path != "" {
		c.Store.JournalPath = path
	}
	if mode := os.Getenv("HEARSAY_ATTENTION_MODE"); mode != "" {
		c.Speech.AttentionMode = mode
	}
	if n := os.Getenv("HEARSAY_MAX_DICTATION"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			c.Grammar.MaxDictation = v
		}
	}
}

// GetDebounce returns the grammar watcher debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Grammar.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Grammar.MaxDictation < 1 {
		return fmt.Errorf("grammar.max_dictation must be positive, got %d", c.Grammar.MaxDictation)
	}
	if c.Lexicon.Bins < 2 {
		return fmt.Errorf("lexicon.bins must be at least 2, got %d", c.Lexicon.Bins)
	}
	if c.Lexicon.BlockSize < 1 {
		return fmt.Errorf("lexicon.block_size must be positive, got %d", c.Lexicon.BlockSize)
	}
	if c.Lexicon.MinConfidence < 0 || c.Lexicon.MinConfidence > 100 {
		return fmt.Errorf("lexicon.min_confidence out of range 0..100: %d", c.Lexicon.MinConfidence)
	}

	validMode := false
	for _, m := range ValidAttentionModes {
		if c.Speech.AttentionMode == m {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid attention mode: %s (valid: %v)", c.Speech.AttentionMode, ValidAttentionModes)
	}

	if c.Store.Enabled && c.Store.JournalPath == "" {
		return fmt.Errorf("store.journal_path required when the journal is enabled")
	}

	return nil
}
