package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oceanbase/embetter-go/pkg/logging"
	"github.com/oceanbase/embetter-go/pkg/pairs"
)

// Default model settings.
const (
	DefaultSize         = 32
	DefaultNegSamples   = 5
	DefaultEpochs       = 5
	DefaultBatchSize    = 512
	DefaultVerbose      = 1
	DefaultLearningRate = 0.001
)

// Config contains the complete configuration for an embetter client.
//
// It includes settings for:
//   - the estimator (pair generation and training)
//   - an optional checkpoint store for persisting trained models
//   - an optional embedding provider for training on raw text
//   - logging
//
// Example:
//
//	config := core.DefaultConfig()
//	config.Model.Size = 64
//	config.CheckpointStore = &core.CheckpointStoreConfig{
//	    Provider: "sqlite",
//	    Config: map[string]interface{}{
//	        "db_path": "./checkpoints.db",
//	    },
//	}
type Config struct {
	// Model contains estimator settings.
	Model ModelConfig `json:"model" yaml:"model"`

	// CheckpointStore contains checkpoint store configuration (optional).
	CheckpointStore *CheckpointStoreConfig `json:"checkpoint_store,omitempty" yaml:"checkpoint_store,omitempty"`

	// Embedder contains embedding provider configuration (optional).
	Embedder *EmbedderConfig `json:"embedder,omitempty" yaml:"embedder,omitempty"`

	// Logging contains logger configuration (optional, defaults to info-level JSON on stderr).
	Logging *logging.Config `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ModelConfig contains the estimator settings.
type ModelConfig struct {
	// MultiOutput means labels are supplied as a multi-hot matrix instead of strings.
	MultiOutput bool `json:"multi_output" yaml:"multi_output"`

	// NegSamples is the number of negative pairs drawn per sample.
	NegSamples int `json:"neg_samples" yaml:"neg_samples"`

	// Size is the embedding width.
	Size int `json:"size" yaml:"size"`

	// Epochs is the number of passes over the pairs per fit call.
	Epochs int `json:"epochs" yaml:"epochs"`

	// BatchSize is the mini-batch size.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Verbose controls training logs: 0 silent, 1 per epoch, 2 per batch.
	Verbose int `json:"verbose" yaml:"verbose"`

	// Seed seeds pair sampling, weight initialization and shuffling.
	// Zero seeds from the clock.
	Seed int64 `json:"seed" yaml:"seed"`

	// LearningRate is the Adam learning rate.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`

	// NegativeSampling selects how negative candidates are encoded
	// ("sampled" or "legacy").
	NegativeSampling pairs.NegativeMode `json:"negative_sampling" yaml:"negative_sampling"`
}

// CheckpointStoreConfig contains configuration for the checkpoint store.
//
// Supported providers: sqlite, postgres, oceanbase
//
// Example:
//
//	storeConfig := core.CheckpointStoreConfig{
//	    Provider: "postgres",
//	    Config: map[string]interface{}{
//	        "host":     "localhost",
//	        "port":     5432,
//	        "user":     "postgres",
//	        "password": "secret",
//	        "db_name":  "embetter",
//	    },
//	}
type CheckpointStoreConfig struct {
	// Provider is the store provider name (sqlite, postgres, oceanbase).
	Provider string `json:"provider" yaml:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For OceanBase: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config" yaml:"config"`
}

// EmbedderConfig contains configuration for the text embedding provider.
//
// Supported providers: openai, qwen
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	// Empty uses the provider default.
	Model string `json:"model" yaml:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors.
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`

	// BatchSize caps the number of texts per request. Zero sends all at once.
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// DefaultConfig returns the estimator defaults with no store or embedder.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			NegSamples:       DefaultNegSamples,
			Size:             DefaultSize,
			Epochs:           DefaultEpochs,
			BatchSize:        DefaultBatchSize,
			Verbose:          DefaultVerbose,
			LearningRate:     DefaultLearningRate,
			NegativeSampling: pairs.NegativeSampled,
		},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Overlays the variables on DefaultConfig
//
// Supported environment variables:
//   - EMBETTER_MULTI_OUTPUT, EMBETTER_NEG_SAMPLES, EMBETTER_SIZE, EMBETTER_EPOCHS,
//     EMBETTER_BATCH_SIZE, EMBETTER_VERBOSE, EMBETTER_SEED, EMBETTER_LEARNING_RATE,
//     EMBETTER_NEGATIVE_SAMPLING
//   - DATABASE_PROVIDER (sqlite, postgres, oceanbase) enables the checkpoint store
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DATABASE,
//     POSTGRES_TABLE, POSTGRES_SSLMODE
//   - OCEANBASE_HOST, OCEANBASE_PORT, OCEANBASE_USER, OCEANBASE_PASSWORD,
//     OCEANBASE_DATABASE, OCEANBASE_TABLE
//   - EMBEDDING_PROVIDER enables the embedder; EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL, EMBEDDING_DIMS, EMBEDDING_BATCH_SIZE
//   - LOG_LEVEL, LOG_FORMAT, LOG_FILE, LOG_CONSOLE
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	}

	config := DefaultConfig()
	m := &config.Model
	var err error

	if m.MultiOutput, err = envBool("EMBETTER_MULTI_OUTPUT", m.MultiOutput); err != nil {
		return nil, err
	}
	if m.NegSamples, err = envInt("EMBETTER_NEG_SAMPLES", m.NegSamples); err != nil {
		return nil, err
	}
	if m.Size, err = envInt("EMBETTER_SIZE", m.Size); err != nil {
		return nil, err
	}
	if m.Epochs, err = envInt("EMBETTER_EPOCHS", m.Epochs); err != nil {
		return nil, err
	}
	if m.BatchSize, err = envInt("EMBETTER_BATCH_SIZE", m.BatchSize); err != nil {
		return nil, err
	}
	if m.Verbose, err = envInt("EMBETTER_VERBOSE", m.Verbose); err != nil {
		return nil, err
	}
	if m.LearningRate, err = envFloat("EMBETTER_LEARNING_RATE", m.LearningRate); err != nil {
		return nil, err
	}
	if v := os.Getenv("EMBETTER_SEED"); v != "" {
		if m.Seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, NewEmbetterError("LoadConfigFromEnv", fmt.Errorf("%w: EMBETTER_SEED=%q", ErrInvalidConfig, v))
		}
	}
	m.NegativeSampling = pairs.NegativeMode(getEnvOrDefault("EMBETTER_NEGATIVE_SAMPLING", string(m.NegativeSampling)))

	// Checkpoint store
	switch provider := os.Getenv("DATABASE_PROVIDER"); provider {
	case "":
	case "sqlite":
		config.CheckpointStore = &CheckpointStoreConfig{
			Provider: provider,
			Config: map[string]interface{}{
				"db_path":    getEnvOrDefault("SQLITE_PATH", "./embetter.db"),
				"table_name": os.Getenv("SQLITE_TABLE"),
			},
		}
	case "postgres":
		port, err := envInt("POSTGRES_PORT", 5432)
		if err != nil {
			return nil, err
		}
		config.CheckpointStore = &CheckpointStoreConfig{
			Provider: provider,
			Config: map[string]interface{}{
				"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
				"port":       port,
				"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
				"password":   os.Getenv("POSTGRES_PASSWORD"),
				"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "embetter"),
				"table_name": os.Getenv("POSTGRES_TABLE"),
				"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
			},
		}
	case "oceanbase":
		port, err := envInt("OCEANBASE_PORT", 2881)
		if err != nil {
			return nil, err
		}
		config.CheckpointStore = &CheckpointStoreConfig{
			Provider: provider,
			Config: map[string]interface{}{
				"host":       getEnvOrDefault("OCEANBASE_HOST", "127.0.0.1"),
				"port":       port,
				"user":       getEnvOrDefault("OCEANBASE_USER", "root@sys"),
				"password":   os.Getenv("OCEANBASE_PASSWORD"),
				"db_name":    getEnvOrDefault("OCEANBASE_DATABASE", "embetter"),
				"table_name": os.Getenv("OCEANBASE_TABLE"),
			},
		}
	default:
		return nil, NewEmbetterError("LoadConfigFromEnv", fmt.Errorf("%w: unknown DATABASE_PROVIDER %q", ErrInvalidConfig, provider))
	}

	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		dims, err := envInt("EMBEDDING_DIMS", 0)
		if err != nil {
			return nil, err
		}
		batch, err := envInt("EMBEDDING_BATCH_SIZE", 0)
		if err != nil {
			return nil, err
		}
		config.Embedder = &EmbedderConfig{
			Provider:   provider,
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      os.Getenv("EMBEDDING_MODEL"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
			BatchSize:  batch,
		}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = getEnvOrDefault("LOG_LEVEL", logCfg.Level)
	logCfg.Format = getEnvOrDefault("LOG_FORMAT", logCfg.Format)
	logCfg.OutputFile = os.Getenv("LOG_FILE")
	if logCfg.Console, err = envBool("LOG_CONSOLE", logCfg.Console); err != nil {
		return nil, err
	}
	config.Logging = logCfg

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Fields missing from the file keep their DefaultConfig values.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEmbetterError("LoadConfigFromJSON", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, NewEmbetterError("LoadConfigFromJSON", err)
	}

	return config, nil
}

// LoadConfigFromYAML loads configuration from a YAML file.
//
// Fields missing from the file keep their DefaultConfig values.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEmbetterError("LoadConfigFromYAML", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, NewEmbetterError("LoadConfigFromYAML", err)
	}

	return config, nil
}

// Validate validates the configuration.
//
// Checks that:
//   - Size, Epochs, BatchSize and LearningRate are positive
//   - NegSamples is not negative and Verbose is 0, 1 or 2
//   - the negative sampling mode is known
//   - store and embedder providers, when set, are supported
//
// Returns an error wrapping ErrInvalidConfig if validation fails, nil otherwise.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return NewEmbetterError("Validate", fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}

	m := c.Model
	switch {
	case m.Size <= 0:
		return invalid("size must be positive, got %d", m.Size)
	case m.Epochs <= 0:
		return invalid("epochs must be positive, got %d", m.Epochs)
	case m.BatchSize <= 0:
		return invalid("batch_size must be positive, got %d", m.BatchSize)
	case m.NegSamples < 0:
		return invalid("neg_samples must not be negative, got %d", m.NegSamples)
	case m.LearningRate <= 0:
		return invalid("learning_rate must be positive, got %g", m.LearningRate)
	case m.Verbose < 0 || m.Verbose > 2:
		return invalid("verbose must be 0, 1 or 2, got %d", m.Verbose)
	case !m.NegativeSampling.Valid():
		return invalid("unknown negative_sampling %q", m.NegativeSampling)
	}

	if c.CheckpointStore != nil {
		switch c.CheckpointStore.Provider {
		case "sqlite", "postgres", "oceanbase":
		default:
			return invalid("unknown checkpoint store provider %q", c.CheckpointStore.Provider)
		}
	}

	if c.Embedder != nil {
		switch c.Embedder.Provider {
		case "openai", "qwen":
		default:
			return invalid("unknown embedder provider %q", c.Embedder.Provider)
		}
		if c.Embedder.BatchSize < 0 {
			return invalid("embedder batch_size must not be negative")
		}
	}

	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewEmbetterError("LoadConfigFromEnv", fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v))
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, NewEmbetterError("LoadConfigFromEnv", fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v))
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, NewEmbetterError("LoadConfigFromEnv", fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v))
	}
	return b, nil
}

// EnvFileVar names an explicit env file, which takes precedence over the search.
const EnvFileVar = "EMBETTER_ENV_FILE"

// envFileNames are tried in order in every searched directory.
var envFileNames = []string{".env.embetter", ".env", ".env.example"}

// FindEnvFile locates the env file read by LoadConfigFromEnv.
//
// An existing file named by EMBETTER_ENV_FILE wins. Otherwise the search
// walks from the working directory toward the root and stops after the first
// directory holding a go.mod, so a project never picks up a parent's env.
func FindEnvFile() (string, bool) {
	if p := os.Getenv(EnvFileVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		for _, name := range envFileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p, true
			}
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
