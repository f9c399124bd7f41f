package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embetter "github.com/oceanbase/embetter-go/pkg/core"
	"github.com/oceanbase/embetter-go/pkg/pairs"
)

func TestDefaultConfig(t *testing.T) {
	cfg := embetter.DefaultConfig()
	assert.Equal(t, embetter.DefaultSize, cfg.Model.Size)
	assert.Equal(t, embetter.DefaultNegSamples, cfg.Model.NegSamples)
	assert.Equal(t, embetter.DefaultEpochs, cfg.Model.Epochs)
	assert.Equal(t, embetter.DefaultBatchSize, cfg.Model.BatchSize)
	assert.Equal(t, pairs.NegativeSampled, cfg.Model.NegativeSampling)
	assert.False(t, cfg.Model.MultiOutput)
	assert.Nil(t, cfg.CheckpointStore)
	assert.Nil(t, cfg.Embedder)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *embetter.Config)
		wantErr bool
	}{
		{
			name: "model settings",
			envVars: map[string]string{
				"EMBETTER_SIZE":              "16",
				"EMBETTER_NEG_SAMPLES":       "3",
				"EMBETTER_MULTI_OUTPUT":      "true",
				"EMBETTER_SEED":              "42",
				"EMBETTER_LEARNING_RATE":     "0.01",
				"EMBETTER_NEGATIVE_SAMPLING": "legacy",
			},
			check: func(t *testing.T, cfg *embetter.Config) {
				assert.Equal(t, 16, cfg.Model.Size)
				assert.Equal(t, 3, cfg.Model.NegSamples)
				assert.True(t, cfg.Model.MultiOutput)
				assert.Equal(t, int64(42), cfg.Model.Seed)
				assert.Equal(t, 0.01, cfg.Model.LearningRate)
				assert.Equal(t, pairs.NegativeLegacy, cfg.Model.NegativeSampling)
				assert.Nil(t, cfg.CheckpointStore)
			},
		},
		{
			name: "sqlite store and openai embedder",
			envVars: map[string]string{
				"DATABASE_PROVIDER":    "sqlite",
				"SQLITE_PATH":          "./test.db",
				"EMBEDDING_PROVIDER":   "openai",
				"EMBEDDING_API_KEY":    "test-key",
				"EMBEDDING_DIMS":       "256",
				"EMBEDDING_BATCH_SIZE": "32",
			},
			check: func(t *testing.T, cfg *embetter.Config) {
				require.NotNil(t, cfg.CheckpointStore)
				assert.Equal(t, "sqlite", cfg.CheckpointStore.Provider)
				assert.Equal(t, "./test.db", cfg.CheckpointStore.Config["db_path"])
				require.NotNil(t, cfg.Embedder)
				assert.Equal(t, "openai", cfg.Embedder.Provider)
				assert.Equal(t, 256, cfg.Embedder.Dimensions)
				assert.Equal(t, 32, cfg.Embedder.BatchSize)
			},
		},
		{
			name: "postgres store",
			envVars: map[string]string{
				"DATABASE_PROVIDER": "postgres",
				"POSTGRES_HOST":     "db.internal",
				"POSTGRES_PORT":     "6543",
			},
			check: func(t *testing.T, cfg *embetter.Config) {
				require.NotNil(t, cfg.CheckpointStore)
				assert.Equal(t, "db.internal", cfg.CheckpointStore.Config["host"])
				assert.Equal(t, 6543, cfg.CheckpointStore.Config["port"])
			},
		},
		{
			name:    "unknown store provider",
			envVars: map[string]string{"DATABASE_PROVIDER": "mongodb"},
			wantErr: true,
		},
		{
			name:    "malformed integer",
			envVars: map[string]string{"EMBETTER_EPOCHS": "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := embetter.LoadConfigFromEnv()
			if tt.wantErr {
				assert.ErrorIs(t, err, embetter.ErrInvalidConfig)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *embetter.Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(cfg *embetter.Config) {}},
		{name: "zero neg samples", modify: func(cfg *embetter.Config) { cfg.Model.NegSamples = 0 }},
		{name: "zero size", modify: func(cfg *embetter.Config) { cfg.Model.Size = 0 }, wantErr: true},
		{name: "zero epochs", modify: func(cfg *embetter.Config) { cfg.Model.Epochs = 0 }, wantErr: true},
		{name: "zero batch size", modify: func(cfg *embetter.Config) { cfg.Model.BatchSize = 0 }, wantErr: true},
		{name: "negative neg samples", modify: func(cfg *embetter.Config) { cfg.Model.NegSamples = -1 }, wantErr: true},
		{name: "zero learning rate", modify: func(cfg *embetter.Config) { cfg.Model.LearningRate = 0 }, wantErr: true},
		{name: "verbose out of range", modify: func(cfg *embetter.Config) { cfg.Model.Verbose = 3 }, wantErr: true},
		{name: "unknown negative mode", modify: func(cfg *embetter.Config) { cfg.Model.NegativeSampling = "random" }, wantErr: true},
		{
			name: "unknown store provider",
			modify: func(cfg *embetter.Config) {
				cfg.CheckpointStore = &embetter.CheckpointStoreConfig{Provider: "redis"}
			},
			wantErr: true,
		},
		{
			name: "unknown embedder provider",
			modify: func(cfg *embetter.Config) {
				cfg.Embedder = &embetter.EmbedderConfig{Provider: "cohere"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := embetter.DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, embetter.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromFiles(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"model": {"size": 8, "epochs": 2},
		"checkpoint_store": {"provider": "sqlite", "config": {"db_path": "ckpt.db"}}
	}`), 0o600))

	cfg, err := embetter.LoadConfigFromJSON(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Model.Size)
	assert.Equal(t, 2, cfg.Model.Epochs)
	assert.Equal(t, embetter.DefaultBatchSize, cfg.Model.BatchSize)
	require.NotNil(t, cfg.CheckpointStore)
	assert.Equal(t, "sqlite", cfg.CheckpointStore.Provider)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
model:
  size: 12
  neg_samples: 1
  negative_sampling: legacy
logging:
  level: debug
  format: pretty
`), 0o600))

	cfg, err = embetter.LoadConfigFromYAML(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Model.Size)
	assert.Equal(t, 1, cfg.Model.NegSamples)
	assert.Equal(t, embetter.DefaultEpochs, cfg.Model.Epochs)
	assert.Equal(t, pairs.NegativeLegacy, cfg.Model.NegativeSampling)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = embetter.LoadConfigFromJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestFindEnvFile(t *testing.T) {
	t.Run("explicit file wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.env")
		require.NoError(t, os.WriteFile(path, []byte("EMBETTER_SIZE=8\n"), 0o644))
		t.Setenv(embetter.EnvFileVar, path)

		got, found := embetter.FindEnvFile()
		assert.True(t, found)
		assert.Equal(t, path, got)
	})

	t.Run("embetter file preferred over plain env", func(t *testing.T) {
		t.Setenv(embetter.EnvFileVar, "")
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".env.embetter"), nil, 0o644))
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		chdir(t, nested)

		got, found := embetter.FindEnvFile()
		assert.True(t, found)
		assert.Equal(t, ".env.embetter", filepath.Base(got))
	})

	t.Run("search stops at module root", func(t *testing.T) {
		t.Setenv(embetter.EnvFileVar, "")
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), nil, 0o644))
		module := filepath.Join(root, "project")
		require.NoError(t, os.MkdirAll(module, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(module, "go.mod"), []byte("module example.com/p\n"), 0o644))
		chdir(t, module)

		_, found := embetter.FindEnvFile()
		assert.False(t, found)
	})
}
