package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "video", cfg.Upload.Field)
	assert.Equal(t, "python3", cfg.Processor.Command)
	assert.Equal(t, []string{"process_video.py"}, cfg.Processor.Args)
	assert.Zero(t, cfg.Processor.Timeout)
	assert.Zero(t, cfg.HTTP.WriteTimeout)
	assert.False(t, cfg.Upload.LegacyStatus)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Storage.Enabled)

	assert.True(t, filepath.IsAbs(cfg.Upload.Dir))
	assert.Equal(t, "uploads", filepath.Base(cfg.Upload.Dir))
	assert.Equal(t, "processed", filepath.Base(cfg.Upload.ProcessedDir))
	assert.Equal(t, filepath.Join(filepath.Dir(cfg.Upload.Dir), "tmp"), cfg.Upload.TempDir)
}

func TestTempDirDefaultsNextToUploadDir(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOAD_DIR", filepath.Join(root, "app", "uploads"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "app", "tmp"), cfg.Upload.TempDir)

	t.Setenv("UPLOAD_DIR", filepath.Join(root, "app", "uploads")+"/")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "app", "tmp"), cfg.Upload.TempDir)

	t.Setenv("UPLOAD_TEMP_DIR", filepath.Join(root, "spool"))
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "spool"), cfg.Upload.TempDir)
}

func TestLoadFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOAD_DIR", filepath.Join(root, "in"))
	t.Setenv("PROCESSED_DIR", filepath.Join(root, "out"))
	t.Setenv("PROCESSOR_COMMAND", "/usr/local/bin/steelcut")
	t.Setenv("PROCESSOR_ARGS", "--chunk=10,--quiet")
	t.Setenv("PROCESSOR_TIMEOUT", "90s")
	t.Setenv("UPLOAD_LEGACY_STATUS", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "in"), cfg.Upload.Dir)
	assert.Equal(t, filepath.Join(root, "out"), cfg.Upload.ProcessedDir)
	assert.Equal(t, "/usr/local/bin/steelcut", cfg.Processor.Command)
	assert.Equal(t, []string{"--chunk=10", "--quiet"}, cfg.Processor.Args)
	assert.Equal(t, 90*time.Second, cfg.Processor.Timeout)
	assert.True(t, cfg.Upload.LegacyStatus)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestNormalizeRejectsEmptyField(t *testing.T) {
	cfg := &Config{
		Upload:    UploadConfig{Dir: "u", ProcessedDir: "p"},
		Processor: ProcessorConfig{Command: "python3"},
	}
	require.Error(t, cfg.Normalize())

	cfg.Upload.Field = "video"
	cfg.Processor.Command = ""
	require.Error(t, cfg.Normalize())
}
