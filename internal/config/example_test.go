package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load("../../configs/config.yaml", nil)
	require.NoError(t, err)

	assert.Equal(t, VariantStandard, cfg.Variant.Name)
	assert.Equal(t, []string{"libcamera-still", "-n", "-o", "-"}, cfg.Camera.Command)
	assert.Equal(t, int64(10485760), cfg.Server.MaxUploadBytes)
}
