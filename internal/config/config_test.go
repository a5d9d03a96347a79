package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/churn.toml")
	require.NoError(t, err)

	require.Equal(t, 2, cfg.Workload.Worlds)
	require.Equal(t, 500, cfg.Workload.Entities)
	require.Equal(t, 0.25, cfg.Workload.Churn)
	require.Equal(t, 250*time.Millisecond, cfg.Workload.Report)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "debug", cfg.Logging.Level)

	// not in the file, keeps the default
	require.Equal(t, Default().Workload.Ticks, cfg.Workload.Ticks)
	require.Equal(t, Default().Manager, cfg.Manager)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load("testdata/invalid.toml")
	require.ErrorContains(t, err, "workload.churn")

	_, err = Load("testdata/missing.toml")
	require.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}
