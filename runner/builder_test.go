package runner

import (
	"math/big"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crytic/testorch/executor"
	"github.com/crytic/testorch/fuzzdriver"
)

func TestConfig_ValidateRejectsMissingSender(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestConfig_ValidateAppliesDefaults(t *testing.T) {
	cfg := Config{Sender: common.HexToAddress("0x1")}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, executor.SpecLatest, cfg.Spec)
	assert.Equal(t, uint64(12_500_000), cfg.GasLimit)
	assert.Equal(t, fuzzdriver.DefaultConfig(), cfg.Fuzzer)
	assert.NotEqual(t, uuid.Nil, cfg.RunID)
	assert.Equal(t, big.NewInt(0), cfg.InitialBalance)
}

func TestConfig_ValidatePreservesExplicitRunID(t *testing.T) {
	runID := uuid.New()
	cfg := Config{Sender: common.HexToAddress("0x1"), RunID: runID}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, runID, cfg.RunID)
}

func TestNewRunnerBuilder_RejectsInvalidConfig(t *testing.T) {
	_, err := NewRunnerBuilder(Config{})
	require.Error(t, err)
}
