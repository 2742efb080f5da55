package log

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	runID, err := Init(true)
	require.NoError(t, err)

	_, err = uuid.Parse(runID)
	assert.NoError(t, err)
	assert.NotNil(t, GetSugaredLogger())
	assert.NotNil(t, Named("scheduler"))

	second, err := Init(false)
	require.NoError(t, err)
	assert.NotEqual(t, runID, second)
}

func TestInfof(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	baseLogger = zap.New(core).With(zap.String("run", "test-run"))
	log = baseLogger.Sugar()
	t.Cleanup(func() { log = nil })

	Infof("agrimon %s", "stopped")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "agrimon stopped", entries[0].Message)
	assert.Equal(t, "test-run", entries[0].ContextMap()["run"])
}
