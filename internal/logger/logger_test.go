package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDefaultsToInfo(t *testing.T) {
	log, err := New("")
	require.NoError(t, err)

	assert.Nil(t, log.Check(zap.DebugLevel, "suppressed"))
	assert.NotNil(t, log.Check(zap.InfoLevel, "emitted"))
}

func TestNewHonorsLevel(t *testing.T) {
	log, err := New("debug")
	require.NoError(t, err)

	assert.NotNil(t, log.Check(zap.DebugLevel, "emitted"))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty")
	require.Error(t, err)
}
