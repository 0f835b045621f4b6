package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type syncCounter struct {
	zapcore.Core
	syncs int
}

func (s *syncCounter) Sync() error {
	s.syncs++
	return s.Core.Sync()
}

func TestFinishFlushesBeforeExit(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	core := &syncCounter{Core: obs}

	code := finish(zap.New(core), errors.New("listen tcp: address in use"))

	assert.Equal(t, 1, code)
	assert.Equal(t, 1, core.syncs)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "fencer stopped", logs.All()[0].Message)
}

func TestFinishCleanShutdown(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	core := &syncCounter{Core: obs}

	assert.Equal(t, 0, finish(zap.New(core), nil))
	assert.Equal(t, 1, core.syncs)
	assert.Zero(t, logs.Len())
}
