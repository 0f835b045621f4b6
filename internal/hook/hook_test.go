package hook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ryandielhenn/fencer/pkg/election"
)

func TestAnnounceLogsTakeover(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Announce(zap.New(core))

	require.NoError(t, h(context.Background(), election.Change{Self: "a:1", Leader: "a:1"}))
	require.NoError(t, h(context.Background(), election.Change{Self: "a:1", Leader: "b:1"}))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "this node is now the leader", logs.All()[0].Message)
	assert.Equal(t, "following leader", logs.All()[1].Message)
}

func TestCommandExportsChange(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	h := Command(`echo "$FENCER_SELF $FENCER_LEADER $FENCER_PREVIOUS_LEADER $FENCER_IS_LEADER" > `+out, time.Second, zap.NewNop())

	err := h(context.Background(), election.Change{Self: "a:1", Leader: "a:1", Previous: "b:1"})
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a:1 a:1 b:1 true", strings.TrimSpace(string(b)))
}

func TestCommandFailureIsReturned(t *testing.T) {
	h := Command("echo nope >&2; exit 3", time.Second, zap.NewNop())
	err := h(context.Background(), election.Change{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
