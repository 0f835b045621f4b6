// Package hook provides the leader-change callbacks wired by cmd/server.
package hook

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/pkg/election"
)

// DefaultCommandTimeout bounds a single run of the leader-change command.
const DefaultCommandTimeout = 30 * time.Second

// Announce logs when this node takes over.
func Announce(log *zap.Logger) election.Hook {
	return func(_ context.Context, c election.Change) error {
		if c.IsSelf() {
			log.Info("this node is now the leader", zap.Stringer("previous", c.Previous))
		} else {
			log.Info("following leader", zap.Stringer("leader", c.Leader))
		}
		return nil
	}
}

// Command runs command through sh -c with the change exported as
// FENCER_SELF, FENCER_LEADER, FENCER_PREVIOUS_LEADER and FENCER_IS_LEADER.
func Command(command string, timeout time.Duration, log *zap.Logger) election.Hook {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return func(ctx context.Context, c election.Change) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Env = append(os.Environ(),
			"FENCER_SELF="+c.Self.String(),
			"FENCER_LEADER="+c.Leader.String(),
			"FENCER_PREVIOUS_LEADER="+c.Previous.String(),
			"FENCER_IS_LEADER="+strconv.FormatBool(c.IsSelf()),
		)
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out

		start := time.Now()
		if err := cmd.Run(); err != nil {
			return errors.Wrapf(err, "leader change command: %s", bytes.TrimSpace(out.Bytes()))
		}
		log.Info("leader change command finished",
			zap.Duration("took", time.Since(start)),
			zap.ByteString("output", bytes.TrimSpace(out.Bytes())))
		return nil
	}
}
