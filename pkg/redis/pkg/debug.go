package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logging "interviewace/pkg/logger/pkg"
)

// debugHook logs every command before it is sent.
type debugHook struct {
	enabled bool
}

func (h *debugHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *debugHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if h.enabled {
			logging.Logger(ctx).Debug("redis command", zap.String("cmd", cmd.Name()), zap.Int("args", len(cmd.Args())))
		}

		return next(ctx, cmd)
	}
}

func (h *debugHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if h.enabled {
			names := make([]string, 0, len(cmds))
			for _, c := range cmds {
				names = append(names, c.Name())
			}
			logging.Logger(ctx).Debug("redis pipeline", zap.Strings("cmds", names))
		}

		return next(ctx, cmds)
	}
}
