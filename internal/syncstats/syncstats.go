package syncstats

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	activeSet  = "stats:active"
	keyPrefix  = "stats:"
	syncPeriod = 10 * time.Second
)

// Run mirrors the live win/loss counters into the players table every
// 10 s. Counters are drained as they are read, so each cycle applies a
// delta and a restart loses at most one cycle.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	tk := time.NewTicker(syncPeriod)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				syncOnce(ctx, rdc, db)
			}
		}
	}()
}

func syncOnce(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	names, err := rdc.SMembers(ctx, activeSet).Result()
	if err != nil || len(names) == 0 {
		return
	}

	// fetch and drain every counter in one pipelined round-trip
	pipe := rdc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(names))
	for i, n := range names {
		cmds[i] = pipe.HGetAll(ctx, keyPrefix+n)
		pipe.Del(ctx, keyPrefix+n)
		pipe.SRem(ctx, activeSet, n)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		zap.L().Error("syncstats.pipeline", zap.Error(err))
		return
	}

	const upsert = `
	INSERT INTO players (username, wins, losses, medals, time_created)
	     VALUES ($1, $2, $3, 0, $4)
	ON CONFLICT (username) DO UPDATE
	       SET wins   = players.wins   + EXCLUDED.wins,
	           losses = players.losses + EXCLUDED.losses`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		zap.L().Error("syncstats.tx_begin", zap.Error(err))
		return
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue // counter vanished between SMEMBERS and HGETALL
		}
		wins, _ := strconv.Atoi(data["wins"])
		losses, _ := strconv.Atoi(data["losses"])
		if _, err := tx.ExecContext(ctx, upsert, names[i], wins, losses, now); err != nil {
			zap.L().Error("syncstats.upsert", zap.String("player", names[i]), zap.Error(err))
		}
	}

	if err = tx.Commit(); err != nil {
		zap.L().Debug("syncstats_error", zap.Error(err))
	}
}
