// Package mirror copies game counter totals into Redis.
//
// The mirror is write-only: on every tick it takes a registry snapshot and
// writes each counter into one Redis hash, together with the publish time.
// Dashboards and other services read the hash instead of scraping Prometheus.
// Nothing is ever read back into the registry, so counters still start at 0
// after a restart.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	m := mirror.New(redisClient, registry, mirror.Config{
//		Key:      "game2048:counters",
//		Interval: 15 * time.Second,
//	}, logger)
//
//	go m.Run(ctx)
//
// # Hash Layout
//
//	HGETALL game2048:counters
//	  game_moves_total     -> "1234"
//	  games_started_total  -> "56"
//	  last_update          -> "2026-10-18T09:00:00Z"
//
// A failed publish is logged and dropped; the next tick writes fresh totals.
package mirror
