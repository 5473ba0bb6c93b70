// Package redis implements the session repository on Redis for
// deployments that share one session, rate-limit ledger, and
// diagnostic error log across processes.
//
// The session and error log are stored as JSON strings; the per-action
// attempt ledger is a sorted set scored by the attempt's unix
// nanosecond timestamp, so counting attempts inside a sliding window
// is a single ZCOUNT. Entries older than a day are pruned lazily on
// write.
//
// # Basic Usage
//
//	client, err := redisdb.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	repo, err := redisstore.NewRepository[auth.User](client)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// repo satisfies storage.Repository[auth.User] and plugs into
//	// client.New and auth.New unchanged.
package redis
