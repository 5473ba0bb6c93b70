// Package redis provides Redis client initialization and health
// checking for deployments that keep the session store in Redis
// instead of a local file.
//
// Connect validates the connection URL, dials with retry, and verifies
// connectivity with a ping before handing the client back. Both
// redis:// and rediss:// (TLS) URL schemes are supported.
//
// # Usage Example
//
//	cfg := config.MustLoad[redis.Config]()
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// Healthcheck returns a probe function for readiness endpoints:
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); err != nil {
//		// report unhealthy
//	}
package redis
