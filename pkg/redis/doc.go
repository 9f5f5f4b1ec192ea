// Package redis connects to a Redis server from environment configuration,
// retrying until the server is ready, and exposes a health check closure.
// The service uses Redis for the cross-instance reminder sweep lock.
package redis
