// Package cerberus provides a declarative admission-control gateway with
// true sliding-window rate limiting.
//
// Cerberus sits in front of an HTTP upstream and decides, per request,
// whether the caller is within its per-minute and per-hour budgets. Unlike
// fixed-bucket counters, the sliding windows track individual request
// timestamps, so a burst at the edge of a minute cannot double a caller's
// effective budget. Rejected requests are never recorded and therefore
// never extend a caller's penalty.
//
// # Quick Start
//
// Install Cerberus:
//
//	go install github.com/kadirpekel/cerberus/cmd/cerberus@latest
//
// Create a gateway configuration:
//
//	yaml
//	upstream:
//	  url: "http://localhost:9000"
//
//	rate_limiting:
//	  requests_per_minute: 60
//	  requests_per_hour: 1000
//	  storage_backend: "shared"
//	  shared_backend_address: "${REDIS_ADDR:-localhost:6379}"
//
// Start the gateway:
//
//	cerberus serve --config cerberus.yaml
//
// # Using as Go Library
//
// Import specific packages:
//
//	import (
//	    "github.com/kadirpekel/cerberus/pkg/ratelimit"
//	    "github.com/kadirpekel/cerberus/pkg/server"
//	    "github.com/kadirpekel/cerberus/pkg/config"
//	)
//
// The ratelimit package is usable standalone: wire a ratelimit.Middleware
// into any net/http or chi stack, backed by the in-process store or a
// shared Redis store.
//
// # Key Features
//
//   - **True Sliding Windows**: Per-request timestamps, not counter buckets
//   - **Dual Budgets**: Per-minute and per-hour limits evaluated together
//   - **Caller Identity**: User header, forwarded chain, or socket address
//   - **Shared Backend**: Redis-backed counting across gateway replicas
//   - **Fail-Open Fallback**: Backend outages degrade to in-process limits
//   - **Hot Reload**: Budgets follow configuration file changes live
//
// # Architecture
//
// Cerberus follows a thin proxy architecture:
//
//	Client → Gateway (identity → sliding windows → verdict) → Upstream
//
// Every allowed request is recorded in both windows before it is proxied,
// so concurrent callers cannot slip past a nearly exhausted budget.
//
// # Alpha Status
//
// Cerberus is currently in alpha development. APIs may change, and some
// features are experimental. We welcome feedback and contributions!
//
// # License
//
// AGPL-3.0 - See LICENSE.md for details.
package cerberus
