package observability

const (
	AttrServiceName    = "service.name"
	AttrServiceVersion = "service.version"
	AttrHTTPMethod     = "http.method"
	AttrHTTPPath       = "http.path"
	AttrHTTPStatusCode = "http.status_code"
	AttrErrorType      = "error.type"

	AttrClientIdentity = "ratelimit.identity"
	AttrEndpoint       = "ratelimit.endpoint"
	AttrWindow         = "ratelimit.window"
	AttrAllowed        = "ratelimit.allowed"
	AttrRemaining      = "ratelimit.remaining"

	SpanHTTPRequest    = "gateway.http_request"
	SpanRateLimitCheck = "gateway.ratelimit_check"

	DefaultServiceName  = "cerberus"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
	DefaultSamplingRate = 1.0
)
