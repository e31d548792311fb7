package extractor

const (
	XRequestID    = "x-request-id"
	XClientID     = "x-client-id"
	XForwardedFor = "x-forwarded-for"
)
