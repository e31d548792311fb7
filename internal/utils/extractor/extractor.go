package extractor

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

type Extractor interface {
	Get(ctx context.Context, name string) []string
	GetFirst(ctx context.Context, name string) string
	GetRequestID(ctx context.Context) string
	GetClientID(ctx context.Context) string
	GetXForwardedFor(ctx context.Context) string
}

type extractor struct {
}

func New() Extractor {
	return &extractor{}
}

// Annotate copies the x-* headers of req into metadata so HTTP requests carry
// the same incoming metadata as gRPC calls.
func Annotate(req *http.Request) metadata.MD {
	md := metadata.MD{}

	for name, values := range req.Header {
		lowerName := strings.ToLower(name)
		if strings.HasPrefix(lowerName, "x-") {
			md.Append(lowerName, values...)
		}
	}

	return md
}

func (t *extractor) Get(ctx context.Context, name string) []string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	return md.Get(name)
}

func (t *extractor) GetFirst(ctx context.Context, name string) string {
	values := t.Get(ctx, name)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

func (t *extractor) GetRequestID(ctx context.Context) string {
	return t.GetFirst(ctx, XRequestID)
}

func (t *extractor) GetClientID(ctx context.Context) string {
	return t.GetFirst(ctx, XClientID)
}

func (t *extractor) GetXForwardedFor(ctx context.Context) string {
	values := t.Get(ctx, XForwardedFor)
	if len(values) == 0 {
		return ""
	}

	return strings.Join(values[:], ",")
}
