package repo

import (
	"context"
	"fmt"
)

const DefaultKey = "ai-interview-ace-state"

// Repository stores the application state as one opaque blob under a fixed key.
// Load returns (nil, nil) when nothing has been saved yet.
type Repository interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendRedis  Backend = "redis"
	BackendMySQL  Backend = "mysql"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMemory, BackendFile, BackendRedis, BackendMySQL:
		return b, nil
	case "":
		return BackendFile, nil
	}
	return "", fmt.Errorf("unknown storage backend %q", s)
}
