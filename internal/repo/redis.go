package repo

import (
	"context"
	"errors"

	re "github.com/redis/go-redis/v9"
)

// Redis stores the blob as a plain string value. Key namespacing is applied by
// the client hook configured in pkg/redis/pkg.
type Redis struct {
	client *re.Client
	key    string
}

func NewRedis(client *re.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Load(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, re.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return val, nil
}

func (r *Redis) Save(ctx context.Context, blob []byte) error {
	return r.client.Set(ctx, r.key, blob, 0).Err()
}
