package link

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v9"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

const redisKeyPrefix = "floodgate:linkrequest:"

// removeScript deletes the key only if it still holds the given request.
var removeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRequests keeps link requests in Redis so that all instances
// connected to the same Redis share pending requests.
type RedisRequests struct {
	cli *redis.Client
	ttl time.Duration
}

var _ RequestStore = (*RedisRequests)(nil)

// NewRedisRequests connects to the Redis at url. Requests expire from
// Redis after ttl, which should exceed the link code timeout so that
// expired requests can still be reported as such.
func NewRedisRequests(url string, ttl time.Duration) (*RedisRequests, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisRequests{cli: redis.NewClient(opts), ttl: ttl}, nil
}

type redisRequest struct {
	JavaUniqueID    uuid.UUID `json:"javaUniqueId"`
	JavaUsername    string    `json:"javaUsername"`
	BedrockUsername string    `json:"bedrockUsername"`
	LinkCode        string    `json:"linkCode"`
	RequestTime     int64     `json:"requestTime"`
}

func requestKey(javaUsername string) string {
	d := xxhash.New()
	_, _ = d.WriteString(javaUsername)
	return redisKeyPrefix + hex.EncodeToString(d.Sum(make([]byte, 0, 8)))
}

func marshalRequest(r *floodgate.LinkRequest) ([]byte, error) {
	return json.Marshal(&redisRequest{
		JavaUniqueID:    r.JavaUniqueID,
		JavaUsername:    r.JavaUsername,
		BedrockUsername: r.BedrockUsername,
		LinkCode:        r.LinkCode,
		RequestTime:     r.CreatedAt.UnixMilli(),
	})
}

func (s *RedisRequests) Put(ctx context.Context, req *floodgate.LinkRequest) error {
	b, err := marshalRequest(req)
	if err != nil {
		return err
	}
	return storeErr("redis", "create link request",
		s.cli.Set(ctx, requestKey(req.JavaUsername), b, s.ttl).Err())
}

func (s *RedisRequests) Get(ctx context.Context, javaUsername string) (*floodgate.LinkRequest, error) {
	b, err := s.cli.Get(ctx, requestKey(javaUsername)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, storeErr("redis", "get link request", err)
	}
	var r redisRequest
	if err = json.Unmarshal(b, &r); err != nil {
		return nil, storeErr("redis", "get link request", err)
	}
	// xxhash collisions
	if r.JavaUsername != javaUsername {
		return nil, nil
	}
	return &floodgate.LinkRequest{
		JavaUniqueID:    r.JavaUniqueID,
		JavaUsername:    r.JavaUsername,
		BedrockUsername: r.BedrockUsername,
		LinkCode:        r.LinkCode,
		CreatedAt:       time.UnixMilli(r.RequestTime),
	}, nil
}

func (s *RedisRequests) Remove(ctx context.Context, req *floodgate.LinkRequest) error {
	b, err := marshalRequest(req)
	if err != nil {
		return err
	}
	n, err := removeScript.Run(ctx, s.cli, []string{requestKey(req.JavaUsername)}, b).Int()
	if err != nil {
		return storeErr("redis", "invalidate link request", err)
	}
	if n == 0 {
		return ErrLinkRequestNotFound
	}
	return nil
}

func (s *RedisRequests) Close() error { return s.cli.Close() }
