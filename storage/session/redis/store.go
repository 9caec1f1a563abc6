package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

const keyPrefix = "academia:session:"

type store struct {
	client *redis.Client
}

var _ session.Store = (*store)(nil)

// NewClient connects to the redis server of conf.
func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// NewStore returns a session.Store keeping the sessions as JSON values expiring with the session.
func NewStore(client *redis.Client) session.Store {
	return &store{client: client}
}

func key(id string) string {
	return keyPrefix + id
}

func (s *store) Save(ctx context.Context, sess session.Session) error {
	ttl := sess.TTL(time.Now())
	if ttl <= 0 {
		return nil
	}
	val, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = s.client.Set(ctx, key(sess.ID), val, ttl).Err(); err != nil {
		return errors.Wrap(err, "saving session")
	}
	return nil
}

func (s *store) Get(ctx context.Context, id string) (session.Session, error) {
	val, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}

	var sess session.Session
	if err = json.Unmarshal(val, &sess); err != nil {
		return session.Session{}, errors.Wrap(err, "decoding session")
	}
	if sess.Expired(time.Now()) {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}
