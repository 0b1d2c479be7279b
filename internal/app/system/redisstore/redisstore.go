// Package redisstore is a gorilla/sessions Store that keeps session values
// in redis. The browser cookie carries only a signed session id.
package redisstore

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces session keys in redis.
const DefaultPrefix = "fuelbox:session:"

// Store implements sessions.Store.
type Store struct {
	client     redis.UniversalClient
	codecs     []securecookie.Codec
	serializer securecookie.GobEncoder
	prefix     string
	timeout    time.Duration

	Options *sessions.Options
}

// New creates a store signing session ids with keyPairs (see
// securecookie.CodecsFromPairs).
func New(client redis.UniversalClient, opts *sessions.Options, keyPairs ...[]byte) *Store {
	s := &Store{
		client:  client,
		codecs:  securecookie.CodecsFromPairs(keyPairs...),
		prefix:  DefaultPrefix,
		timeout: 2 * time.Second,
		Options: opts,
	}
	if s.Options == nil {
		s.Options = &sessions.Options{Path: "/", MaxAge: 86400 * 7, HttpOnly: true}
	}
	s.MaxAge(s.Options.MaxAge)
	return s
}

// Connect creates a redis client and checks it answers.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// MaxAge sets the cookie and redis lifetime in seconds.
func (s *Store) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, c := range s.codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

func (s *Store) key(id string) string { return s.prefix + id }

// Get implements sessions.Store.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New implements sessions.Store. A missing or unknown session id yields a
// new, empty session.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.codecs...); err != nil {
		return session, err
	}

	found, err := s.load(r.Context(), session)
	if err != nil {
		return session, err
	}
	session.IsNew = !found
	return session, nil
}

// Save implements sessions.Store. A negative MaxAge deletes the session.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.client.Del(ctx, s.key(session.ID)).Err(); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = strings.TrimRight(
			base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
	}

	data, err := s.serializer.Serialize(session.Values)
	if err != nil {
		return err
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *Store) load(ctx context.Context, session *sessions.Session) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(session.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.serializer.Deserialize(data, &session.Values); err != nil {
		return false, err
	}
	return true, nil
}
