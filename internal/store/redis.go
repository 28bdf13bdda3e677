package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meetsense/coachd/internal/models"
)

// Key layout, all prefixed coach: so the store can share a Redis with
// other services.
//
//	coach:meeting:{org}:{meeting}     -> sessionID        (claim key, SETNX)
//	coach:session:{id}                -> session JSON
//	coach:session:{id}:fragments      -> fragment list, most recent first
//	coach:session:{id}:ledger         -> hash speaker -> seconds
//	coach:session:{id}:meta           -> hash: seq, conns
const keyPrefix = "coach:"

type RedisStore struct {
	rdb    *redis.Client
	window int
}

// NewRedis builds a RedisStore keeping a trailing window of windowSize
// fragments per session.
func NewRedis(rdb *redis.Client, windowSize int) *RedisStore {
	if windowSize < 1 {
		windowSize = 1
	}
	return &RedisStore{rdb: rdb, window: windowSize}
}

func meetingKey(meetingID, orgID string) string {
	return keyPrefix + "meeting:" + models.Key(meetingID, orgID)
}

func sessionKey(id string) string   { return keyPrefix + "session:" + id }
func fragmentsKey(id string) string { return sessionKey(id) + ":fragments" }
func ledgerKey(id string) string    { return sessionKey(id) + ":ledger" }
func metaKey(id string) string      { return sessionKey(id) + ":meta" }

func (s *RedisStore) CreateSession(ctx context.Context, sess *models.Session) (bool, *models.Session, error) {
	body, err := json.Marshal(sess)
	if err != nil {
		return false, nil, fmt.Errorf("store: marshal session: %w", err)
	}

	claim := meetingKey(sess.MeetingID, sess.OrgID)
	for attempt := 0; attempt < 2; attempt++ {
		won, err := s.rdb.SetNX(ctx, claim, sess.ID, 0).Result()
		if err != nil {
			return false, nil, fmt.Errorf("store: claim meeting: %w", err)
		}
		if won {
			if err := s.rdb.Set(ctx, sessionKey(sess.ID), body, 0).Err(); err != nil {
				return false, nil, fmt.Errorf("store: write session: %w", err)
			}
			return true, sess, nil
		}
		existing, err := s.SessionByMeeting(ctx, sess.MeetingID, sess.OrgID)
		if errors.Is(err, ErrNotFound) {
			// The claim outlived its session keys, which expire under
			// TTL when an instance dies without a clean teardown. Drop
			// it and contest the meeting again.
			if err := s.rdb.Del(ctx, claim).Err(); err != nil {
				return false, nil, fmt.Errorf("store: drop stale claim: %w", err)
			}
			continue
		}
		if err != nil {
			return false, nil, err
		}
		return false, existing, nil
	}
	return false, nil, fmt.Errorf("store: could not claim meeting %s", models.Key(sess.MeetingID, sess.OrgID))
}

func (s *RedisStore) SessionByMeeting(ctx context.Context, meetingID, orgID string) (*models.Session, error) {
	id, err := s.rdb.Get(ctx, meetingKey(meetingID, orgID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: resolve meeting: %w", err)
	}
	return s.SessionByID(ctx, id)
}

func (s *RedisStore) SessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	body, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("store: decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, sess *models.Session) error {
	keys := []string{
		meetingKey(sess.MeetingID, sess.OrgID),
		sessionKey(sess.ID),
		fragmentsKey(sess.ID),
		ledgerKey(sess.ID),
		metaKey(sess.ID),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("store: delete session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisStore) NextSeq(ctx context.Context, sessionID string) (int64, error) {
	seq, err := s.rdb.HIncrBy(ctx, metaKey(sessionID), "seq", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("store: next seq: %w", err)
	}
	return seq, nil
}

func (s *RedisStore) PushFragment(ctx context.Context, sessionID string, frag models.Fragment) error {
	body, err := json.Marshal(frag)
	if err != nil {
		return fmt.Errorf("store: marshal fragment: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, fragmentsKey(sessionID), body)
	pipe.LTrim(ctx, fragmentsKey(sessionID), 0, int64(s.window)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: push fragment: %w", err)
	}
	return nil
}

func (s *RedisStore) Window(ctx context.Context, sessionID string) ([]models.Fragment, error) {
	raw, err := s.rdb.LRange(ctx, fragmentsKey(sessionID), 0, int64(s.window)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read window: %w", err)
	}
	frags := make([]models.Fragment, 0, len(raw))
	for _, item := range raw {
		var f models.Fragment
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			// A corrupt entry should not poison the whole window.
			continue
		}
		frags = append(frags, f)
	}
	return frags, nil
}

func (s *RedisStore) AddTalkTime(ctx context.Context, sessionID, speaker string, seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("store: talk time must be non-negative, got %f", seconds)
	}
	if err := s.rdb.HIncrByFloat(ctx, ledgerKey(sessionID), speaker, seconds).Err(); err != nil {
		return fmt.Errorf("store: add talk time: %w", err)
	}
	return nil
}

func (s *RedisStore) Ledger(ctx context.Context, sessionID string) (models.Ledger, error) {
	raw, err := s.rdb.HGetAll(ctx, ledgerKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read ledger: %w", err)
	}
	ledger := make(models.Ledger, len(raw))
	for speaker, val := range raw {
		secs, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		ledger[speaker] = secs
	}
	return ledger, nil
}

func (s *RedisStore) IncrConnections(ctx context.Context, sessionID string, delta int64) (int64, error) {
	n, err := s.rdb.HIncrBy(ctx, metaKey(sessionID), "conns", delta).Result()
	if err != nil {
		return 0, fmt.Errorf("store: adjust connections: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	pipe := s.rdb.Pipeline()
	for _, k := range []string{sessionKey(sessionID), fragmentsKey(sessionID), ledgerKey(sessionID), metaKey(sessionID)} {
		pipe.Expire(ctx, k, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: touch session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}
