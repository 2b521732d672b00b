package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	redisCacheTTL  = 5 * time.Minute
	redisKeyPrefix = "imgr:key:"
)

// KeyStore looks up API key metadata by hash. A nil result means unknown key.
type KeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*KeyMetadata, error)
}

// CachedKeyStore implements KeyStore with PostgreSQL and an optional Redis cache.
type CachedKeyStore struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewCachedKeyStore(db *pgxpool.Pool, rdb *redis.Client) *CachedKeyStore {
	return &CachedKeyStore{db: db, redis: rdb}
}

func (s *CachedKeyStore) Lookup(ctx context.Context, keyHash string) (*KeyMetadata, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, redisKeyPrefix+keyHash).Bytes()
		if err == nil {
			var meta KeyMetadata
			if err := json.Unmarshal(cached, &meta); err == nil {
				return &meta, nil
			}
		}
	}

	meta, err := s.lookupDB(ctx, keyHash)
	if err != nil || meta == nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(meta); err == nil {
			if err := s.redis.Set(ctx, redisKeyPrefix+keyHash, data, redisCacheTTL).Err(); err != nil {
				slog.Debug("key cache write failed", "error", err)
			}
		}
	}
	return meta, nil
}

func (s *CachedKeyStore) lookupDB(ctx context.Context, keyHash string) (*KeyMetadata, error) {
	var meta KeyMetadata
	var teacherID *string

	err := s.db.QueryRow(ctx, `
		SELECT id, school_id, teacher_id, name, allow_assisted,
		       rpm_limit, daily_assisted_quota, expires_at
		FROM api_keys
		WHERE key_hash = $1
		  AND status = 'active'
		  AND expires_at > NOW()
	`, keyHash).Scan(
		&meta.ID,
		&meta.SchoolID,
		&teacherID,
		&meta.Name,
		&meta.AllowAssisted,
		&meta.RPMLimit,
		&meta.DailyAssistedQuota,
		&meta.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query api_keys: %w", err)
	}
	if teacherID != nil {
		meta.TeacherID = *teacherID
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.db.Exec(bgCtx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, meta.ID)
	}()

	return &meta, nil
}

// NewKey is the input to Insert.
type NewKey struct {
	Hash               string
	Prefix             string
	SchoolID           string
	TeacherID          string
	Name               string
	AllowAssisted      bool
	RPMLimit           *int
	DailyAssistedQuota *int
	ExpiresAt          time.Time
}

// Insert stores a new key and returns its id.
func Insert(ctx context.Context, conn *pgx.Conn, k NewKey) (string, error) {
	var teacherID *string
	if k.TeacherID != "" {
		teacherID = &k.TeacherID
	}
	var id string
	err := conn.QueryRow(ctx, `
		INSERT INTO api_keys (key_hash, key_prefix, school_id, teacher_id, name,
		                      allow_assisted, rpm_limit, daily_assisted_quota, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, k.Hash, k.Prefix, k.SchoolID, teacherID, k.Name,
		k.AllowAssisted, k.RPMLimit, k.DailyAssistedQuota, k.ExpiresAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert api key: %w", err)
	}
	return id, nil
}
