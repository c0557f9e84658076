package announce

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Post struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	SubmittedTime int64  `json:"submittedtime"`
	Image         string `json:"image"`
}

const (
	cacheTTL     = 30 * time.Second
	cacheVersion = "posts:ver"
)

type IAnnounceService interface {
	Fetch(ctx context.Context, startIndex, amount int) ([]Post, error)
	Create(ctx context.Context, title, content string, submittedTime int64, image string) error
	Delete(ctx context.Context, postID int64) error
}

type announceService struct {
	db  *sql.DB
	rdc *redis.Client
}

func NewAnnounceService(db *sql.DB, rdc *redis.Client) IAnnounceService {
	return &announceService{db: db, rdc: rdc}
}

// Fetch serves one announcement page, newest first. Pages are cached in
// redis under a version key that create/delete bump, so a stale page can
// live at most cacheTTL.
func (svc *announceService) Fetch(ctx context.Context, startIndex, amount int) ([]Post, error) {
	key := svc.cacheKey(ctx, startIndex, amount)
	if key != "" {
		if raw, err := svc.rdc.Get(ctx, key).Result(); err == nil {
			var posts []Post
			if json.Unmarshal([]byte(raw), &posts) == nil {
				return posts, nil
			}
		}
	}

	const q = `SELECT id, title, content, submitted_time, image
	             FROM announcements
	         ORDER BY submitted_time DESC
	           OFFSET $1 LIMIT $2`
	rows, err := svc.db.QueryContext(ctx, q, startIndex, amount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.SubmittedTime, &p.Image); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if key != "" {
		if raw, err := json.Marshal(posts); err == nil {
			if err := svc.rdc.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
				zap.L().Debug("announce.cache_set", zap.Error(err))
			}
		}
	}
	return posts, nil
}

func (svc *announceService) Create(ctx context.Context, title, content string, submittedTime int64, image string) error {
	const q = `INSERT INTO announcements (title, content, submitted_time, image)
	                VALUES ($1, $2, $3, $4)`
	if _, err := svc.db.ExecContext(ctx, q, title, content, submittedTime, image); err != nil {
		return err
	}
	svc.bumpVersion(ctx)
	return nil
}

func (svc *announceService) Delete(ctx context.Context, postID int64) error {
	if _, err := svc.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, postID); err != nil {
		return err
	}
	svc.bumpVersion(ctx)
	return nil
}

// cacheKey folds the current version into the key; "" disables caching
// for this call (redis absent or unreachable).
func (svc *announceService) cacheKey(ctx context.Context, startIndex, amount int) string {
	if svc.rdc == nil {
		return ""
	}
	ver, err := svc.rdc.Get(ctx, cacheVersion).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("posts:v%d:%d:%d", ver, startIndex, amount)
}

func (svc *announceService) bumpVersion(ctx context.Context) {
	if svc.rdc == nil {
		return
	}
	if err := svc.rdc.Incr(ctx, cacheVersion).Err(); err != nil {
		zap.L().Debug("announce.cache_bump", zap.Error(err))
	}
}
