package announce

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCacheMissQueriesAndStores(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, rdMock := redismock.NewClientMock()

	rdMock.ExpectGet(cacheVersion).RedisNil()
	rdMock.ExpectGet("posts:v0:0:5").RedisNil()
	dbMock.ExpectQuery("SELECT id, title, content, submitted_time, image").
		WithArgs(0, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "submitted_time", "image"}).
			AddRow(int64(2), "patch notes", "new map", int64(1700000100), "notes.png").
			AddRow(int64(1), "welcome", "hello", int64(1700000000), ""))
	rdMock.Regexp().ExpectSet("posts:v0:0:5", `\[.*\]`, cacheTTL).SetVal("OK")

	svc := NewAnnounceService(db, rdc)
	posts, err := svc.Fetch(context.Background(), 0, 5)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "patch notes", posts[0].Title)
	assert.Equal(t, int64(1), posts[1].ID)

	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, rdMock.ExpectationsWereMet())
}

func TestFetchCacheHitSkipsDatabase(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, rdMock := redismock.NewClientMock()

	cached := []Post{{ID: 7, Title: "cached", SubmittedTime: 1700000000}}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)

	rdMock.ExpectGet(cacheVersion).SetVal("3")
	rdMock.ExpectGet("posts:v3:2:5").SetVal(string(raw))

	svc := NewAnnounceService(db, rdc)
	posts, err := svc.Fetch(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, cached, posts)

	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, rdMock.ExpectationsWereMet())
}

func TestFetchWithoutRedisGoesStraightToDatabase(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery("SELECT id, title, content, submitted_time, image").
		WithArgs(0, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "submitted_time", "image"}))

	svc := NewAnnounceService(db, nil)
	posts, err := svc.Fetch(context.Background(), 0, 3)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestCreateBumpsCacheVersion(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, rdMock := redismock.NewClientMock()

	dbMock.ExpectExec("INSERT INTO announcements").
		WithArgs("title", "body", int64(1700000000), "img.png").
		WillReturnResult(sqlmock.NewResult(1, 1))
	rdMock.ExpectIncr(cacheVersion).SetVal(1)

	svc := NewAnnounceService(db, rdc)
	require.NoError(t, svc.Create(context.Background(), "title", "body", 1700000000, "img.png"))

	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, rdMock.ExpectationsWereMet())
}

func TestDeleteBumpsCacheVersion(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, rdMock := redismock.NewClientMock()

	dbMock.ExpectExec("DELETE FROM announcements").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rdMock.ExpectIncr(cacheVersion).SetVal(2)

	svc := NewAnnounceService(db, rdc)
	require.NoError(t, svc.Delete(context.Background(), 9))

	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, rdMock.ExpectationsWereMet())
}
