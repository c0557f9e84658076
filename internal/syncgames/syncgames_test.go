package syncgames

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistWritesEveryEntry(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectExec("INSERT INTO games").
		WithArgs("r-aaa111", "miniworld", "alice", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec("INSERT INTO games").
		WithArgs("r-bbb222", "michigan", "bob", int64(1700000100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{
			"room": "r-aaa111", "map": "miniworld", "winner": "alice", "at": "1700000000",
		}},
		{ID: "2-0", Values: map[string]any{
			"room": "r-bbb222", "map": "michigan", "winner": "bob", "at": "1700000100",
		}},
	}
	require.NoError(t, persist(context.Background(), db, msgs))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestPersistRollsBackOnInsertFailure(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectExec("INSERT INTO games").
		WillReturnError(errors.New("constraint violation"))
	dbMock.ExpectRollback()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{
			"room": "r-aaa111", "map": "miniworld", "winner": "alice", "at": "1700000000",
		}},
	}
	assert.Error(t, persist(context.Background(), db, msgs))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
