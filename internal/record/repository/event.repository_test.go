package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"recordstore/internal/record/model"
	"recordstore/internal/record/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*EventRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEventRepository(db), mock
}

func TestMigrate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS record_events").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendBatchInsertsEventsInOneTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	events := []model.Event{
		{Type: model.AuditEntryAdded, DocumentID: "D1", Action: "create", PerformedBy: "U1", Timestamp: 1},
		{Type: model.AuditEntryAdded, DocumentID: "D2", Action: "view", PerformedBy: "U2", Timestamp: 2},
	}

	mock.ExpectBegin()
	for _, ev := range events {
		payload, _ := json.Marshal(ev)
		mock.ExpectExec("INSERT INTO record_events \\(event_type, payload, created_at\\) VALUES \\(\\$1, \\$2, NOW\\(\\)\\)").
			WithArgs("AuditEntryAdded", payload).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.AppendBatch(context.Background(), events))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendBatchRollsBackOnInsertError(t *testing.T) {
	repo, mock := newMockRepo(t)
	dbErr := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO record_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO record_events").WillReturnError(dbErr)
	mock.ExpectRollback()

	err := repo.AppendBatch(context.Background(), []model.Event{
		{Type: model.UserCreated, UserID: "U1", Name: "Alice"},
		{Type: model.UserCreated, UserID: "U2", Name: "Bob"},
	})
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "insert UserCreated event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedJournalWriteLeavesStoreUnchanged(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := store.New("admin", nil, store.WithJournal(repo))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO record_events").WithArgs("UserCreated", sqlmock.AnyArg()).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.CreateUser("admin", "U1", "Alice", "a@x.com")
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")

	_, err = s.UserDetails("U1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// the user was never applied, so the dependent write is rejected before touching the journal
	err = s.CreateDocument("admin", "U1", "H1", "D1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournaledStateSurvivesReplay(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := store.New("admin", nil, store.WithJournal(repo))

	var journaled []model.Event
	expectInsert := func(ev model.Event) {
		payload, _ := json.Marshal(ev)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO record_events").WithArgs(string(ev.Type), payload).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		journaled = append(journaled, ev)
	}
	expectInsert(model.Event{Type: model.UserCreated, UserID: "U1", Name: "Alice", Email: "a@x.com"})
	expectInsert(model.Event{Type: model.DocumentCreated, UserID: "U1", DocumentID: "D1", ContentHash: "H1"})

	require.NoError(t, s.CreateUser("admin", "U1", "Alice", "a@x.com"))
	require.NoError(t, s.CreateDocument("admin", "U1", "H1", "D1"))
	assert.NoError(t, mock.ExpectationsWereMet())

	restarted := store.New("admin", nil)
	require.NoError(t, restarted.Replay(journaled))
	docs, err := restarted.DocumentsByUser("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.DocumentRecord{{DocumentID: "D1", ContentHash: "H1"}}, docs)
}

func TestRecordTimesOutOnStalledDatabase(t *testing.T) {
	repo, mock := newMockRepo(t)
	repo.Timeout = 20 * time.Millisecond
	s := store.New("admin", nil, store.WithJournal(repo))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO record_events").WillDelayFor(time.Second).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	started := time.Now()
	err := s.CreateUser("admin", "U1", "Alice", "a@x.com")
	require.Error(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)

	_, err = s.UserDetails("U1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLoadReturnsEventsInOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"seq", "event_type", "payload"}).
		AddRow(1, "UserCreated", []byte(`{"type":"UserCreated","user_id":"U1","name":"Alice","email":"a@x.com"}`)).
		AddRow(2, "AuditEntryAdded", []byte(`{"type":"AuditEntryAdded","document_id":"D1","action":"view","performed_by":"U1","timestamp":42}`))
	mock.ExpectQuery("SELECT seq, event_type, payload FROM record_events ORDER BY seq ASC").WillReturnRows(rows)

	events, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Event{
		{Type: model.UserCreated, UserID: "U1", Name: "Alice", Email: "a@x.com"},
		{Type: model.AuditEntryAdded, DocumentID: "D1", Action: "view", PerformedBy: "U1", Timestamp: 42},
	}, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRejectsCorruptPayload(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"seq", "event_type", "payload"}).AddRow(7, "UserCreated", []byte(`{not json`))
	mock.ExpectQuery("SELECT seq, event_type, payload FROM record_events").WillReturnRows(rows)

	_, err := repo.Load(context.Background())
	assert.ErrorContains(t, err, "decode record event 7")
}

func TestLoadQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT seq").WillReturnError(errors.New("no such table"))

	_, err := repo.Load(context.Background())
	assert.ErrorContains(t, err, "load record events")
}
