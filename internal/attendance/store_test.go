package attendance

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn), mock
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	store, mock := newTestStore(t)

	// IF NOT EXISTS なので毎起動で呼んで良い
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attendance").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attendance").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanned(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM attendance").
		WithArgs("2024-03-05", "14:07:09").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectCommit()

	found, err := store.Scanned(context.Background(), "2024-03-05", "14:07:09")
	require.NoError(t, err)
	assert.False(t, found)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM attendance").
		WithArgs("2024-03-05", "14:07:09").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()

	found, err = store.Scanned(context.Background(), "2024-03-05", "14:07:09")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs("ops1", "2024-03-05", "14:07:09", "u1@x.com", "2024-03-05", "20:15:30").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	id, err := store.Record(context.Background(), Event{
		IssuerID:    "ops1",
		ScanDate:    "2024-03-05",
		ScanTime:    "14:07:09",
		SubjectID:   "u1@x.com",
		CheckinDate: "2024-03-05",
		CheckinTime: "20:15:30",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDuplicateKey(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := store.Record(context.Background(), Event{})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOtherErrorNotDuplicate(t *testing.T) {
	store, mock := newTestStore(t)

	// 1062以外のMySQLエラーは制約違反として扱わない
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").
		WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
	mock.ExpectRollback()

	_, err := store.Record(context.Background(), Event{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestList(t *testing.T) {
	store, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "issuer_id", "scan_date", "scan_time", "subject_id", "checkin_date", "checkin_time",
	}).AddRow(1, "ops1", "2024-03-05", "14:07:09", "u1@x.com", "2024-03-05", "20:15:30")

	subject := "u1@x.com"
	mock.ExpectQuery("SELECT (.+) FROM attendance").
		WithArgs(subject).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(subject).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	out, total, err := store.List(context.Background(), ListQuery{SubjectID: &subject})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), out[0].ID)
	assert.Equal(t, "ops1", out[0].IssuerID)
	assert.Equal(t, "14:07:09", out[0].ScanTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT subject_id, COUNT").
		WithArgs("2024-03-01", "2024-03-31", 10).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "cnt"}).
			AddRow("u1@x.com", 12).
			AddRow("u2@x.com", 3))

	rows, err := store.Stats(context.Background(), "2024-03-01", "2024-03-31", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u1@x.com", rows[0].SubjectID)
	assert.Equal(t, int64(12), rows[0].Count)
}
