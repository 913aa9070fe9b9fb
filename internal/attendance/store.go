package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"

	"QRAS-backend/internal/platform/db"
)

// ErrDuplicate: UNIQUE制約違反（同時書き込みで先を越された場合）。
// 呼び出し側は「処理済み」として扱うこと。致命エラーではない。
var ErrDuplicate = errors.New("duplicate attendance")

const selectCols = `
	id,
	issuer_id,
	DATE_FORMAT(scan_date, '%Y-%m-%d')    AS scan_date,
	TIME_FORMAT(scan_time, '%H:%i:%s')    AS scan_time,
	subject_id,
	DATE_FORMAT(checkin_date, '%Y-%m-%d') AS checkin_date,
	TIME_FORMAT(checkin_time, '%H:%i:%s') AS checkin_time`

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// EnsureSchema: 起動毎に呼んで良い（IF NOT EXISTS）。
// 2つのUNIQUEキーが不変条件の本体。事前チェックはUX用の先読みに過ぎない。
func (s *Store) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS attendance (
	id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	issuer_id    VARCHAR(255) NOT NULL,
	scan_date    DATE NOT NULL,
	scan_time    TIME NOT NULL,
	subject_id   VARCHAR(255) NOT NULL,
	checkin_date DATE NOT NULL,
	checkin_time TIME NOT NULL,
	PRIMARY KEY (id),
	UNIQUE KEY uq_scan (scan_date, scan_time),
	UNIQUE KEY uq_subject_day (subject_id, checkin_date)
)`
	_, err := s.db.ExecContext(ctx, q)
	return err
}

// Scanned: このトークン（=scan_date/scan_timeの組）が既に使われたか
func (s *Store) Scanned(ctx context.Context, scanDate, scanTime string) (bool, error) {
	var found bool
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx, `
	SELECT 1 FROM attendance
	WHERE scan_date = ? AND scan_time = ? LIMIT 1`, scanDate, scanTime,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// CheckedInToday: この利用者が指定日に既にチェックイン済みか
func (s *Store) CheckedInToday(ctx context.Context, subjectID, checkinDate string) (bool, error) {
	var found bool
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx, `
	SELECT 1 FROM attendance
	WHERE subject_id = ? AND checkin_date = ? LIMIT 1`, subjectID, checkinDate,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Record: 1件挿入。UNIQUE違反は ErrDuplicate に変換して返す。
func (s *Store) Record(ctx context.Context, e Event) (uint64, error) {
	var id uint64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, `
	INSERT INTO attendance (issuer_id, scan_date, scan_time, subject_id, checkin_date, checkin_time)
	VALUES (?, ?, ?, ?, ?, ?)`,
			e.IssuerID, e.ScanDate, e.ScanTime, e.SubjectID, e.CheckinDate, e.CheckinTime,
		)
		if err != nil {
			if isDuplicateKeyErr(err) {
				return ErrDuplicate
			}
			return err
		}
		last, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(last)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// buildWheres: List/Export共通の動的WHERE
func buildWheres(q ListQuery) ([]string, []any) {
	var (
		wheres []string
		args   []any
	)
	if q.SubjectID != nil && *q.SubjectID != "" {
		wheres = append(wheres, "subject_id = ?")
		args = append(args, *q.SubjectID)
	}
	if q.IssuerID != nil && *q.IssuerID != "" {
		wheres = append(wheres, "issuer_id = ?")
		args = append(args, *q.IssuerID)
	}
	if q.On != nil && *q.On != "" {
		wheres = append(wheres, "checkin_date = ?")
		args = append(args, *q.On)
	} else {
		if q.From != nil && *q.From != "" {
			wheres = append(wheres, "checkin_date >= ?")
			args = append(args, *q.From)
		}
		if q.To != nil && *q.To != "" {
			wheres = append(wheres, "checkin_date <= ?")
			args = append(args, *q.To)
		}
	}
	return wheres, args
}

// List: 条件に応じて動的WHERE + ORDER + LIMIT/OFFSET
func (s *Store) List(ctx context.Context, q ListQuery) ([]Attendance, int64, error) {
	var buf bytes.Buffer
	buf.WriteString("SELECT " + selectCols + "\n\tFROM attendance\n")

	wheres, args := buildWheres(q)
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}

	switch q.Sort {
	case SortCheckinAsc:
		buf.WriteString(" ORDER BY checkin_date ASC, checkin_time ASC, id ASC")
	default:
		buf.WriteString(" ORDER BY checkin_date DESC, checkin_time DESC, id DESC")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Attendance
	for rows.Next() {
		var r attendanceRow
		if err := rows.Scan(&r.ID, &r.IssuerID, &r.ScanDate, &r.ScanTime, &r.SubjectID, &r.CheckinDate, &r.CheckinTime); err != nil {
			return nil, 0, err
		}
		out = append(out, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// COUNT（ORDER BY より前までを再構築）
	var cntBuf bytes.Buffer
	cntBuf.WriteString("SELECT COUNT(*) FROM attendance")
	if len(wheres) > 0 {
		cntBuf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cntBuf.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Export: List と同じ絞り込みでページングなしの全件（CSV書き出し用）
func (s *Store) Export(ctx context.Context, q ListQuery) ([]Attendance, error) {
	var buf bytes.Buffer
	buf.WriteString("SELECT " + selectCols + "\n\tFROM attendance\n")

	wheres, args := buildWheres(q)
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	buf.WriteString(" ORDER BY id ASC")

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attendance
	for rows.Next() {
		var r attendanceRow
		if err := rows.Scan(&r.ID, &r.IssuerID, &r.ScanDate, &r.ScanTime, &r.SubjectID, &r.CheckinDate, &r.CheckinTime); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

// Stats: 期間のチェックイン数を利用者別合計（TOP N）
func (s *Store) Stats(ctx context.Context, from, to string, limit int) ([]StatsRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT subject_id, COUNT(*) AS cnt
	FROM attendance
	WHERE checkin_date BETWEEN ? AND ?
	GROUP BY subject_id
	ORDER BY cnt DESC, subject_id ASC
	LIMIT ?`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatsRow
	for rows.Next() {
		var row StatsRow
		if err := rows.Scan(&row.SubjectID, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ===== helpers =====

func isDuplicateKeyErr(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
