package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"QRAS-backend/internal/qrtoken"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string         { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError     { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError    { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError    { return &APIError{Code: CodeConflict, Message: msg} }
func ErrUnavailable(msg string) *APIError { return &APIError{Code: CodeUnavailable, Message: msg} }
func ErrInternal(msg string) *APIError    { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		case CodeUnavailable:
			return 503
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	db    *sql.DB
	store *Store
	loc   *time.Location
	now   func() time.Time
}

// NewService: loc は設定で固定したタイムゾーン（「今日」の判定に使う）。
// now はテストから差し替えられるよう注入する。nil なら time.Now。
func NewService(conn *sql.DB, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{db: conn, store: NewStore(conn), loc: loc, now: now}
}

func (s *Service) EnsureSchema(ctx context.Context) error {
	return s.store.EnsureSchema(ctx)
}

type CheckInResult struct {
	Outcome      Outcome
	AttendanceID uint64
}

// CheckIn: 提示されたトークンを検証して台帳に記録する。
//
//	デコード → 使用済みチェック → 当日重複チェック → 挿入
//
// 却下は error ではなく Outcome で返す。error はストレージ障害のみ。
// 事前チェックと挿入の間はロックしない：正しさはUNIQUE制約が保証し、
// 競合に敗けた挿入は ALREADY_PROCESSED として正常終了する。
func (s *Service) CheckIn(ctx context.Context, rawToken, subjectID string) (CheckInResult, error) {
	if subjectID == "" {
		return CheckInResult{}, ErrInvalid("subject_id is required")
	}

	claims, err := qrtoken.Decode(rawToken)
	if err != nil {
		return CheckInResult{Outcome: OutcomeInvalidToken}, nil
	}

	// 「今日」はこの一回の検証で一度だけ、固定タイムゾーンで決める
	now := s.now().In(s.loc)
	today := now.Format(qrtoken.DateLayout)

	used, err := s.store.Scanned(ctx, claims.ScanDate(), claims.ScanTime())
	if err != nil {
		return CheckInResult{}, ErrUnavailable("attendance store unavailable")
	}
	if used {
		return CheckInResult{Outcome: OutcomeTokenAlreadyUsed}, nil
	}

	dup, err := s.store.CheckedInToday(ctx, subjectID, today)
	if err != nil {
		return CheckInResult{}, ErrUnavailable("attendance store unavailable")
	}
	if dup {
		return CheckInResult{Outcome: OutcomeAlreadyCheckedInToday}, nil
	}

	id, err := s.store.Record(ctx, Event{
		IssuerID:    claims.IssuerID,
		ScanDate:    claims.ScanDate(),
		ScanTime:    claims.ScanTime(),
		SubjectID:   subjectID,
		CheckinDate: today,
		CheckinTime: now.Format(qrtoken.TimeLayout),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return CheckInResult{Outcome: OutcomeAlreadyProcessed}, nil
		}
		return CheckInResult{}, ErrUnavailable("attendance store unavailable")
	}

	return CheckInResult{Outcome: OutcomeAccepted, AttendanceID: id}, nil
}

// GET /attendances
func (s *Service) List(ctx context.Context, q ListQuery) ([]AttendanceResponse, int64, error) {
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if err := validateDates(q.On, q.From, q.To); err != nil {
		return nil, 0, err
	}

	rows, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AttendanceResponse, 0, len(rows))
	for i := 0; i < len(rows); i++ {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

// GET /attendances/stats
func (s *Service) Stats(ctx context.Context, req StatsRequest) ([]StatsRow, error) {
	from, err := time.ParseInLocation(qrtoken.DateLayout, req.From, time.UTC)
	if err != nil {
		return nil, ErrInvalid("from must be YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(qrtoken.DateLayout, req.To, time.UTC)
	if err != nil {
		return nil, ErrInvalid("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, ErrInvalid("to must be >= from")
	}
	return s.store.Stats(ctx, req.From, req.To, req.Limit)
}

func validateDates(vals ...*string) error {
	for _, v := range vals {
		if v == nil || *v == "" {
			continue
		}
		if _, err := time.ParseInLocation(qrtoken.DateLayout, *v, time.UTC); err != nil {
			return ErrInvalid("date must be YYYY-MM-DD")
		}
	}
	return nil
}
