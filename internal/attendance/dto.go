package attendance

const (
	SortCheckinDesc = "checkin_desc"
	SortCheckinAsc  = "checkin_asc"
	DefaultSort     = SortCheckinDesc

	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Outcome: チェックイン検証の終端状態。この5つ以外の出口は無い。
type Outcome string

const (
	OutcomeAccepted              Outcome = "ACCEPTED"
	OutcomeInvalidToken          Outcome = "INVALID_TOKEN"
	OutcomeTokenAlreadyUsed      Outcome = "TOKEN_ALREADY_USED"
	OutcomeAlreadyCheckedInToday Outcome = "ALREADY_CHECKED_IN_TODAY"
	OutcomeAlreadyProcessed      Outcome = "ALREADY_PROCESSED"
)

func (o Outcome) Accepted() bool { return o == OutcomeAccepted }

// Message: エンドユーザ向け文言。内部エラーの詳細はここには出さない。
func (o Outcome) Message() string {
	switch o {
	case OutcomeAccepted:
		return "You have successfully checked in!"
	case OutcomeInvalidToken:
		return "Invalid QR Code data."
	case OutcomeTokenAlreadyUsed:
		return "This QR code has already been used! Please get a new one from the admin."
	case OutcomeAlreadyCheckedInToday:
		return "You have already checked in today!"
	case OutcomeAlreadyProcessed:
		return "This check-in has already been processed."
	default:
		return ""
	}
}

type CheckInRequest struct {
	Data      string `json:"data" binding:"required"`       // URLの data パラメータの値そのまま
	SubjectID string `json:"subject_id" binding:"required"` // 例: メールアドレス
}

type CheckInResponse struct {
	Outcome      Outcome `json:"outcome"`
	Message      string  `json:"message"`
	AttendanceID uint64  `json:"attendance_id,omitempty"`
}

type AttendanceResponse struct {
	AttendanceID uint64 `json:"attendance_id"`
	IssuerID     string `json:"issuer_id"`
	ScanDate     string `json:"scan_date"`
	ScanTime     string `json:"scan_time"`
	SubjectID    string `json:"subject_id"`
	CheckinDate  string `json:"checkin_date"`
	CheckinTime  string `json:"checkin_time"`
}

type ListQuery struct {
	SubjectID *string
	IssuerID  *string
	On        *string // "YYYY-MM-DD"
	From      *string
	To        *string
	Limit     int
	Offset    int
	Sort      string
}

type StatsRequest struct {
	From  string // YYYY-MM-DD
	To    string // YYYY-MM-DD
	Limit int
}

type StatsRow struct {
	SubjectID string `json:"subject_id"`
	Count     int64  `json:"count"`
}
