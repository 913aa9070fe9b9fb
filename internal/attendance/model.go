package attendance

// DB行に対応（スキャン用）
type attendanceRow struct {
	ID          uint64
	IssuerID    string
	ScanDate    string // DATE → "YYYY-MM-DD"
	ScanTime    string // TIME → "HH:MM:SS"
	SubjectID   string
	CheckinDate string
	CheckinTime string
}

// Event: 挿入時の入力（idはDBが採番）
type Event struct {
	IssuerID    string
	ScanDate    string
	ScanTime    string
	SubjectID   string
	CheckinDate string
	CheckinTime string
}

// Service ↔ Store で使うモデル。挿入後は不変。
type Attendance struct {
	ID          uint64
	IssuerID    string
	ScanDate    string
	ScanTime    string
	SubjectID   string
	CheckinDate string
	CheckinTime string
}

func (r attendanceRow) toModel() Attendance {
	return Attendance{
		ID:          r.ID,
		IssuerID:    r.IssuerID,
		ScanDate:    r.ScanDate,
		ScanTime:    r.ScanTime,
		SubjectID:   r.SubjectID,
		CheckinDate: r.CheckinDate,
		CheckinTime: r.CheckinTime,
	}
}

func (a Attendance) toDTO() AttendanceResponse {
	return AttendanceResponse{
		AttendanceID: a.ID,
		IssuerID:     a.IssuerID,
		ScanDate:     a.ScanDate,
		ScanTime:     a.ScanTime,
		SubjectID:    a.SubjectID,
		CheckinDate:  a.CheckinDate,
		CheckinTime:  a.CheckinTime,
	}
}
