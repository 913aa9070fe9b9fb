package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	CharsetUTF8 = "utf8"
	CharsetSJIS = "sjis" // Windows版Excel向け（CP932相当）
)

var exportHeader = []string{
	"attendance_id", "issuer_id", "scan_date", "scan_time",
	"subject_id", "checkin_date", "checkin_time",
}

// ExportCSV: 台帳をCSVで書き出す。charset=sjis のときはShift-JISへ変換する。
func (s *Service) ExportCSV(ctx context.Context, q ListQuery, charset string) ([]byte, error) {
	if charset != CharsetUTF8 && charset != CharsetSJIS {
		return nil, ErrInvalid("charset must be utf8 or sjis")
	}
	if err := validateDates(q.On, q.From, q.To); err != nil {
		return nil, err
	}

	rows, err := s.store.Export(ctx, q)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	var out io.Writer = &b
	if charset == CharsetSJIS {
		out = transform.NewWriter(&b, japanese.ShiftJIS.NewEncoder())
	}
	w := csv.NewWriter(out)

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatUint(r.ID, 10),
			r.IssuerID, r.ScanDate, r.ScanTime,
			r.SubjectID, r.CheckinDate, r.CheckinTime,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
