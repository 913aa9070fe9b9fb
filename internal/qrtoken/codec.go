package qrtoken

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// トークンの平文は "{issuer}|{DDMMYYYY}|{HHMMSS}" をurlsafe base64（パディング有）
// したもの。発行者IDに区切り文字は使えない。
const (
	Separator  = "|"
	dateLayout = "02012006"
	timeLayout = "150405"

	// 照合・保存用のフォーマット（DATE/TIMEカラムと対応）
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var (
	ErrIssuerID       = errors.New("invalid issuer id")
	ErrMalformedToken = errors.New("malformed token")
)

// Claims: デコード済みトークンの中身
type Claims struct {
	IssuerID  string
	ScannedAt time.Time
}

func (c Claims) ScanDate() string { return c.ScannedAt.Format(DateLayout) }
func (c Claims) ScanTime() string { return c.ScannedAt.Format(TimeLayout) }

// Encode: 発行者IDと発行時刻（秒精度）をトークン文字列にする
func Encode(issuerID string, issuedAt time.Time) (string, error) {
	if issuerID == "" {
		return "", fmt.Errorf("%w: empty", ErrIssuerID)
	}
	if strings.Contains(issuerID, Separator) {
		return "", fmt.Errorf("%w: must not contain %q", ErrIssuerID, Separator)
	}

	raw := issuerID + Separator + issuedAt.Format(dateLayout) + Separator + issuedAt.Format(timeLayout)
	return base64.URLEncoding.EncodeToString([]byte(raw)), nil
}

// Decode: 外部入力の唯一のパース境界。不正入力は必ず拒否する（補正しない）。
func Decode(token string) (Claims, error) {
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: not base64url", ErrMalformedToken)
	}

	parts := strings.Split(string(b), Separator)
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: want 3 parts, got %d", ErrMalformedToken, len(parts))
	}
	if parts[0] == "" {
		return Claims{}, fmt.Errorf("%w: empty issuer", ErrMalformedToken)
	}
	if len(parts[1]) != len(dateLayout) || len(parts[2]) != len(timeLayout) {
		return Claims{}, fmt.Errorf("%w: bad field width", ErrMalformedToken)
	}

	// 固定幅・ゼロ埋め・暦として妥当、のいずれかを欠けばエラーになる
	ts, err := time.Parse(dateLayout+" "+timeLayout, parts[1]+" "+parts[2])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad timestamp", ErrMalformedToken)
	}

	return Claims{IssuerID: parts[0], ScannedAt: ts}, nil
}
