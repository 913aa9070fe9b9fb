package qrtoken

import (
	"net/url"
	"time"
)

// Issuer: ログイン中のオペレータ名義でチェックイン用トークンを発行する。
// 同一発行者が同一秒に発行した2トークンは同一になる（既知の制約）。
type Issuer struct {
	baseURL string
	loc     *time.Location
	now     func() time.Time
}

func NewIssuer(baseURL string, loc *time.Location, now func() time.Time) *Issuer {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{baseURL: baseURL, loc: loc, now: now}
}

type IssuedToken struct {
	Token      string
	CheckinURL string
	IssuedAt   time.Time
}

func (i *Issuer) Issue(issuerID string) (IssuedToken, error) {
	issuedAt := i.now().In(i.loc).Truncate(time.Second)

	token, err := Encode(issuerID, issuedAt)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		Token:      token,
		CheckinURL: i.baseURL + "?data=" + url.QueryEscape(token),
		IssuedAt:   issuedAt,
	}, nil
}
