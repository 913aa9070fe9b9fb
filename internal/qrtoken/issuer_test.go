package qrtoken

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssue(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 123456789, time.UTC)
	issuer := NewIssuer("http://localhost:8080/checkin", time.UTC, fixedClock(at))

	res, err := issuer.Issue("ops1")
	require.NoError(t, err)

	// 秒精度に切り詰めて発行される
	assert.Equal(t, time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC), res.IssuedAt)

	claims, err := Decode(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops1", claims.IssuerID)
	assert.Equal(t, "2024-03-05", claims.ScanDate())
	assert.Equal(t, "14:07:09", claims.ScanTime())

	// URLの data パラメータからトークンがそのまま取り出せること
	u, err := url.Parse(res.CheckinURL)
	require.NoError(t, err)
	assert.Equal(t, res.Token, u.Query().Get("data"))
}

func TestIssueSameSecondSameToken(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	issuer := NewIssuer("http://localhost:8080/checkin", time.UTC, fixedClock(at))

	a, err := issuer.Issue("ops1")
	require.NoError(t, err)
	b, err := issuer.Issue("ops1")
	require.NoError(t, err)

	// 同一発行者・同一秒のトークンは同一（既知の制約）
	assert.Equal(t, a.Token, b.Token)
}

func TestIssueBadIssuer(t *testing.T) {
	issuer := NewIssuer("http://localhost:8080/checkin", time.UTC, nil)

	_, err := issuer.Issue("bad|issuer")
	assert.ErrorIs(t, err, ErrIssuerID)
}

func TestIssueTimezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// UTC 2024-03-05 23:00 は東京では翌日
	at := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	issuer := NewIssuer("http://localhost:8080/checkin", tokyo, fixedClock(at))

	res, err := issuer.Issue("ops1")
	require.NoError(t, err)

	claims, err := Decode(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-06", claims.ScanDate())
	assert.Equal(t, "08:00:00", claims.ScanTime())
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("http://localhost:8080/checkin?data=abc", 0)
	require.NoError(t, err)
	// PNGシグネチャ
	require.GreaterOrEqual(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, png[:8])
}
