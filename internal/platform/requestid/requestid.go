package requestid

import (
	"crypto/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const (
	HeaderKey = "X-Request-ID"
	CtxKey    = "request_id"
)

// New: リクエスト毎にULIDを採番してヘッダとcontextに載せる。
// クライアントが X-Request-ID を持ち込んだ場合はそれを優先する。
func New() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderKey)
		if id == "" {
			id = newULID(time.Now())
		}
		c.Set(CtxKey, id)
		c.Writer.Header().Set(HeaderKey, id)
		c.Next()
	}
}

// FromContext: ログ相関用。未設定なら空文字。
func FromContext(c *gin.Context) string {
	v, ok := c.Get(CtxKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func newULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		// entropy切れ等。採番失敗は相関IDなしで続行する。
		return ""
	}
	return id.String()
}
