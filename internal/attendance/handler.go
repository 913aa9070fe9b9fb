package attendance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes: チェックインは公開、閲覧系は admin グループに載せる
func RegisterRoutes(public gin.IRoutes, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// エンドユーザがQRのURLから叩く
	public.POST("/checkins", h.CheckIn)

	// 台帳の閲覧・集計・書き出し
	admin.GET("/attendances", h.List)
	admin.GET("/attendances/stats", h.Stats)
	admin.GET("/attendances/export", h.Export)
}

// POST /checkins
func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CheckIn(c.Request.Context(), req.Data, req.SubjectID)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	body := CheckInResponse{
		Outcome:      res.Outcome,
		Message:      res.Outcome.Message(),
		AttendanceID: res.AttendanceID,
	}
	c.JSON(outcomeStatus(res.Outcome), body)
}

func outcomeStatus(o Outcome) int {
	switch o {
	case OutcomeAccepted:
		return http.StatusCreated
	case OutcomeInvalidToken:
		return http.StatusUnprocessableEntity
	default:
		// TOKEN_ALREADY_USED / ALREADY_CHECKED_IN_TODAY / ALREADY_PROCESSED
		return http.StatusConflict
	}
}

// GET /attendances
func (h *Handler) List(c *gin.Context) {
	q := listQueryFromParams(c)
	items, total, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// GET /attendances/stats
func (h *Handler) Stats(c *gin.Context) {
	req := StatsRequest{
		From:  c.Query("from"),
		To:    c.Query("to"),
		Limit: parseIntDefault(c.Query("limit"), 10),
	}
	rows, err := h.svc.Stats(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// GET /attendances/export
func (h *Handler) Export(c *gin.Context) {
	q := listQueryFromParams(c)
	charset := c.DefaultQuery("charset", CharsetUTF8)

	b, err := h.svc.ExportCSV(c.Request.Context(), q, charset)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	contentType := "text/csv; charset=utf-8"
	if charset == CharsetSJIS {
		contentType = "text/csv; charset=Shift_JIS"
	}
	c.Data(http.StatusOK, contentType, b)
}

// ---------- helpers ----------

func listQueryFromParams(c *gin.Context) ListQuery {
	q := ListQuery{
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Sort:   c.DefaultQuery("sort", DefaultSort),
	}
	if v := c.Query("subject_id"); v != "" {
		q.SubjectID = &v
	}
	if v := c.Query("issuer_id"); v != "" {
		q.IssuerID = &v
	}
	if v := c.Query("on"); v != "" {
		q.On = &v
	}
	if v := c.Query("from"); v != "" {
		q.From = &v
	}
	if v := c.Query("to"); v != "" {
		q.To = &v
	}
	return q
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
