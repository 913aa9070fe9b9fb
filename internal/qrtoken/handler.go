package qrtoken

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"QRAS-backend/internal/platform/auth"
)

type Handler struct{ issuer *Issuer }

// RegisterRoutes: 発行系は RequireAuth 済みのグループに載せること
func RegisterRoutes(r gin.IRoutes, issuer *Issuer) {
	h := &Handler{issuer: issuer}
	r.POST("/tokens", h.IssueToken)
	r.GET("/tokens/qr.png", h.IssueQR)
}

type issuedTokenDTO struct {
	Token      string    `json:"token"`
	CheckinURL string    `json:"checkin_url"`
	IssuedAt   time.Time `json:"issued_at"`
}

// POST /tokens
func (h *Handler) IssueToken(c *gin.Context) {
	issuerID := auth.CurrentUser(c)
	if issuerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	res, err := h.issuer.Issue(issuerID)
	if err != nil {
		if errors.Is(err, ErrIssuerID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue failed"})
		return
	}

	c.JSON(http.StatusCreated, issuedTokenDTO{
		Token:      res.Token,
		CheckinURL: res.CheckinURL,
		IssuedAt:   res.IssuedAt,
	})
}

// GET /tokens/qr.png
// 呼ぶ度に新しいトークンを発行してQR画像を返す（画像は使い捨て）
func (h *Handler) IssueQR(c *gin.Context) {
	issuerID := auth.CurrentUser(c)
	if issuerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	size := DefaultQRSize
	if v := c.Query("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1024 {
			size = n
		}
	}

	res, err := h.issuer.Issue(issuerID)
	if err != nil {
		if errors.Is(err, ErrIssuerID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue failed"})
		return
	}

	png, err := QRPNG(res.CheckinURL, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
