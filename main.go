package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"QRAS-backend/internal/attendance"
	"QRAS-backend/internal/platform/auth"
	"QRAS-backend/internal/platform/db"
	"QRAS-backend/internal/platform/requestid"
	"QRAS-backend/internal/qrtoken"
)

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		panic(err)
	}
	log.Printf("[INFO] checkin timezone: %s", loc)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	// スキーマ初期化（冪等）
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer bootCancel()

	authSvc := auth.NewService(conn, []byte(cfg.Auth.JWTSecret))
	if err := authSvc.EnsureSchema(bootCtx); err != nil {
		panic(err)
	}

	attSvc := attendance.NewService(conn, loc, nil)
	if err := attSvc.EnsureSchema(bootCtx); err != nil {
		panic(err)
	}

	issuer := qrtoken.NewIssuer(cfg.Checkin.BaseURL, loc, nil)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestid.New())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v1
	secret := []byte(cfg.Auth.JWTSecret)
	api := r.Group("/api/v1")

	adminOnly := r.Group("/api/v1", auth.RequireAuth(secret), auth.RequireRole(auth.RoleAdmin))
	issuerOnly := r.Group("/api/v1", auth.RequireAuth(secret), auth.RequireRole(auth.RoleIssuer, auth.RoleAdmin))

	auth.RegisterRoutes(api, adminOnly, authSvc)
	qrtoken.RegisterRoutes(issuerOnly, issuer)
	attendance.RegisterRoutes(api, adminOnly, attSvc)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
