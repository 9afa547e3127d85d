package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"haca/auth"
	"haca/internal/utils"
	"haca/internal/web/api"
	"haca/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

type WebServer struct {
	router *gin.Engine
	server *http.Server
}

func NewWebServer(authModule *auth.AuthModule, deps api.Dependencies, configDir string) *WebServer {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	middlewareManager := middleware.NewMiddlewareManager(authModule)
	if !authModule.Enabled() {
		utils.Logger("WEB").Warnf("JWT_SECRET is not set, the API is unauthenticated")
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.RegisterAuthRoutes(router, authModule)
	api.RegisterReportRoutes(router, middlewareManager, deps)
	api.RegisterFixRoutes(router, middlewareManager, deps)
	api.RegisterBackupRoutes(router, middlewareManager, deps, configDir)

	return &WebServer{router: router}
}

// Handler exposes the router, e.g. for httptest
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (ws *WebServer) Start(ctx context.Context, addr string) error {
	ws.server = &http.Server{
		Addr:              addr,
		Handler:           ws.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		utils.Logger("WEB").Infof("Listening on %s", addr)
		errCh <- ws.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ws.server.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.Logger("WEB").Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
