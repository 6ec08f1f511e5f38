// Package inspect serves a read-only HTTP view of a live session for
// debugging: health, prometheus metrics, grid contents, highlights and
// in-flight requests.
package inspect

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/gridlink/internal/auth"
	"github.com/danmuck/gridlink/internal/grid"
	"github.com/danmuck/gridlink/internal/highlight"
	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/observability"
	"github.com/danmuck/gridlink/internal/redraw"
	"github.com/danmuck/gridlink/internal/rpc"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Source is the session surface the server reads. *session.Session implements it.
type Source interface {
	GridIDs() []int
	Order() []int
	GridSnapshot(id int) (grid.Grid, bool)
	AttributeFor(id int) highlight.Attribute
	Resolve(attr highlight.Attribute) (fg, bg, sp highlight.Color)
	DefaultColors() highlight.DefaultColors
	Cursor() grid.Cursor
	UI() redraw.UIState
	Pending() []rpc.PendingRequest
	Attached() bool
	Flushes() uint64
	Done() <-chan struct{}
}

type Server struct {
	ID      string
	Addr    string
	Started time.Time

	source Source
	router *gin.Engine
}

// New builds the router with logging, metrics and CORS middleware. A
// non-empty token puts every route except /health and /ready behind bearer
// auth. Routes are added by RegisterRoutes.
func New(id, addr string, corsOrigins []string, token string, source Source) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	if token != "" {
		r.Use(auth.Middleware(auth.StaticToken{Token: token}, "/health", "/ready"))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		ID:      id,
		Addr:    addr,
		Started: time.Now(),
		source:  source,
		router:  r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"session": s.ID,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := s.ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":    ready,
			"attached": s.source.Attached(),
			"flushes":  s.source.Flushes(),
			"session":  s.ID,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/grids", func(c *gin.Context) {
		ids := s.source.GridIDs()
		grids := make([]GridInfo, 0, len(ids))
		for _, id := range ids {
			if g, ok := s.source.GridSnapshot(id); ok {
				grids = append(grids, gridInfo(g))
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"grids":  grids,
			"order":  s.source.Order(),
			"cursor": s.source.Cursor(),
		})
	})

	r.GET("/grids/:id", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		g, found := s.source.GridSnapshot(id)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrGridNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, gridDetail(g, c.Query("attrs") != ""))
	})

	r.GET("/highlights/:id", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		attr := s.source.AttributeFor(id)
		fg, bg, sp := s.source.Resolve(attr)
		c.JSON(http.StatusOK, HighlightInfo{
			ID:         id,
			Foreground: fg.Hex(),
			Background: bg.Hex(),
			Special:    sp.Hex(),
			Style:      attr.Style.String(),
			Blend:      attr.Blend,
			Kind:       attr.Kind.String(),
			Groups:     attr.Groups,
		})
	})

	r.GET("/ui", func(c *gin.Context) {
		ui := s.source.UI()
		d := s.source.DefaultColors()
		c.JSON(http.StatusOK, gin.H{
			"title": ui.Title,
			"mode":  ui.Mode,
			"busy":  ui.Busy,
			"mouse": ui.MouseEnabled,
			"defaults": gin.H{
				"foreground": d.Foreground.Hex(),
				"background": d.Background.Hex(),
				"special":    d.Special.Hex(),
			},
		})
	})

	r.GET("/pending", func(c *gin.Context) {
		pending := s.source.Pending()
		out := make([]PendingInfo, 0, len(pending))
		for _, p := range pending {
			out = append(out, PendingInfo{
				ID:       p.ID,
				Method:   p.Method,
				Blocking: p.Blocking,
				Age:      time.Since(p.SentAt).String(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"pending": out})
	})
}

var (
	ErrGridNotFound = errors.New("inspect: grid not found")
	ErrBadID        = errors.New("inspect: id must be an integer")
)

// Serve registers routes and listens until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logs.Infof("inspect.Server.Serve listening addr=%s session=%s", s.Addr, s.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) ready() bool {
	select {
	case <-s.source.Done():
		return false
	default:
	}
	return s.source.Attached()
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrBadID.Error()})
		return 0, false
	}
	return id, true
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
