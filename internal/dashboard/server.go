// Package dashboard serves the web feeder: a JSON view of the recent signal
// buffer plus a websocket stream of live events.
package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ofi-stream-go/market"
	"ofi-stream-go/metrics"
	"ofi-stream-go/sink"
)

type Server struct {
	ring   *sink.Ring
	hub    *Hub
	logger *zap.Logger
	router *gin.Engine
}

type bufferRequest struct {
	Size int `json:"size" binding:"required"`
}

func New(ring *sink.Ring, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ring:   ring,
		hub:    hub,
		logger: logger.With(zap.String("component", "dashboard")),
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/signals", s.signals)
	api.GET("/buffer", s.buffer)
	api.PUT("/buffer", s.resizeBuffer)

	r.GET("/ws", s.stream)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// HTTPServer 由调用方负责启动/关闭。
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.hub.Clients()})
}

// signals ?limit=N&channel=orderbook.1.BTCUSDT
func (s *Server) signals(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	events := s.ring.Last(limit)
	if ch := c.Query("channel"); ch != "" {
		events = filterChannel(events, ch)
	}
	c.JSON(http.StatusOK, gin.H{"size": s.ring.Cap(), "events": events})
}

func (s *Server) buffer(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"size": s.ring.Cap(), "len": s.ring.Len()})
}

func (s *Server) resizeBuffer(c *gin.Context) {
	var req bufferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size := sink.ClampRingSize(req.Size)
	s.ring.Resize(size)
	s.logger.Info("buffer resized", zap.Int("size", size))
	c.JSON(http.StatusOK, gin.H{"size": size})
}

func (s *Server) stream(c *gin.Context) {
	if err := s.hub.serve(c.Writer, c.Request, s.ring.Snapshot()); err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

func filterChannel(events []market.SignalEvent, channel string) []market.SignalEvent {
	out := events[:0]
	for _, ev := range events {
		if ev.Channel == channel {
			out = append(out, ev)
		}
	}
	return out
}
