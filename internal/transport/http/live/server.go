package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nickelsound/3DprinterMonitor/internal/logger"
	"github.com/nickelsound/3DprinterMonitor/internal/monitor"
	"github.com/nickelsound/3DprinterMonitor/internal/store/sqlite"
)

// StatusSource exposes the latest tick published by the monitor loop.
type StatusSource interface {
	Latest() (monitor.TickStatus, bool)
}

// Server provides the minimal ops surface: health check, loop state and
// recent history.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server's dependencies. History may be nil, in
// which case the history routes answer 404.
type ServerConfig struct {
	Addr    string
	Status  StatusSource
	History *sqlite.HistoryStore
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Status == nil {
		return nil, errors.New("live http server requires a status source")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9981"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/monitor")
	api.GET("/state", func(c *gin.Context) {
		st, ok := cfg.Status.Latest()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no tick completed yet"})
			return
		}
		c.JSON(http.StatusOK, monitorStateResponse{
			At:                  st.At,
			PrinterState:        st.PrinterState,
			LastSentState:       st.LastSentState,
			LastSentDisplayName: st.LastSentDisplayName,
			SlotIndex:           st.SlotIndex,
			CycleCount:          st.CycleCount,
			PrevVerdict:         string(st.PrevVerdict),
			ConfirmedFailure:    st.ConfirmedFailure,
			LastError:           st.LastError,
		})
	})
	if cfg.History != nil {
		api.GET("/events", func(c *gin.Context) {
			rows, err := cfg.History.RecentEvents(c.Request.Context(), queryLimit(c))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			out := make([]eventResponse, 0, len(rows))
			for _, row := range rows {
				out = append(out, eventResponse{
					ID:          row.ID,
					Kind:        row.Kind,
					State:       row.State,
					DisplayName: row.DisplayName,
					SendError:   row.SendError,
					At:          row.CreatedAt,
				})
			}
			c.JSON(http.StatusOK, gin.H{"events": out})
		})
		api.GET("/analyses", func(c *gin.Context) {
			rows, err := cfg.History.RecentAnalyses(c.Request.Context(), queryLimit(c))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			out := make([]analysisResponse, 0, len(rows))
			for _, row := range rows {
				out = append(out, analysisResponse{
					ID:               row.ID,
					TraceID:          row.TraceID,
					Verdict:          row.Verdict,
					PreviousVerdict:  row.PreviousVerdict,
					ConfirmedFailure: row.ConfirmedFailure,
					StopFired:        row.StopFired,
					ResponseExcerpt:  row.ResponseExcerpt,
					Note:             row.Note,
					At:               row.CreatedAt,
				})
			}
			c.JSON(http.StatusOK, gin.H{"analyses": out})
		})
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

const defaultHistoryLimit = 50

func queryLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	return n
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d dur=%s", method, path, c.Writer.Status(), time.Since(start))
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
