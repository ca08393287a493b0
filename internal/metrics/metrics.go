// Package metrics exposes prometheus counters for the bot.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	XPAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "langbot_xp_awarded_total",
			Help: "Total XP awarded to learners",
		},
	)
	LevelUps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langbot_level_ups_total",
			Help: "Level-ups by the level reached",
		},
		[]string{"level"},
	)
	AchievementsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langbot_achievements_awarded_total",
			Help: "Achievements awarded by key",
		},
		[]string{"key"},
	)
	Updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langbot_updates_total",
			Help: "Telegram updates handled by kind",
		},
		[]string{"kind"},
	)
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langbot_ai_requests_total",
			Help: "Requests to AI providers by operation and outcome",
		},
		[]string{"operation", "status"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "langbot_rate_limited_total",
			Help: "Updates dropped by the per-user rate limiter",
		},
	)
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langbot_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "status"},
	)
)

func init() {
	prometheus.MustRegister(XPAwarded)
	prometheus.MustRegister(LevelUps)
	prometheus.MustRegister(AchievementsAwarded)
	prometheus.MustRegister(Updates)
	prometheus.MustRegister(AIRequests)
	prometheus.MustRegister(RateLimited)
	prometheus.MustRegister(JobRuns)
}

// Server serves /metrics until stopped
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start runs the server in the background; listen errors are sent to errFn
func (s *Server) Start(errFn func(error)) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errFn(err)
		}
	}()
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
