package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod", "json")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", line["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", line["span_id"])
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, "prod", "json").Debug("quiet")
	assert.Zero(t, buf.Len())

	newLogger(&buf, "dev", "text").Debug("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestClassifyDBErr(t *testing.T) {
	assert.Equal(t, "unique_violation", ClassifyDBErr(&pgconn.PgError{Code: "23505"}))
	assert.Equal(t, "pg_42P01", ClassifyDBErr(&pgconn.PgError{Code: "42P01"}))
	assert.Equal(t, "timeout", ClassifyDBErr(context.DeadlineExceeded))
	assert.Equal(t, "connection", ClassifyDBErr(errors.New("connection refused")))
	assert.Equal(t, "unknown", ClassifyDBErr(errors.New("boom")))
}

func TestObserveDB_CountsErrorsButNotMisses(t *testing.T) {
	p := NewProm()

	_ = p.ObserveDB("users.find_by_id", func() error { return pgx.ErrNoRows })
	_ = p.ObserveDB("users.save", func() error { return &pgconn.PgError{Code: "23505"} })

	assert.Equal(t, 0.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.find_by_id", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.save", "unique_violation")))
}

func TestObserveDB_NilPromRunsFn(t *testing.T) {
	var p *Prom
	called := false

	err := p.ObserveDB("op", func() error { called = true; return nil })

	require.NoError(t, err)
	assert.True(t, called)
}

func TestGinMiddleware_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm()

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(p.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/users/:id", "200")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(w.Body.String(), "storefront_http_requests_total"))
}

func TestJobStats_Snapshot(t *testing.T) {
	s := NewJobStats()
	s.IncClaimed()
	s.IncClaimed()
	s.IncDone()
	s.ObserveDuration(10 * time.Millisecond)
	s.ObserveDuration(30 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Claimed)
	assert.Equal(t, uint64(1), snap.Done)
	assert.Equal(t, 20*time.Millisecond, snap.AverageDuration)
	assert.Equal(t, 30*time.Millisecond, snap.MaxDuration)
}
