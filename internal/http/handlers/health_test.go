package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/storefront/internal/http/handlers"
)

func TestReadyz(t *testing.T) {
	ok := handlers.PingFunc(func(context.Context) error { return nil })
	down := handlers.PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name string
		deps map[string]handlers.Pinger
		want int
	}{
		{"no deps", nil, http.StatusOK},
		{"all up", map[string]handlers.Pinger{"store": ok, "redis": ok}, http.StatusOK},
		{"redis down", map[string]handlers.Pinger{"store": ok, "redis": down}, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tc.deps)
			r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

			if w := doJSON(r, http.MethodGet, "/readyz", ""); w.Code != tc.want {
				t.Fatalf("got status %d, want %d body=%s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
