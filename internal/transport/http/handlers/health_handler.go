package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checks: make(map[string]HealthCheck)}
}

// AddCheck registers a dependency probed by Ready. A nil check is skipped.
func (h *HealthHandler) AddCheck(name string, check HealthCheck) {
	if check == nil {
		return
	}
	h.checks[name] = check
}

func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	httperrors.Write(w, status, map[string]any{
		"ready":  status == http.StatusOK,
		"checks": results,
	})
}
