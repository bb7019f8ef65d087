package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/and161185/health-dashboard/internal/errs"
	"github.com/and161185/health-dashboard/internal/server/middleware"
)

// MaxListLimit bounds GET /api/metrics.
const MaxListLimit = 1000

func (srv *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		srv.logger.Errorf("failed to write response JSON: %v", err)
	}
}

func (srv *Server) writeError(w http.ResponseWriter, status int, err error) {
	srv.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// origin is the sender's address without port. RealIP has already replaced
// RemoteAddr when a proxy header was present.
func origin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SubmitMetricsHandler accepts one snapshot as a JSON object.
func (srv *Server) SubmitMetricsHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, middleware.MaxBodyBytes)
	payload, err := srv.gateway.DecodePayload(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			srv.logger.Warnf("request body too large [remote=%s]: %v", origin(r), err)
			srv.writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		if errors.Is(err, errs.ErrNoData) {
			srv.logger.Warnf("no data provided [remote=%s]: %v", origin(r), err)
			srv.writeError(w, http.StatusBadRequest, errs.ErrNoData)
			return
		}
		srv.writeError(w, http.StatusBadRequest, err)
		return
	}

	clientID, err := srv.gateway.Submit(r.Context(), payload, origin(r))
	if err != nil {
		if errors.Is(err, errs.ErrNoData) {
			srv.writeError(w, http.StatusBadRequest, errs.ErrNoData)
			return
		}
		srv.writeError(w, http.StatusInternalServerError, err)
		return
	}

	srv.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "Metrics received",
		"client_id": clientID,
	})
}

// ListMetricsHandler returns the newest snapshots, optionally for one client.
func (srv *Server) ListMetricsHandler(w http.ResponseWriter, r *http.Request) {
	limit := MaxListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			srv.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be an integer between 1 and " + strconv.Itoa(MaxListLimit),
			})
			return
		}
		limit = n
	}

	snaps := srv.recorder.QueryRecent(r.Context(), limit, r.URL.Query().Get("client_id"))

	srv.writeJSON(w, http.StatusOK, map[string]any{
		"total_entries": len(snaps),
		"total_clients": srv.recorder.CountDistinctClients(r.Context()),
		"metrics":       snaps,
	})
}

// ListClientsHandler returns the client roster.
func (srv *Server) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	clients := srv.aggregator.Clients(r.Context())
	srv.writeJSON(w, http.StatusOK, map[string]any{
		"total_clients": len(clients),
		"clients":       clients,
	})
}

// HealthHandler reports whether the store is reachable.
func (srv *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Format(time.RFC3339Nano)

	if err := srv.recorder.Ping(r.Context()); err != nil {
		srv.logger.Errorf("health check failed: %v", err)
		srv.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": now,
		})
		return
	}

	srv.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"clients":   srv.recorder.CountDistinctClients(r.Context()),
		"timestamp": now,
	})
}
