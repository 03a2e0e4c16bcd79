package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/netip"

	"github.com/JosticeMan/RPlace/internal/protocol"
)

// MaxMessageSize bounds a client frame. LOGIN and CHANGE_TILE, the only
// messages a client sends, fit easily.
const MaxMessageSize = 4096

// Handler routes session upgrades and the read-only HTTP endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(protocol.Path, s.handleConnections)
	mux.HandleFunc("/board", s.corsMiddleware(s.handleGetBoard))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleConnections(rw http.ResponseWriter, req *http.Request) {
	host := getHost(req)
	if !s.limiter.AllowAt(host, s.now()) {
		logger.WithField("addr", host).Info("connection refused, cooldown not elapsed")
		http.Error(rw, "too many connections", http.StatusTooManyRequests)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	ws, err := s.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		logger.WithError(err).WithField("addr", host).Warn("upgrade connection failed")
		return
	}
	ws.SetReadLimit(MaxMessageSize)

	sess := newSession(s, protocol.NewConn(ws), host)
	s.live.Store(sess, struct{}{})
	defer s.live.Delete(sess)
	if s.closing.Load() {
		sess.conn.Close()
	}

	if err := sess.Run(req.Context()); err != nil {
		sess.logger.WithError(err).Info("session ended")
	}
}

func (s *Server) handleGetBoard(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		logger.WithError(err).Error("marshal board failed")
		http.Error(rw, "could not retrieve board", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	rw.Write(data)
}

func (s *Server) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(struct {
		Status  string `json:"status"`
		Dim     int    `json:"dim"`
		Clients int    `json:"clients"`
	}{"ok", s.Dim(), s.registry.Len()})
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := s.allowedOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next(w, r)
	}
}

// checkOrigin admits non-browser clients, which send no Origin, and browsers
// from the configured origin. Without a configured origin everything is
// admitted.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return s.allowedOrigin == "" || origin == "" || origin == s.allowedOrigin
}

// getHost returns the peer's host with the port stripped. IP addresses are
// normalised so that IPv4-mapped IPv6 peers share their IPv4 entry.
func getHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap().String()
	}
	return host
}
