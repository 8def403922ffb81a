package registry

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"
)

// NewHandler exposes a registry over HTTP. Endpoints:
//
//	POST /publish  body: Blob JSON      -> {"id": "<hex digest>"}
//	GET  /fetch?id=<hex digest>         -> Blob JSON
//	GET  /find?name=<n>&constraint=<c>  -> {"id": ..., "manifest": ...}
//	GET  /list?name=<n>                 -> [Manifest...]
func NewHandler(reg Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/publish", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var blob Blob
		if err := json.NewDecoder(r.Body).Decode(&blob); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		id, err := reg.Publish(r.Context(), blob)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]ModuleID{"id": id})
	})

	mux.HandleFunc("/fetch", func(w http.ResponseWriter, r *http.Request) {
		id := ModuleID(r.URL.Query().Get("id"))
		blob, err := reg.Fetch(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, blob)
	})

	mux.HandleFunc("/find", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		constraint, err := parseConstraint(r.URL.Query().Get("constraint"))
		if err != nil {
			http.Error(w, "bad constraint: "+err.Error(), http.StatusBadRequest)
			return
		}
		id, man, err := reg.Find(r.Context(), name, constraint)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, findResult{ID: id, Manifest: man})
	})

	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		mans, err := reg.List(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, mans)
	})

	return mux
}

type findResult struct {
	ID       ModuleID `json:"id"`
	Manifest Manifest `json:"manifest"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// HTTP3Server wraps http3.Server lifecycle for serving a registry over
// QUIC.
type HTTP3Server struct {
	srv   *http3.Server
	pc    net.PacketConn
	addr  string
	close func() error
}

// NewHTTP3Server creates a server bound to addr with the given TLS config
// and handler.
func NewHTTP3Server(addr string, tlsCfg *tls.Config, h http.Handler) *HTTP3Server {
	s := &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: h}
	return &HTTP3Server{srv: s, addr: addr}
}

// Start begins serving HTTP/3. With an addr ending in ":0" an ephemeral UDP
// port is chosen; the bound address is returned.
func (s *HTTP3Server) Start() (string, error) {
	var err error
	s.pc, err = net.ListenPacket("udp", s.addr)
	if err != nil {
		return "", err
	}
	realAddr := s.pc.LocalAddr().String()
	done := make(chan struct{})
	go func() {
		_ = s.srv.Serve(s.pc)
		close(done)
	}()
	s.close = func() error {
		_ = s.pc.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
	return realAddr, nil
}

// Stop stops the server.
func (s *HTTP3Server) Stop() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}

// HTTP3Client returns an http.Client using an HTTP/3 round tripper.
func HTTP3Client(tlsCfg *tls.Config, timeout time.Duration) *http.Client {
	tr := &http3.Transport{TLSClientConfig: tlsCfg}
	return &http.Client{Transport: tr, Timeout: timeout}
}
