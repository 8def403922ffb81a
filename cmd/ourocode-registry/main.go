// Command ourocode-registry serves a content-addressed rule module registry
// over HTTP, or over HTTP/3 when a TLS certificate is supplied.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ourocode-lang/ourocode/internal/cli"
	"github.com/ourocode-lang/ourocode/internal/registry"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		addr        = flag.String("addr", ":8475", "listen address")
		useHTTP3    = flag.Bool("http3", false, "serve HTTP/3 over QUIC (requires -cert and -key)")
		certFile    = flag.String("cert", "", "TLS certificate file")
		keyFile     = flag.String("key", "", "TLS key file")
		verbose     = flag.Bool("v", false, "verbose output")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Serves a rule module registry.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		cli.PrintVersion("ourocode-registry", false)
		os.Exit(0)
	}

	log := cli.NewLogger(true, *verbose)
	reg := registry.NewInMemoryRegistry()
	handler := NewLoggingHandler(registry.NewHandler(reg), log)

	if *useHTTP3 {
		if *certFile == "" || *keyFile == "" {
			cli.ExitWithError("-http3 requires -cert and -key")
		}
		cert, err := tls.LoadX509KeyPair(*certFile, *keyFile)
		if err != nil {
			cli.ExitWithError("load TLS keypair: %v", err)
		}
		tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
		srv := registry.NewHTTP3Server(*addr, tlsCfg, handler)
		bound, err := srv.Start()
		if err != nil {
			cli.ExitWithError("start HTTP/3 server: %v", err)
		}
		log.Info("registry listening on %s (HTTP/3)", bound)
		select {} // serve until killed
	}

	log.Info("registry listening on %s", *addr)
	server := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		cli.ExitWithError("%v", err)
	}
}

// NewLoggingHandler wraps a handler with request logging.
func NewLoggingHandler(h http.Handler, log *cli.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		log.Debug("%s %s (%v)", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}
