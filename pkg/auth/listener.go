package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Callback is what the provider redirect delivered to the local listener.
type Callback struct {
	Code  string
	State string
}

// WaitForCallback runs a one-shot HTTP listener on addr and blocks until the
// OAuth redirect arrives at the redirect URL's path, the context is
// cancelled, or the listener fails.
func WaitForCallback(ctx context.Context, addr, redirectURL string) (*Callback, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URL: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	results := make(chan Callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errMsg := q.Get("error"); errMsg != "" {
			http.Error(w, "Login failed: "+errMsg, http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		state := q.Get("state")
		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter.", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>Login complete. You can close this tab.</body></html>")
		select {
		case results <- Callback{Code: code, State: state}:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case cb := <-results:
		return &cb, nil
	case err := <-serveErr:
		return nil, fmt.Errorf("callback listener: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
