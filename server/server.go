package server

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Handler routes /ws to the hub
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWs)
	return mux
}

// Serve runs the hub and an HTTP listener on addr until ctx is done
func Serve(ctx context.Context, addr string, h *Hub) (err error) {
	srv := &http.Server{Addr: addr, Handler: h.Handler()}
	go h.Run(ctx)
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.WithField("addr", addr).Info("serving snapshots on /ws")
	if err = srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return
}
