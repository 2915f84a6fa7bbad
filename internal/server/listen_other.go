//go:build !linux

package server

import (
	"context"
	"errors"
	"net"
)

// listen opens a single listener and hands it to every worker; they accept
// from it concurrently.
func listen(ctx context.Context, addr string, n int) ([]net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	listeners := make([]net.Listener, n)
	for i := range listeners {
		listeners[i] = ln
	}
	return listeners, nil
}

func pinThread(int) error {
	return errors.New("cpu pinning is only supported on linux")
}
