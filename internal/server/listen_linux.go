//go:build linux

package server

import (
	"context"
	"net"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// reusePortListenConfig sets SO_REUSEPORT so that several sockets can bind
// the same address and the kernel spreads incoming connections across them.
func reusePortListenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}

// listen opens n listeners on addr, one per worker. The first one resolves
// the address (including an ephemeral port) and the rest bind to the same
// concrete address.
func listen(ctx context.Context, addr string, n int) ([]net.Listener, error) {
	lc := reusePortListenConfig()
	first, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	listeners := []net.Listener{first}
	bound := first.Addr().String()
	for i := 1; i < n; i++ {
		ln, err := lc.Listen(ctx, "tcp", bound)
		if err != nil {
			closeListeners(listeners)
			return nil, err
		}
		listeners = append(listeners, ln)
	}
	return listeners, nil
}

// pinThread locks the calling goroutine to its OS thread and restricts that
// thread to a single core.
func pinThread(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
