package feed

import (
	"bufio"
	"context"
	"errors"
	"net"

	"recipehub/pkg/logger"
)

type Server struct {
	Addr string
	Hub  *Hub
	Log  *logger.Logger
}

func NewServer(addr string, hub *Hub, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{Addr: addr, Hub: hub, Log: log}
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts listeners on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Log.Info("feed listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Log.Warn("feed accept failed", "error", err)
			continue
		}

		_, _ = conn.Write(s.Hub.welcome("tcp"))
		s.Hub.Add(conn)
		s.Log.Info("feed client connected", "remote", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Log.Info("feed client disconnected", "remote", c.RemoteAddr().String())
			}()

			// listeners never send anything meaningful; drain until EOF
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
