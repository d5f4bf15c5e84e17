// Package udpecho is the standalone UDP responder the mobile app uses for
// raw reachability checks. It shares no state with the REST API.
package udpecho

import (
	"context"
	"net"

	"github.com/probeworks/pingd/share/logger"
)

const readBufferSize = 1024

type Server struct {
	addr   string
	logger *logger.Logger

	conn *net.UDPConn
}

func New(addr string, l *logger.Logger) *Server {
	return &Server{
		addr:   addr,
		logger: l.Fork("udp-echo"),
	}
}

// Serve listens for datagrams until the context is canceled or the socket is
// closed. Each payload of up to 1024 bytes is logged and answered with
// "ACK: " + payload.
func (s *Server) Serve(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.logger.Infof("UDP server listening on %s", conn.LocalAddr())

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		payload := string(buf[:n])
		s.logger.Infof("received from %s: %s", addr, payload)

		if _, err := conn.WriteToUDP([]byte("ACK: "+payload), addr); err != nil {
			s.logger.Errorf("failed to reply to %s: %v", addr, err)
		}
	}
}

// Addr returns the bound address, valid once Serve has started listening.
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}
