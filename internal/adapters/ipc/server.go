package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// ErrBrokerRunning means a responsive broker already owns the socket.
var ErrBrokerRunning = errors.New("broker already running")

// Server owns the broker's unix socket. It accepts one request per
// connection and hands prompt requests to the in-process dispatcher,
// which serializes them against the single backend session.
type Server struct {
	socketPath string
	pidPath    string
	dispatcher ports.Dispatcher
	queueDepth func() int
}

func NewServer(socketPath, pidPath string, dispatcher ports.Dispatcher, queueDepth func() int) *Server {
	return &Server{
		socketPath: socketPath,
		pidPath:    pidPath,
		dispatcher: dispatcher,
		queueDepth: queueDepth,
	}
}

// Serve runs until ctx is cancelled, then removes the socket and pid file.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.claimSocket(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on broker socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("restrict broker socket: %w", err)
	}

	if err := os.WriteFile(s.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600); err != nil {
		listener.Close()
		os.Remove(s.socketPath)
		return fmt.Errorf("write broker pid file: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-groupCtx.Done()
		listener.Close()
		return nil
	})

	group.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if groupCtx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept broker connection: %w", err)
			}
			go s.handleConn(groupCtx, conn)
		}
	})

	err = group.Wait()

	os.Remove(s.socketPath)
	os.Remove(s.pidPath)

	return err
}

// claimSocket removes a stale socket left by a crashed broker. A socket
// that still answers a ping belongs to a live broker and must be left alone.
func (s *Server) claimSocket(ctx context.Context) error {
	if _, err := os.Stat(s.socketPath); err != nil {
		return nil
	}

	client := NewClient(s.socketPath)
	if err := client.Ping(ctx); err == nil {
		return fmt.Errorf("%w at %s", ErrBrokerRunning, s.socketPath)
	}

	if err := os.Remove(s.socketPath); err != nil {
		return fmt.Errorf("remove stale broker socket: %w", err)
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return
	}

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		s.writeResponse(conn, Response{Kind: req.Kind, Error: "malformed request"})
		return
	}

	s.writeResponse(conn, s.handle(ctx, req))
}

func (s *Server) handle(ctx context.Context, req Request) Response {
	switch req.Kind {
	case KindPing:
		return Response{OK: true, Kind: KindPing, PID: os.Getpid()}
	case KindInfo:
		resp := Response{OK: true, Kind: KindInfo, PID: os.Getpid()}
		if s.queueDepth != nil {
			resp.QueueDepth = s.queueDepth()
		}
		return resp
	case KindPrompt:
		return s.handlePrompt(ctx, req)
	default:
		return Response{Kind: req.Kind, Error: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

func (s *Server) handlePrompt(ctx context.Context, req Request) Response {
	personaID := domain.PersonaID(req.Persona)
	if !personaID.Valid() {
		return Response{Kind: KindPrompt, Persona: req.Persona, Error: fmt.Sprintf("unknown persona %q", req.Persona)}
	}

	record, err := s.dispatcher.Dispatch(ctx, personaID, req.Prompt)
	if err != nil {
		return Response{Kind: KindPrompt, Persona: req.Persona, Error: err.Error()}
	}

	return Response{
		OK:          true,
		Kind:        KindPrompt,
		Persona:     string(record.PersonaID),
		RequestID:   record.RequestID,
		Output:      record.Text,
		CompletedAt: record.CompletedAt,
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	payload = append(payload, '\n')
	_, _ = conn.Write(payload)
}
