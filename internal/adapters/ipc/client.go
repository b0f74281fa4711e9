package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// Client talks to a running broker over its unix socket. Short-lived CLI
// invocations use it as their dispatcher so all prompts funnel through the
// broker's single queue.
type Client struct {
	socketPath string
}

var _ ports.Dispatcher = (*Client)(nil)

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Dispatch blocks until the broker has run the prompt to completion.
func (c *Client) Dispatch(ctx context.Context, id domain.PersonaID, prompt string) (domain.ResponseRecord, error) {
	resp, err := c.roundTrip(ctx, Request{Kind: KindPrompt, Persona: string(id), Prompt: prompt})
	if err != nil {
		return domain.ResponseRecord{}, err
	}
	if !resp.OK {
		return domain.ResponseRecord{}, fmt.Errorf("%w: %s", domain.ErrBackendDispatch, resp.Error)
	}

	return domain.ResponseRecord{
		PersonaID:   domain.PersonaID(resp.Persona),
		RequestID:   resp.RequestID,
		Text:        resp.Output,
		CompletedAt: resp.CompletedAt,
	}, nil
}

// Ping reports whether a broker is listening and responsive.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, Request{Kind: KindPing})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("broker ping rejected: %s", resp.Error)
	}
	return nil
}

// Info returns the broker's pid and current queue depth.
func (c *Client) Info(ctx context.Context) (Response, error) {
	resp, err := c.roundTrip(ctx, Request{Kind: KindInfo})
	if err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return Response{}, fmt.Errorf("broker info rejected: %s", resp.Error)
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (Response, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("dial broker socket: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode broker request: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := conn.Write(payload); err != nil {
		return Response{}, fmt.Errorf("send broker request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if scanErr := scanner.Err(); scanErr != nil {
			return Response{}, fmt.Errorf("read broker response: %w", scanErr)
		}
		return Response{}, errors.New("broker closed connection without responding")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("decode broker response: %w", err)
	}
	return resp, nil
}
