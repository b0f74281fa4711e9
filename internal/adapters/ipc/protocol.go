package ipc

import "time"

// The broker speaks newline-delimited JSON over its unix socket: one
// request line in, one response line out, then the connection closes.

const (
	KindPing   = "ping"
	KindInfo   = "info"
	KindPrompt = "prompt"
)

type Request struct {
	Kind    string `json:"kind"`
	Persona string `json:"persona,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

type Response struct {
	OK          bool      `json:"ok"`
	Kind        string    `json:"kind"`
	Error       string    `json:"error,omitempty"`
	Persona     string    `json:"persona,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
	Output      string    `json:"output,omitempty"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	PID         int       `json:"pid,omitempty"`
	QueueDepth  int       `json:"queueDepth,omitempty"`
}
