package audit

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

const (
	reconnectBackoffInit = 100 * time.Millisecond
	reconnectBackoffMax  = 30 * time.Second
)

// SyslogWriter writes cross-realm decisions to the local syslog daemon as
// RFC 5424 messages with structured data. It implements
// xrealm.DecisionLogger.
//
// On write failure the writer attempts to reconnect to the syslog socket
// with exponential backoff (100ms initial, 30s cap). This handles transient
// syslog restarts without tight-looping.
type SyslogWriter struct {
	conn       net.Conn
	hostname   string
	appName    string
	facility   Facility
	socketPath string

	mu              sync.Mutex
	backoff         time.Duration
	lastReconnectAt time.Time
}

// SyslogConfig holds configuration for the syslog writer.
type SyslogConfig struct {
	SocketPath string   // Default: "/dev/log"
	Hostname   string   // Default: os.Hostname()
	AppName    string   // Default: "xrealmd"
	Facility   Facility // Default: FacAuthpriv
}

// NewSyslogWriter creates a SyslogWriter connected to the local syslog
// daemon. Returns an error if the syslog socket is unavailable. Callers
// should degrade gracefully on error (slog plus SQLite audit is acceptable).
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/dev/log"
	}
	if cfg.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			cfg.Hostname = "unknown"
		} else {
			cfg.Hostname = h
		}
	}
	if cfg.AppName == "" {
		cfg.AppName = "xrealmd"
	}
	if cfg.Facility == 0 {
		cfg.Facility = FacAuthpriv
	}

	conn, err := dialSyslog(cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("syslog connect: %w", err)
	}

	return &SyslogWriter{
		conn:       conn,
		hostname:   cfg.Hostname,
		appName:    cfg.AppName,
		facility:   cfg.Facility,
		socketPath: cfg.SocketPath,
	}, nil
}

// LogDecision converts a decision entry to an RFC 5424 message and writes
// it to the syslog socket. Implements xrealm.DecisionLogger.
// Safe to call on a nil receiver (returns nil).
func (w *SyslogWriter) LogDecision(_ context.Context, entry xrealm.DecisionEntry) error {
	if w == nil {
		return nil
	}
	eventType, severity := SeverityFor(entry.Outcome)

	params := []SDParam{
		{Name: "client", Value: entry.Client},
		{Name: "origin_realm", Value: entry.OriginRealm},
		{Name: "service", Value: entry.Service},
		{Name: "edge", Value: entry.Edge},
		{Name: "outcome", Value: entry.Outcome},
		{Name: "reason", Value: entry.Reason},
	}
	if entry.RequestID != "" {
		params = append(params, SDParam{Name: "request_id", Value: entry.RequestID})
	}
	if entry.Rule != "" {
		params = append(params, SDParam{Name: "rule", Value: entry.Rule})
	}
	if entry.DurationUS > 0 {
		params = append(params, SDParam{Name: "latency_us", Value: strconv.FormatInt(entry.DurationUS, 10)})
	}

	msg := Message{
		Facility:  w.facility,
		Severity:  severity,
		Timestamp: entry.Timestamp,
		Hostname:  w.hostname,
		AppName:   w.appName,
		MessageID: string(eventType),
		SD: []SDElement{{
			ID:     "xrealm",
			Params: params,
		}},
		Text: messageText(entry),
	}

	return w.writeOrReconnect(FormatMessage(msg))
}

// messageText renders the human-readable body. Monitoring-mode non-matches
// carry the exact "would deny" phrase that operator tooling greps for.
func messageText(entry xrealm.DecisionEntry) string {
	switch entry.Outcome {
	case "deny":
		return fmt.Sprintf("denied %s for %s", entry.Client, entry.Service)
	case "allow_logged":
		return fmt.Sprintf("would deny %s for %s", entry.Client, entry.Service)
	default:
		return fmt.Sprintf("allowed %s for %s", entry.Client, entry.Service)
	}
}

// writeOrReconnect writes data to the syslog socket. On failure it attempts
// one reconnect (subject to backoff) and retries the write.
func (w *SyslogWriter) writeOrReconnect(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.conn.Write(data)
	if err == nil {
		w.backoff = 0
		return nil
	}

	// Write failed. Attempt reconnect (backoff-gated).
	if reconnErr := w.reconnectLocked(); reconnErr != nil {
		return fmt.Errorf("syslog write failed (%v), reconnect failed: %w", err, reconnErr)
	}

	// Retry on the fresh connection.
	_, err = w.conn.Write(data)
	if err == nil {
		w.backoff = 0
	}
	return err
}

// reconnectLocked closes the dead connection and dials a new one.
// Must be called with w.mu held. Respects exponential backoff to avoid
// tight reconnect loops during sustained syslog outages.
func (w *SyslogWriter) reconnectLocked() error {
	if w.backoff > 0 && time.Since(w.lastReconnectAt) < w.backoff {
		return fmt.Errorf("syslog reconnect backoff: retry in %v", w.backoff-time.Since(w.lastReconnectAt))
	}

	w.conn.Close()

	conn, err := dialSyslog(w.socketPath)
	if err != nil {
		w.lastReconnectAt = time.Now()
		if w.backoff == 0 {
			w.backoff = reconnectBackoffInit
		} else {
			w.backoff *= 2
			if w.backoff > reconnectBackoffMax {
				w.backoff = reconnectBackoffMax
			}
		}
		return fmt.Errorf("syslog reconnect: %w", err)
	}

	w.conn = conn
	w.backoff = 0
	w.lastReconnectAt = time.Time{}
	return nil
}

// Close closes the syslog socket connection.
// Safe to call on a nil receiver (returns nil).
func (w *SyslogWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Close()
}

// dialSyslog connects to the local syslog daemon. Tries unixgram (datagram)
// first, falls back to unix (stream) for compatibility with different syslog
// implementations.
func dialSyslog(socketPath string) (net.Conn, error) {
	conn, err := net.Dial("unixgram", socketPath)
	if err == nil {
		return conn, nil
	}
	return net.Dial("unix", socketPath)
}
