package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	residentHost = "127.0.0.1"

	pingRequest      = "PING\n"
	pongResponse     = "PONG\n"
	stdoutRequest    = "STDOUT\n"
	clipboardRequest = "CLIPBOARD\n"
	successStatus    = "SUCCESS\n"
	errorStatus      = "ERROR\n"

	handshakeTimeout = 3 * time.Second
)

var ErrServerClosed = errors.New("singleinstance: server closed")

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	start, end int

	mu       sync.Mutex
	lis      net.Listener
	port     int
	incoming chan *tcpConn
	closed   chan struct{}
	once     sync.Once
}

func newTCPServer(start, end int) *tcpServer {
	return &tcpServer{
		start:    start,
		end:      end,
		incoming: make(chan *tcpConn, 8),
		closed:   make(chan struct{}),
	}
}

// Start binds ONLY the start port of the configured range. If occupied, fail:
// another resident already owns it.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(s.start))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	s.lis = lis
	s.port = s.start
	log.Printf("singleinstance: listening on %s", addr)
	go s.acceptLoop(ctx, lis)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.closed:
		}
	}()
	return nil
}

func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		tc, ok := s.handshake(c)
		if !ok {
			continue
		}
		select {
		case s.incoming <- tc:
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-s.closed:
			_ = c.Close()
			return
		}
	}
}

// handshake answers PING directly and parses run-once requests.
func (s *tcpServer) handshake(c net.Conn) (*tcpConn, bool) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(handshakeTimeout))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		return nil, false
	}
	switch line {
	case pingRequest:
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	case stdoutRequest, clipboardRequest:
		_ = c.SetDeadline(time.Time{})
		req := Request{OutputToStdout: line == stdoutRequest}
		log.Printf("singleinstance: request from %s stdout=%v", remote, req.OutputToStdout)
		return &tcpConn{c: c, r: req, w: bw}, true
	default:
		log.Printf("singleinstance: unknown request %q from %s", line, remote)
		_, _ = bw.WriteString(errorStatus + "unknown request")
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, ErrServerClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		if s.lis != nil {
			_ = s.lis.Close()
		}
		s.mu.Unlock()
	})
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess(text string) error {
	if _, err := tc.w.WriteString(successStatus + text); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorStatus + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }

type tcpClient struct {
	start, end int
}

func newTCPClient(start, end int) *tcpClient { return &tcpClient{start: start, end: end} }

// DetectResidentPort scans the port range and returns (port, true) if a resident responds to PING.
func DetectResidentPort(ctx context.Context) (int, bool) {
	start, end := getPortRange()
	return detect(ctx, start, end, 300*time.Millisecond)
}

func detect(ctx context.Context, start, end int, timeout time.Duration) (int, bool) {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if ping(net.JoinHostPort(residentHost, strconv.Itoa(port)), timeout) {
			return port, true
		}
	}
	return 0, false
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

// TryRunOnce waits for the resident's answer until ctx is done; the
// resident applies its own run deadline.
func (c *tcpClient) TryRunOnce(ctx context.Context, outputToStdout bool) (bool, string, error) {
	port, ok := detect(ctx, c.start, c.end, 300*time.Millisecond)
	if !ok {
		return false, "", nil
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, "", nil
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	req := clipboardRequest
	if outputToStdout {
		req = stdoutRequest
	}
	if _, err := io.WriteString(conn, req); err != nil {
		return true, "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, "", fmt.Errorf("read status: %w", err)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return true, "", fmt.Errorf("read body: %w", err)
	}
	switch status {
	case successStatus:
		return true, string(body), nil
	case errorStatus:
		return true, "", errors.New(string(body))
	default:
		return true, "", fmt.Errorf("unexpected status %q", status)
	}
}
