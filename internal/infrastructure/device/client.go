package device

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/netbill/backend/internal/domain/provisioning"
	"go.uber.org/zap"
)

// Gateway opens connections to remote configuration devices. Connections are
// opened per orchestrator invocation and never shared between concurrent
// units of work.
type Gateway interface {
	Connect(ctx context.Context, router *provisioning.Router) (Conn, error)
}

// Conn is a live session against one device
type Conn interface {
	Execute(ctx context.Context, cmd Command) (*Reply, error)
	Close() error
}

// Dialer abstracts the transport so tests can supply a scripted connection
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ClientConfig holds device client settings
type ClientConfig struct {
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

// DefaultClientConfig returns default client settings
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:    10 * time.Second,
		CommandTimeout: 15 * time.Second,
	}
}

// Client implements Gateway over the device's word/sentence API protocol
type Client struct {
	config ClientConfig
	dialer Dialer
	logger *zap.Logger
}

// NewClient creates a device gateway client
func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		dialer: &net.Dialer{Timeout: config.DialTimeout},
		logger: logger.Named("device"),
	}
}

// NewClientWithDialer creates a client with a custom dialer (tests)
func NewClientWithDialer(config ClientConfig, dialer Dialer, logger *zap.Logger) *Client {
	return &Client{config: config, dialer: dialer, logger: logger.Named("device")}
}

// Connect dials the router and authenticates. Every failure on this path is a
// ConnectError and thus transient-retryable.
func (c *Client) Connect(ctx context.Context, router *provisioning.Router) (Conn, error) {
	netConn, err := c.dialer.DialContext(ctx, "tcp", router.Address)
	if err != nil {
		return nil, &ConnectError{Address: router.Address, Err: err}
	}

	conn := &apiConn{
		conn:    netConn,
		reader:  bufio.NewReader(netConn),
		timeout: c.config.CommandTimeout,
		logger:  c.logger.With(zap.String("router", router.Name)),
	}

	if err := conn.login(ctx, router.Username, router.Password); err != nil {
		_ = netConn.Close()
		return nil, &ConnectError{Address: router.Address, Err: err}
	}
	return conn, nil
}

type apiConn struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	logger  *zap.Logger
}

// login performs post-6.43 plain credential login
func (c *apiConn) login(ctx context.Context, username, password string) error {
	_, err := c.roundTrip(ctx, []string{
		"/login",
		"=name=" + username,
		"=password=" + password,
	})
	return err
}

// Execute sends one command and decodes the reply. A deadline derived from
// the command timeout bounds the whole exchange.
func (c *apiConn) Execute(ctx context.Context, cmd Command) (*Reply, error) {
	words := make([]string, 0, 1+len(cmd.Params)+len(cmd.Query))
	words = append(words, strings.TrimSuffix(cmd.Path, "/")+"/"+string(cmd.Verb))
	for key, value := range cmd.Params {
		words = append(words, "="+key+"="+value)
	}
	for key, value := range cmd.Query {
		words = append(words, "?"+key+"="+value)
	}

	c.logger.Debug("executing device command",
		zap.String("verb", string(cmd.Verb)),
		zap.String("path", cmd.Path),
	)
	return c.roundTrip(ctx, words)
}

// roundTrip writes one sentence and reads reply sentences until !done or !trap
func (c *apiConn) roundTrip(ctx context.Context, words []string) (*Reply, error) {
	command := words[0]

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, classifyTransport(command, err)
	}

	if err := writeSentence(c.conn, words); err != nil {
		return nil, classifyTransport(command, err)
	}

	reply := &Reply{}
	for {
		sentence, err := readSentence(c.reader)
		if err != nil {
			return nil, classifyTransport(command, err)
		}
		if len(sentence) == 0 {
			continue
		}

		switch sentence[0] {
		case "!re":
			reply.Rows = append(reply.Rows, parseAttributes(sentence[1:]))
		case "!done":
			attrs := parseAttributes(sentence[1:])
			if ret, ok := attrs["ret"]; ok {
				reply.ID = ret
			}
			return reply, nil
		case "!trap", "!fatal":
			attrs := parseAttributes(sentence[1:])
			return nil, classifyTrap(command, attrs["message"])
		default:
			return nil, fmt.Errorf("unexpected reply word %q", sentence[0])
		}
	}
}

// Close releases the connection
func (c *apiConn) Close() error {
	return c.conn.Close()
}

// parseAttributes decodes "=key=value" words into a map
func parseAttributes(words []string) map[string]string {
	attrs := make(map[string]string, len(words))
	for _, word := range words {
		if !strings.HasPrefix(word, "=") {
			continue
		}
		parts := strings.SplitN(word[1:], "=", 2)
		if len(parts) == 2 {
			attrs[parts[0]] = parts[1]
		}
	}
	return attrs
}
