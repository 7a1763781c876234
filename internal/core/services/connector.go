package services

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/btps-org/btps-core/internal/adapters/secondary/codec"
	"github.com/btps-org/btps-core/internal/adapters/secondary/dns"
	"github.com/btps-org/btps-core/internal/core/domain"
	"github.com/btps-org/btps-core/internal/core/ports"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// State is one node of the connector's lifecycle state machine (spec
// §4.8).
type State int

const (
	StateIdle State = iota
	StateResolving
	StateConnecting
	StateReady
	StateSending
	StateAwaitingResponse
	StateClosing
	StateClosed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Config carries everything a Connector needs to dial, sign, and
// encrypt on behalf of one local identity (spec §6 "Connector
// configuration").
type Config struct {
	Identity   *domain.Identity
	Selector   string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey

	// Host, when non-empty, overrides DNS resolution; Port is used only
	// together with Host (0 selects dns.DefaultPort).
	Host string
	Port int

	MaxRetries          int
	RetryDelayMs        int
	ConnectionTimeoutMs int
	MaxLineBytes        int

	TLS                *tls.Config
	AllowSelfSigned    bool

	Encryption domain.EncryptionMode
	Passphrase []byte
}

// Connector is the TLS-dialing, DNS-resolving, retrying,
// backpressure-aware client connector (spec §4.8). All state
// transitions happen on a single owning goroutine reached through a
// command mailbox, so no caller ever touches connector state from
// another goroutine concurrently with an internal mutation — the Go
// realization of the single-threaded cooperative model of spec §5.
type Connector struct {
	cfg      Config
	resolver ports.Resolver
	codec    *codec.Codec
	metrics  ports.MetricsReporter
	logger   ports.Logger

	retry   *RetryPolicy
	queue   *BackpressureQueue
	emitter *Emitter

	mailbox chan func()
	done    chan struct{}

	conn  net.Conn
	state State
}

// NewConnector builds a Connector with a DNS resolver and codec
// derived from it, matching the teacher's pattern of wiring a service
// from its own default adapters when the caller doesn't inject one.
func NewConnector(cfg Config, metrics ports.MetricsReporter, logger ports.Logger) *Connector {
	resolver := dns.New()
	return &Connector{
		cfg:      cfg,
		resolver: resolver,
		codec:    codec.New(resolver),
		metrics:  metrics,
		logger:   logger,
		retry:    NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelayMs),
		queue:    NewBackpressureQueue(),
		emitter:  NewEmitter(),
		mailbox:  make(chan func(), 16),
		done:     make(chan struct{}),
		state:    StateIdle,
	}
}

// Events returns a subscription to the connector's event stream (spec
// §4.8 "Observable events").
func (c *Connector) Events(buf int) (<-chan Event, func()) {
	return c.emitter.Subscribe(buf)
}

// State returns the connector's current state.
func (c *Connector) State() State {
	reply := make(chan State, 1)
	c.mailbox <- func() { reply <- c.state }
	return <-reply
}

// run is the connector's single owning goroutine; it must be started
// once, before any exported method is called. It keeps serving the
// mailbox after Destroy, so calls made after Destroy still get a reply.
func (c *Connector) run() {
	for {
		select {
		case fn := <-c.mailbox:
			fn()
		case <-c.done:
			return
		}
	}
}

// Start launches the connector's owning goroutine. Safe to call once.
func (c *Connector) Start() {
	go c.run()
}

// Connect dials recipient, per the state machine of spec §4.8:
// Idle → Resolving → Connecting → Ready. A no-op returning nil if the
// connector has been destroyed.
func (c *Connector) Connect(ctx context.Context, recipient string) error {
	reply := make(chan error, 1)
	c.mailbox <- func() { reply <- c.connectLocked(ctx, recipient) }
	return <-reply
}

// connectLocked retries the connect pipeline (identity parse → DNS →
// TLS dial, see attemptConnectLocked); a failed Send is not retried
// here or anywhere else. It emits an Error event with retry guidance after every failed
// attempt until the retry policy says to stop.
func (c *Connector) connectLocked(ctx context.Context, recipient string) error {
	if c.state == StateDestroyed {
		return nil
	}

	for {
		err := c.attemptConnectLocked(ctx, recipient)
		if err == nil {
			return nil
		}

		info := c.retry.GetRetryInfo(err)
		if c.metrics != nil {
			c.metrics.RecordRetryAttempt(btpserrors.RetryReason(err))
		}
		c.emitter.Emit(EventError{Err: err, Info: info})
		if !info.WillRetry {
			return err
		}
		c.retry.RecordAttempt()
		time.Sleep(time.Duration(info.NextDelayMs) * time.Millisecond)
	}
}

// attemptConnectLocked makes a single pass through the connect
// pipeline: parse identity → resolve host → TLS dial.
func (c *Connector) attemptConnectLocked(ctx context.Context, recipient string) error {
	to, err := domain.ParseIdentity(recipient)
	if err != nil {
		return err
	}

	c.state = StateResolving
	host, port := c.cfg.Host, c.cfg.Port
	if host == "" {
		rec, err := c.resolver.ResolveHost(ctx, to.Domain())
		if err != nil {
			return err
		}
		addr, err := dns.ParseAddress(rec.Host)
		if err != nil {
			return err
		}
		host, port = addr.Host, addr.Port
	}
	if port == 0 {
		port = dns.DefaultPort
	}

	c.state = StateConnecting
	dialCtx := ctx
	if c.cfg.ConnectionTimeoutMs > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.ConnectionTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	tlsCfg := c.cfg.TLS
	if tlsCfg == nil {
		tlsCfg = &tls.Config{}
	}
	tlsCfg = tlsCfg.Clone()
	if c.cfg.AllowSelfSigned {
		tlsCfg.InsecureSkipVerify = true
	}

	dialer := &tls.Dialer{Config: tlsCfg}
	conn, err := dialer.DialContext(dialCtx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("connect: dial timeout: %w", btpserrors.ErrConnectionTimeout)
		}
		return btpserrors.NewSocketError("dial", err)
	}

	c.conn = conn
	c.state = StateReady
	c.retry.Reset()
	c.emitter.Emit(EventConnected{})
	go c.readLoop(ctx, conn)
	return nil
}

// Send signs (and optionally encrypts) artifact, then enqueues its
// wire line, attempting to drain immediately (spec §4.8 "send").
func (c *Connector) Send(ctx context.Context, env *domain.ArtifactEnvelope) error {
	reply := make(chan error, 1)
	c.mailbox <- func() { reply <- c.sendLocked(ctx, env) }
	return <-reply
}

func (c *Connector) sendLocked(ctx context.Context, env *domain.ArtifactEnvelope) error {
	if c.state != StateReady && c.state != StateAwaitingResponse {
		err := fmt.Errorf("send: connector not ready (state=%s)", c.state)
		c.emitError(err)
		return err
	}
	c.state = StateSending

	signed, err := c.codec.SignEncrypt(ctx, env, codec.SignerConfig{
		Identity:   c.cfg.Identity,
		Selector:   c.cfg.Selector,
		PrivateKey: c.cfg.PrivateKey,
		PublicKey:  c.cfg.PublicKey,
		Encryption: c.cfg.Encryption,
		Passphrase: c.cfg.Passphrase,
	})
	if err != nil {
		c.state = StateReady
		c.emitError(err)
		if c.metrics != nil {
			c.metrics.RecordSend(string(env.Type), false)
		}
		return err
	}

	line, err := codec.EncodeLine(signed)
	if err != nil {
		c.state = StateReady
		c.emitError(err)
		return err
	}

	var werr error
	c.queue.Enqueue(line)
	c.queue.Drain(func(l []byte) bool {
		_, werr = c.conn.Write(l)
		return werr == nil
	})
	if werr != nil {
		c.state = StateReady
		err := btpserrors.NewSocketError("write", werr)
		c.emitError(err)
		if c.metrics != nil {
			c.metrics.RecordSend(string(env.Type), false)
		}
		return err
	}

	c.state = StateAwaitingResponse
	if c.metrics != nil {
		c.metrics.RecordSend(string(env.Type), true)
	}
	c.emitter.Emit(EventMessageSent{ID: env.ID})
	return nil
}

// readLoop parses inbound lines, verifies/decrypts, and emits Message
// or Error events; it runs outside the mailbox because it only
// produces events, it never mutates shared state directly (state
// transitions it needs, e.g. on EOF, are posted back through the
// mailbox).
func (c *Connector) readLoop(ctx context.Context, conn net.Conn) {
	reader := codec.NewLineReader(conn, c.cfg.MaxLineBytes)
	for {
		env, err := reader.Next()
		if err != nil {
			c.mailbox <- func() { c.handleReadEndLocked(err) }
			return
		}
		if verr := env.Validate(); verr != nil {
			c.emitError(verr)
			continue
		}
		if verr := c.verifyDecryptAndValidate(ctx, env); verr != nil {
			c.emitError(verr)
			continue
		}
		c.emitter.Emit(EventMessage{Envelope: env})
	}
}

// verifyDecryptAndValidate runs the inbound half of spec §4.3/§4.8's
// pipeline: verify the signature (and decrypt, if the envelope carries
// Encryption metadata), then schema-validate the recovered document,
// replacing env.Document with the typed, validated value in place.
// Nothing is ever delivered to a subscriber before all three steps
// succeed.
func (c *Connector) verifyDecryptAndValidate(ctx context.Context, env *domain.ArtifactEnvelope) error {
	plaintext, err := c.codec.VerifyDecrypt(ctx, env, codec.VerifierConfig{
		PrivateKey: c.cfg.PrivateKey,
		Passphrase: c.cfg.Passphrase,
	})
	if err != nil {
		return err
	}

	doc, err := domain.NewDocument(env.Type)
	if err != nil {
		return fmt.Errorf("connector: %w: %w", btpserrors.ErrSchemaValidation, err)
	}
	if err := json.Unmarshal(plaintext, doc); err != nil {
		return fmt.Errorf("connector: decoding document: %w: %w", btpserrors.ErrSchemaValidation, err)
	}
	if err := domain.DecodeDocument(env.Type, doc); err != nil {
		return err
	}

	env.Document = doc
	return nil
}

func (c *Connector) handleReadEndLocked(err error) {
	if c.state == StateDestroyed || c.state == StateClosed {
		return
	}
	c.state = StateClosed
	if errors.Is(err, btpserrors.ErrSyntax) {
		c.emitter.Emit(EventError{Err: err, Info: domain.RetryInfo{WillRetry: false}})
		return
	}
	info := c.retry.GetRetryInfo(err)
	c.emitter.Emit(EventEnd{Info: info})
}

// End gracefully closes the connection: flushes the queue, then
// closes the socket (spec §4.8, §5 "end() is a graceful variant that
// flushes the queue first").
func (c *Connector) End() error {
	reply := make(chan error, 1)
	c.mailbox <- func() { reply <- c.endLocked() }
	return <-reply
}

func (c *Connector) endLocked() error {
	if c.state == StateDestroyed || c.state == StateClosed {
		return nil
	}
	c.state = StateClosing
	if c.conn != nil {
		c.queue.Drain(func(l []byte) bool {
			_, werr := c.conn.Write(l)
			return werr == nil
		})
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.state = StateClosed
	c.emitter.Emit(EventEnd{Info: domain.RetryInfo{}})
	return err
}

// Destroy tears down the socket, clears the queue, and removes all
// subscribers (spec §4.8 "destroy()"). Idempotent.
func (c *Connector) Destroy() {
	reply := make(chan struct{}, 1)
	c.mailbox <- func() {
		c.destroyLocked()
		reply <- struct{}{}
	}
	<-reply
}

func (c *Connector) destroyLocked() {
	if c.state == StateDestroyed {
		return
	}
	c.retry.Destroyed = true
	c.queue.Discard()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.state = StateDestroyed
	c.emitter.Emit(EventClose{})
	c.emitter.Close()
}

func (c *Connector) emitError(err error) {
	info := c.retry.GetRetryInfo(err)
	if c.metrics != nil {
		c.metrics.RecordRetryAttempt(btpserrors.RetryReason(err))
	}
	c.emitter.Emit(EventError{Err: err, Info: info})
}
