package givmodbus

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConnectTimeout = 2 * time.Second
	defaultInterFrameGap  = 250 * time.Millisecond
	txQueueCapacity       = 20
	readChunkSize         = 300
	heartbeatGrace        = 5 * time.Second
	// defaultSlaveAddress is the address the client assumes before
	// DetectPlant narrows it to 0x11 (EMS/gateway/all-in-one) or 0x31
	// (split-phase hybrid), matching the original implementation's
	// pre-detection default.
	defaultSlaveAddress byte = 0x31
)

// ExecuteResult pairs one Execute request with its outcome.
type ExecuteResult struct {
	Request  *TransparentMessage
	Response *TransparentMessage
	Err      error
}

type txItem struct {
	payload  []byte
	sendDone chan error
}

type correlation struct {
	ch chan *TransparentMessage
}

// Client maintains one long-lived TCP connection to a GivEnergy
// transparent-Modbus dongle and correlates asynchronous responses back
// to their requests via shape hash. Grounded on the original
// implementation's asyncio Client, translated to goroutines, channels,
// and context.Context.
type Client struct {
	Host             string
	Port             int
	ConnectTimeout   time.Duration
	InterFramePacing time.Duration
	Logger           *zap.Logger

	SlaveAddress byte
	Plant        *Plant

	conn   net.Conn
	framer *StreamFramer

	txQueue chan txItem

	mu           sync.Mutex
	correlations map[int64]*correlation
	closed       bool
	closeCh      chan struct{}
	wg           sync.WaitGroup
}

// NewClient returns an unconnected Client for host:port.
func NewClient(host string, port int) *Client {
	return &Client{
		Host:             host,
		Port:             port,
		ConnectTimeout:   defaultConnectTimeout,
		InterFramePacing: defaultInterFrameGap,
		Logger:           zap.NewNop(),
		SlaveAddress:     defaultSlaveAddress,
		Plant:            NewPlant(defaultSlaveAddress),
		framer:           NewStreamFramer(),
		txQueue:          make(chan txItem, txQueueCapacity),
		correlations:     make(map[int64]*correlation),
		closeCh:          make(chan struct{}),
	}
}

// Connect dials the device and starts the producer/consumer goroutines.
func (c *Client) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", c.Host, c.Port))
	if err != nil {
		return fmt.Errorf("givmodbus: connect: %w", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	c.conn = conn

	c.wg.Add(2)
	go c.producerLoop()
	go c.consumerLoop()
	return nil
}

// Close tears down the connection and stops both background loops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closeCh)
	c.mu.Unlock()

	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	close(c.txQueue)
	c.wg.Wait()
	return err
}

// producerLoop drains the tx queue, writing and flushing each frame, then
// pacing a fixed inter-frame gap - the device drops frames sent too close
// together.
func (c *Client) producerLoop() {
	defer c.wg.Done()
	for item := range c.txQueue {
		_, err := c.conn.Write(item.payload)
		if item.sendDone != nil {
			item.sendDone <- err
		}
		if err != nil {
			c.Logger.Warn("givmodbus: write failed", zap.Error(err))
		}
		time.Sleep(c.InterFramePacing)
	}
}

// consumerLoop reads raw bytes, feeds the framer, and dispatches each
// decoded message: heartbeats get an automatic reply, transparent
// responses update the plant cache and complete any pending correlation.
func (c *Client) consumerLoop() {
	defer c.wg.Done()
	buf := make([]byte, readChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.framer.Feed(buf[:n])
			c.drainFrames()
		}
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				c.Logger.Warn("givmodbus: read failed", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) drainFrames() {
	for {
		frame, ok, err := c.framer.Next()
		if !ok {
			return
		}
		if err != nil {
			c.Logger.Warn("givmodbus: framer error, resyncing", zap.Error(err))
			continue
		}
		pdu, err := DecodeFrame(frame)
		if err != nil {
			c.Logger.Warn("givmodbus: decode error, dropping frame", zap.Error(err))
			continue
		}
		c.dispatch(pdu)
	}
}

func (c *Client) dispatch(pdu PDU) {
	switch m := pdu.(type) {
	case *HeartbeatMessage:
		if m.IsResponse() {
			c.Logger.Warn("givmodbus: unexpected heartbeat response")
			return
		}
		c.Logger.Debug("givmodbus: heartbeat, auto-replying")
		c.enqueueHeartbeatReply(m)
	case *TransparentMessage:
		c.Plant.Update(m)
		if m.Error {
			c.Logger.Warn("givmodbus: response carries error flag", zap.Stringer("pdu", m))
		}
		c.completeCorrelation(m)
	default:
		c.Logger.Warn("givmodbus: dropping unrecognised response")
	}
}

func (c *Client) enqueueHeartbeatReply(req *HeartbeatMessage) {
	reply := req.ExpectedResponse()
	payload, err := reply.Encode()
	if err != nil {
		c.Logger.Warn("givmodbus: encoding heartbeat reply", zap.Error(err))
		return
	}
	select {
	case c.txQueue <- txItem{payload: payload}:
	case <-time.After(heartbeatGrace):
		c.Logger.Warn("givmodbus: tx queue full, dropped heartbeat reply")
	}
}

func (c *Client) completeCorrelation(m *TransparentMessage) {
	shape := m.ShapeHash()
	c.mu.Lock()
	corr, ok := c.correlations[shape]
	if ok {
		delete(c.correlations, shape)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case corr.ch <- m:
	default:
	}
}

// SendRequestAndAwaitResponse enqueues req, waits for a correlated
// response (matched by shape hash), and retries up to retries additional
// times on timeout or an error-flagged response. It returns ErrTimeout
// once all attempts are exhausted.
func (c *Client) SendRequestAndAwaitResponse(ctx context.Context, req *TransparentMessage, timeout time.Duration, retries int) (*TransparentMessage, error) {
	shape := req.ShapeHash()

	for attempt := 0; attempt <= retries; attempt++ {
		corr := &correlation{ch: make(chan *TransparentMessage, 1)}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		c.correlations[shape] = corr
		c.mu.Unlock()

		payload, err := req.Encode()
		if err != nil {
			return nil, err
		}

		sendDone := make(chan error, 1)
		guard := time.Duration(len(c.txQueue)+1) * time.Second

		select {
		case c.txQueue <- txItem{payload: payload, sendDone: sendDone}:
		case <-time.After(guard):
			c.Logger.Warn("givmodbus: producer stuck, tx queue full")
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		select {
		case err := <-sendDone:
			if err != nil {
				c.Logger.Warn("givmodbus: send failed", zap.Error(err))
				continue
			}
		case <-time.After(guard):
			c.Logger.Warn("givmodbus: send did not complete in time")
			continue
		}

		select {
		case resp := <-corr.ch:
			if resp.Error {
				c.Logger.Warn("givmodbus: device returned error, retrying", zap.Stringer("pdu", resp))
				continue
			}
			return resp, nil
		case <-time.After(timeout):
			c.Logger.Debug("givmodbus: request timed out, retrying", zap.Int("attempt", attempt))
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, ErrTimeout
}

// Execute fans out one goroutine per request and waits for all of them.
// Completion order is not guaranteed. With returnExceptions=false, the
// first request error is returned (siblings still run to completion: no
// cancellation is propagated, since a slow sibling succeeding is not
// itself a failure). With returnExceptions=true, every result is
// returned regardless of error and the aggregate error is always nil.
func (c *Client) Execute(ctx context.Context, reqs []*TransparentMessage, timeout time.Duration, retries int, returnExceptions bool) ([]ExecuteResult, error) {
	batchID := uuid.New()
	logger := c.Logger.With(zap.String("batch", batchID.String()), zap.Int("requests", len(reqs)))
	logger.Debug("givmodbus: executing batch")

	results := make([]ExecuteResult, len(reqs))
	g, _ := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := c.SendRequestAndAwaitResponse(ctx, req, timeout, retries)
			results[i] = ExecuteResult{Request: req, Response: resp, Err: err}
			if returnExceptions {
				return nil
			}
			return err
		})
	}
	err := g.Wait()
	logger.Debug("givmodbus: batch complete", zap.Error(err))
	return results, err
}

// RefreshPlant issues RefreshPlantData's read sequence and folds every
// response into c.Plant.
func (c *Client) RefreshPlant(ctx context.Context, complete bool, maxBatteries int, timeout time.Duration, retries int) error {
	cmds := NewCommands(c.SlaveAddress, nil)
	reqs := cmds.RefreshPlantData(complete, c.Plant.NumberBatteries, maxBatteries)
	results, err := c.Execute(ctx, reqs, timeout, retries, true)
	if err != nil {
		return err
	}
	var firstErr error
	for _, r := range results {
		if r.Err != nil && firstErr == nil {
			firstErr = r.Err
		}
	}
	return firstErr
}
