package givmodbus

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSimulator(t *testing.T, sim *Simulator) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = sim.Serve(conn)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	_, portStr, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	p, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return "127.0.0.1", p
}

func TestClient_SendRequestAndAwaitResponse_ReadHolding(t *testing.T) {
	sim := NewSimulator(0x32, "SIMSERIAL01")
	sim.Seed(map[Register]uint16{HR(0): 0x2013, HR(1): 7})
	host, port := startSimulator(t, sim)

	c := NewClient(host, port)
	c.InterFramePacing = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	req := NewReadHoldingRegistersRequest(0x32, 0, 2)
	resp, err := c.SendRequestAndAwaitResponse(ctx, req, time.Second, 1)
	require.NoError(t, err)
	require.Len(t, resp.RegisterValues, 2)
	require.Equal(t, uint16(0x2013), resp.RegisterValues[0])
	require.Equal(t, uint16(7), resp.RegisterValues[1])
}

func TestClient_WriteHoldingUpdatesPlant(t *testing.T) {
	sim := NewSimulator(0x32, "SIMSERIAL01")
	host, port := startSimulator(t, sim)

	c := NewClient(host, port)
	c.InterFramePacing = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	req := NewWriteHoldingRegisterRequest(0x32, 96, 1)
	_, err := c.SendRequestAndAwaitResponse(ctx, req, time.Second, 1)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	v, ok := c.Plant.RegisterCaches[0x32].Get(HR(96))
	require.True(t, ok)
	require.Equal(t, uint16(1), v)
}

func TestClient_SendRequestAndAwaitResponse_RetriesOnErrorFlag(t *testing.T) {
	sim := NewSimulator(0x32, "SIMSERIAL01")
	sim.Seed(map[Register]uint16{HR(0): 0x2013})
	sim.FailNextReads(2)
	host, port := startSimulator(t, sim)

	c := NewClient(host, port)
	c.InterFramePacing = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	req := NewReadHoldingRegistersRequest(0x32, 0, 1)
	resp, err := c.SendRequestAndAwaitResponse(ctx, req, 500*time.Millisecond, 2)
	require.NoError(t, err)
	require.False(t, resp.Error)
	require.Equal(t, uint16(0x2013), resp.RegisterValues[0])
}

func TestClient_SendRequestAndAwaitResponse_ExhaustsRetriesOnErrorFlag(t *testing.T) {
	sim := NewSimulator(0x32, "SIMSERIAL01")
	sim.FailNextReads(100) // more than retries+1 attempts will consume
	host, port := startSimulator(t, sim)

	c := NewClient(host, port)
	c.InterFramePacing = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	req := NewReadHoldingRegistersRequest(0x32, 0, 1)
	_, err := c.SendRequestAndAwaitResponse(ctx, req, 100*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestClient_SendRequestAndAwaitResponse_TimesOutWithNoResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Accept the connection but never reply - the request should time out.
		buf := make([]byte, readChunkSize)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	c := NewClient("127.0.0.1", addr.Port)
	c.InterFramePacing = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	req := NewReadHoldingRegistersRequest(0x32, 0, 1)
	_, err = c.SendRequestAndAwaitResponse(ctx, req, 100*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSimulator_HeartbeatAutoReply(t *testing.T) {
	sim := NewSimulator(0x32, "SIMSERIAL01")
	host, port := startSimulator(t, sim)

	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()

	req := HeartbeatRequest("ADAPTERSN0", 1)
	payload, err := req.Encode()
	require.NoError(t, err)
	_, err = conn.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, 64)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)

	pdu, err := DecodeFrame(buf[:n])
	require.NoError(t, err)
	hb, ok := pdu.(*HeartbeatMessage)
	require.True(t, ok)
	// The reply is wire-identical to a request, so decoding yields the
	// request variant.
	assert.False(t, hb.IsResponse())
	assert.Equal(t, "ADAPTERSN0", hb.DataAdapterSerialNumber)
}

func TestClient_HeartbeatAutoReply(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			connCh <- conn
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	c := NewClient("127.0.0.1", addr.Port)
	c.InterFramePacing = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	conn := <-connCh
	defer conn.Close()

	req := HeartbeatRequest("ADAPTERSN1", 2)
	payload, err := req.Encode()
	require.NoError(t, err)
	_, err = conn.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, 64)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)

	pdu, err := DecodeFrame(buf[:n])
	require.NoError(t, err)
	hb, ok := pdu.(*HeartbeatMessage)
	require.True(t, ok)
	// The reply is wire-identical to a request, so decoding yields the
	// request variant.
	assert.False(t, hb.IsResponse())
	assert.Equal(t, "ADAPTERSN1", hb.DataAdapterSerialNumber)
	assert.Equal(t, uint8(2), hb.DataAdapterType)
}

func TestClient_Execute_FansOutAllRequests(t *testing.T) {
	sim := NewSimulator(0x32, "SIMSERIAL01")
	sim.Seed(map[Register]uint16{HR(0): 0x2013})
	host, port := startSimulator(t, sim)

	c := NewClient(host, port)
	c.InterFramePacing = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	reqs := []*TransparentMessage{
		NewReadHoldingRegistersRequest(0x32, 0, 1),
		NewWriteHoldingRegisterRequest(0x32, 96, 1),
	}
	results, err := c.Execute(ctx, reqs, time.Second, 1, true)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Response)
	}
}
