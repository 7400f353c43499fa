package givmodbus

import (
	"net"
	"sync"
)

// Simulator is a minimal in-memory GivEnergy device, useful for tests and
// local experimentation without real hardware. It is not a general
// Modbus server (out of scope per spec.md's Non-goals); it only answers
// read-holding/read-input/write-holding requests out of its own register
// cache and answers heartbeat requests, exercising the fact that the
// wire codec is symmetric enough to drive from either end.
type Simulator struct {
	SlaveAddress byte
	Serial       string

	mu                 sync.Mutex
	cache              RegisterCache
	failReadsRemaining int
}

// NewSimulator returns a Simulator seeded with an empty register cache.
func NewSimulator(slaveAddress byte, serial string) *Simulator {
	return &Simulator{SlaveAddress: slaveAddress, Serial: serial, cache: NewRegisterCache()}
}

// Seed preloads register values, as if a real device already held them.
func (s *Simulator) Seed(values map[Register]uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Update(values)
}

// FailNextReads makes the next n read requests come back with the
// transparent error flag set (zero-filled register values), exercising
// SendRequestAndAwaitResponse's retry path before succeeding normally.
func (s *Simulator) FailNextReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReadsRemaining = n
}

// Serve accepts a single connection on conn and answers requests until
// the connection is closed or a read fails.
func (s *Simulator) Serve(conn net.Conn) error {
	defer conn.Close()
	framer := NewStreamFramer()
	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			framer.Feed(buf[:n])
			if werr := s.drain(conn, framer); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

func (s *Simulator) drain(conn net.Conn, framer *StreamFramer) error {
	for {
		frame, ok, ferr := framer.Next()
		if !ok {
			return nil
		}
		if ferr != nil {
			continue
		}
		pdu, err := DecodeFrame(frame)
		if err != nil {
			continue
		}
		reply, ok := s.handle(pdu)
		if !ok {
			continue
		}
		payload, err := reply.Encode()
		if err != nil {
			continue
		}
		if _, err := conn.Write(payload); err != nil {
			return err
		}
	}
}

func (s *Simulator) handle(pdu PDU) (PDU, bool) {
	switch m := pdu.(type) {
	case *HeartbeatMessage:
		if m.IsResponse() {
			return nil, false
		}
		return m.ExpectedResponse(), true
	case *TransparentMessage:
		return s.handleTransparent(m)
	default:
		return nil, false
	}
}

func (s *Simulator) handleTransparent(req *TransparentMessage) (PDU, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.TransparentFunctionCode {
	case TFCReadHolding, TFCReadInput, TFCReadBattery:
		if s.failReadsRemaining > 0 {
			s.failReadsRemaining--
			return &TransparentMessage{
				DataAdapterSerialNumber: s.Serial,
				InverterSerialNumber:    s.Serial,
				SlaveAddress:            req.SlaveAddress,
				TransparentFunctionCode: req.TransparentFunctionCode,
				Error:                   true,
				BaseRegister:            req.BaseRegister,
				RegisterCount:           req.RegisterCount,
				RegisterValues:          make([]uint16, req.RegisterCount),
				fields:                  FieldSerial | FieldBase | FieldCount | FieldValues,
			}, true
		}
		bank := Holding
		if req.TransparentFunctionCode != TFCReadHolding {
			bank = Input
		}
		values := make([]uint16, req.RegisterCount)
		for i := range values {
			v, _ := s.cache.Get(Register{Bank: bank, Index: req.BaseRegister + uint16(i)})
			values[i] = v
		}
		resp := &TransparentMessage{
			DataAdapterSerialNumber: s.Serial,
			InverterSerialNumber:    s.Serial,
			SlaveAddress:            req.SlaveAddress,
			TransparentFunctionCode: req.TransparentFunctionCode,
			BaseRegister:            req.BaseRegister,
			RegisterCount:           req.RegisterCount,
			RegisterValues:          values,
			fields:                  FieldSerial | FieldBase | FieldCount | FieldValues,
		}
		return resp, true
	case TFCWriteHolding:
		s.cache.Update(map[Register]uint16{HR(int(req.BaseRegister)): req.Value()})
		resp := &TransparentMessage{
			DataAdapterSerialNumber: s.Serial,
			InverterSerialNumber:    s.Serial,
			SlaveAddress:            req.SlaveAddress,
			TransparentFunctionCode: req.TransparentFunctionCode,
			BaseRegister:            req.BaseRegister,
			RegisterCount:           1,
			RegisterValues:          req.RegisterValues,
			fields:                  FieldSerial | FieldBase | FieldValues,
		}
		return resp, true
	default:
		return nil, false
	}
}
