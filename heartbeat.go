package givmodbus

import "fmt"

// HeartbeatMessage carries the device's keep-alive exchange. Requests and
// responses share the same wire shape; only the direction of travel
// distinguishes them. A HeartbeatRequest must be answered with a matching
// HeartbeatResponse within a few seconds or the device considers the
// connection dead.
type HeartbeatMessage struct {
	DataAdapterSerialNumber string
	DataAdapterType         uint8
	isResponse              bool
}

func (h *HeartbeatMessage) FunctionCode() byte { return FuncHeartbeat }

func (h *HeartbeatMessage) String() string {
	dir := "Request"
	if h.isResponse {
		dir = "Response"
	}
	return fmt.Sprintf("1:Heartbeat%s(serial=%s type=%d)", dir, h.DataAdapterSerialNumber, h.DataAdapterType)
}

func (h *HeartbeatMessage) Encode() ([]byte, error) {
	e := NewEncoder(AdapterSerialLen + 1)
	e.AddString(h.DataAdapterSerialNumber, AdapterSerialLen)
	e.AddUint8(h.DataAdapterType)
	body := e.Bytes()
	header := encodeHeader(0x01, FuncHeartbeat, len(body))
	return append(header, body...), nil
}

// HeartbeatRequest builds the request-direction variant.
func HeartbeatRequest(serial string, adapterType uint8) *HeartbeatMessage {
	return &HeartbeatMessage{DataAdapterSerialNumber: serial, DataAdapterType: adapterType}
}

// HeartbeatResponse builds the response-direction variant.
func HeartbeatResponse(serial string, adapterType uint8) *HeartbeatMessage {
	return &HeartbeatMessage{DataAdapterSerialNumber: serial, DataAdapterType: adapterType, isResponse: true}
}

// IsResponse reports whether this is the reply side of the exchange (the
// client's answer to the device), as built by HeartbeatResponse or
// ExpectedResponse. Both sides are identical on the wire, so a decoded
// heartbeat always reports false.
func (h *HeartbeatMessage) IsResponse() bool { return h.isResponse }

// ExpectedResponse builds the auto-reply for an incoming heartbeat request,
// echoing the adapter type as the device expects.
func (h *HeartbeatMessage) ExpectedResponse() *HeartbeatMessage {
	return HeartbeatResponse(h.DataAdapterSerialNumber, h.DataAdapterType)
}

func decodeHeartbeat(_ Header, body []byte) (PDU, error) {
	d := NewDecoder(body)
	serial, err := d.DecodeString(AdapterSerialLen)
	if err != nil {
		return nil, err
	}
	adapterType, err := d.DecodeUint8()
	if err != nil {
		return nil, err
	}
	return &HeartbeatMessage{DataAdapterSerialNumber: serial, DataAdapterType: adapterType}, nil
}
