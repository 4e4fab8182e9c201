package wire

// Opcode is the single-byte discriminator that leads every wire packet.
type Opcode byte

const (
	// Connect opens or acknowledges a namespace.
	Connect Opcode = '0'
	// Disconnect tears down a namespace (or the whole connection).
	Disconnect Opcode = '1'
	// Event carries a named event and its parameters, no binary payload.
	Event Opcode = '2'
	// Ack replies to an Event that requested acknowledgment.
	Ack Opcode = '3'
	// Error carries a diagnostic string in response to a framing or
	// protocol-state failure.
	Error Opcode = '4'
	// BinaryEvent is an Event followed by one or more binary frames.
	BinaryEvent Opcode = '5'
	// BinaryAck is an Ack followed by one or more binary frames.
	BinaryAck Opcode = '6'
)

// Valid reports whether o is one of the seven recognized opcodes.
func (o Opcode) Valid() bool {
	return o >= Connect && o <= BinaryAck
}

// IsBinary reports whether packets of this opcode carry attachments.
func (o Opcode) IsBinary() bool {
	return o == BinaryEvent || o == BinaryAck
}

// String renders the opcode using its protocol name, for logging and
// error messages. It is not part of the wire format.
func (o Opcode) String() string {
	switch o {
	case Connect:
		return "CONNECT"
	case Disconnect:
		return "DISCONNECT"
	case Event:
		return "EVENT"
	case Ack:
		return "ACK"
	case Error:
		return "ERROR"
	case BinaryEvent:
		return "BINARY_EVENT"
	case BinaryAck:
		return "BINARY_ACK"
	default:
		return "UNKNOWN"
	}
}
