package wire

// ProtocolVersion is the wire protocol version implemented by this module.
const ProtocolVersion = 4
