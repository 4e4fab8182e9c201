package errcode

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

var (
	errorCodeToDescriptors = map[ErrorCode]ErrorDescriptor{}
	idToDescriptors        = map[string]ErrorDescriptor{}
	groupToDescriptors     = map[string][]ErrorDescriptor{}
)

// baseGroup holds errors with no particular home: generic fallbacks used
// by the ambient stack (health, administrative HTTP surface).
const baseGroup = "errcode"

var (
	// ErrorCodeUnknown is a generic error that can be used as a last
	// resort if there is no situation-specific error message that can be
	// used.
	ErrorCodeUnknown = register(baseGroup, ErrorDescriptor{
		Value:          "UNKNOWN",
		Message:        "unknown error",
		Description:    `Generic error returned when the error does not have a specific classification.`,
		HTTPStatusCode: http.StatusInternalServerError,
	})

	// ErrorCodeUnsupported is returned when an operation is not supported.
	ErrorCodeUnsupported = register(baseGroup, ErrorDescriptor{
		Value:          "UNSUPPORTED",
		Message:        "the operation is unsupported",
		Description:    `The operation was unsupported due to a missing implementation or invalid set of parameters.`,
		HTTPStatusCode: http.StatusMethodNotAllowed,
	})

	// ErrorCodeUnavailable reports unavailability of a service or endpoint.
	ErrorCodeUnavailable = register(baseGroup, ErrorDescriptor{
		Value:          "UNAVAILABLE",
		Message:        "service unavailable",
		Description:    `Returned when a service is not available.`,
		HTTPStatusCode: http.StatusServiceUnavailable,
	})
)

// wireGroup holds the FramingError and ProtocolStateError taxonomy. Every
// code in this group may be sent back to a peer, verbatim, as the payload
// of an Error opcode packet; the HTTPStatusCode on these descriptors is
// only consulted when an error is additionally surfaced over the
// administrative HTTP surface and is otherwise unused.
const wireGroup = "wire"

var (
	// ErrCodeInvalidPacket is returned for structurally malformed packets:
	// empty input, a missing '-' after an attachment count prefix, or any
	// other violation of the packet grammar not covered by a more specific
	// code below.
	ErrCodeInvalidPacket = register(wireGroup, ErrorDescriptor{
		Value:          "INVALID_PACKET",
		Message:        "invalid packet",
		Description:    `The packet does not conform to the wire grammar.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeInvalidOpcode is returned when the leading byte of a packet is
	// not one of '0'..'6'.
	ErrCodeInvalidOpcode = register(wireGroup, ErrorDescriptor{
		Value:          "INVALID_OPCODE",
		Message:        "invalid opcode byte %q",
		Description:    `The leading byte of the packet is not a recognized opcode.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodePacketDataNotArray is returned when an Event/BinaryEvent
	// packet's payload is present but is not a JSON array.
	ErrCodePacketDataNotArray = register(wireGroup, ErrorDescriptor{
		Value:          "PACKET_DATA_NOT_ARRAY",
		Message:        "event packet payload must be a JSON array",
		Description:    `Event and BinaryEvent packets must carry an array payload whose first element is the event name.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeNoEvent is returned when an Event/BinaryEvent packet's array
	// payload is empty.
	ErrCodeNoEvent = register(wireGroup, ErrorDescriptor{
		Value:          "NO_EVENT",
		Message:        "event packet payload must not be empty",
		Description:    `An Event or BinaryEvent packet's payload array had no elements, so no event name could be determined.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeAckIDMissing is returned when an Ack/BinaryAck packet has no
	// id.
	ErrCodeAckIDMissing = register(wireGroup, ErrorDescriptor{
		Value:          "ACK_ID_MISSING",
		Message:        "ack packet missing id",
		Description:    `Ack and BinaryAck packets must carry the id of the request they are acknowledging.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeNonBinaryHasAttachments is returned when a non-binary opcode
	// declares a nonzero attachment count.
	ErrCodeNonBinaryHasAttachments = register(wireGroup, ErrorDescriptor{
		Value:          "NON_BINARY_HAS_ATTACHMENTS",
		Message:        "non-binary packet declares attachments",
		Description:    `Only BinaryEvent and BinaryAck packets may declare a nonzero attachment count.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeUTF8 is returned when a frame is not valid UTF-8 text.
	ErrCodeUTF8 = register(wireGroup, ErrorDescriptor{
		Value:          "INVALID_UTF8",
		Message:        "frame is not valid UTF-8",
		Description:    `A text frame's bytes could not be interpreted as UTF-8.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeJSON is returned when the payload portion of a packet fails to
	// parse as JSON.
	ErrCodeJSON = register(wireGroup, ErrorDescriptor{
		Value:          "INVALID_JSON",
		Message:        "invalid JSON payload: %s",
		Description:    `The payload portion of the packet could not be parsed as JSON.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeUnexpectedTextFrame is returned (ProtocolStateError) when a
	// text frame arrives while a Connection is awaiting attachments for a
	// previously buffered packet.
	ErrCodeUnexpectedTextFrame = register(wireGroup, ErrorDescriptor{
		Value:          "UNEXPECTED_TEXT_FRAME",
		Message:        "text frame received while awaiting attachments",
		Description:    `A text frame arrived before all of the attachments promised by a prior binary packet had been received; the buffered packet is discarded.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodePlaceholderOutOfRange is returned (ProtocolStateError) when an
	// attachment placeholder references an index beyond the received
	// attachments.
	ErrCodePlaceholderOutOfRange = register(wireGroup, ErrorDescriptor{
		Value:          "PLACEHOLDER_OUT_OF_RANGE",
		Message:        "attachment placeholder index %d out of range",
		Description:    `A payload placeholder referenced an attachment index that was not received.`,
		HTTPStatusCode: http.StatusBadRequest,
	})

	// ErrCodeInvalidNamespace is returned when a packet's namespace field
	// is present but malformed: missing its leading '/', too long, or
	// containing the ',' byte reserved as the wire separator.
	ErrCodeInvalidNamespace = register(wireGroup, ErrorDescriptor{
		Value:          "INVALID_NAMESPACE",
		Message:        "invalid namespace: %s",
		Description:    `A packet's namespace field did not start with '/', exceeded the maximum namespace length, or contained the ',' wire separator.`,
		HTTPStatusCode: http.StatusBadRequest,
	})
)

// appGroup is reserved for embedding applications to register their own
// ApplicationError codes against, exercising the same Register machinery
// without forking the package.
const appGroup = "app"

var (
	nextCode     = 1000
	registerLock sync.Mutex
)

// Register will make the passed-in error known to the environment and
// return a new ErrorCode.
func Register(group string, descriptor ErrorDescriptor) ErrorCode {
	return register(group, descriptor)
}

// register will make the passed-in error known to the environment and
// return a new ErrorCode.
func register(group string, descriptor ErrorDescriptor) ErrorCode {
	registerLock.Lock()
	defer registerLock.Unlock()

	descriptor.Code = ErrorCode(nextCode)

	if _, ok := idToDescriptors[descriptor.Value]; ok {
		panic(fmt.Sprintf("ErrorValue %q is already registered", descriptor.Value))
	}
	if _, ok := errorCodeToDescriptors[descriptor.Code]; ok {
		panic(fmt.Sprintf("ErrorCode %v is already registered", descriptor.Code))
	}

	groupToDescriptors[group] = append(groupToDescriptors[group], descriptor)
	errorCodeToDescriptors[descriptor.Code] = descriptor
	idToDescriptors[descriptor.Value] = descriptor

	nextCode++
	return descriptor.Code
}

type byValue []ErrorDescriptor

func (a byValue) Len() int           { return len(a) }
func (a byValue) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byValue) Less(i, j int) bool { return a[i].Value < a[j].Value }

// GetGroupNames returns the list of error group names that are registered.
func GetGroupNames() []string {
	keys := []string{}

	for k := range groupToDescriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetErrorCodeGroup returns the named group of error descriptors.
func GetErrorCodeGroup(name string) []ErrorDescriptor {
	desc := groupToDescriptors[name]
	sort.Sort(byValue(desc))
	return desc
}

// GetErrorAllDescriptors returns a slice of all ErrorDescriptors that are
// registered, irrespective of what group they're in.
func GetErrorAllDescriptors() []ErrorDescriptor {
	result := []ErrorDescriptor{}

	for _, group := range GetGroupNames() {
		result = append(result, GetErrorCodeGroup(group)...)
	}
	sort.Sort(byValue(result))
	return result
}
