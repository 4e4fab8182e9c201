package wire

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/ambercast/relay/errcode"
)

// Decode parses a single text message into a Packet, or returns a typed
// error from the errcode package. The grammar is read strictly
// left-to-right, with no backtracking.
func Decode(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, errcode.ErrCodeInvalidPacket
	}

	if !utf8.Valid(data) {
		return nil, errcode.ErrCodeUTF8
	}

	opcode := Opcode(data[0])
	if opcode < Connect || opcode > BinaryAck {
		return nil, errcode.ErrCodeInvalidOpcode.WithArgs(data[0])
	}

	p := &Packet{Opcode: opcode}
	idx := 1

	if opcode.IsBinary() {
		start := idx
		for idx < len(data) && isDigit(data[idx]) {
			idx++
		}
		if idx == start || idx >= len(data) || data[idx] != '-' {
			return nil, errcode.ErrCodeInvalidPacket
		}
		n, err := strconv.Atoi(string(data[start:idx]))
		if err != nil {
			return nil, errcode.ErrCodeInvalidPacket
		}
		p.AttachmentsExpected = n
		idx++ // consume '-'
	}

	if idx < len(data) && data[idx] == '/' {
		start := idx
		for idx < len(data) && data[idx] != ',' {
			idx++
		}
		nsp := string(data[start:idx])
		p.Namespace = &nsp
		if idx < len(data) {
			idx++ // consume ','
		}
	}

	idStart := idx
	for idx < len(data) && isDigit(data[idx]) {
		idx++
	}
	if idx > idStart {
		id, err := strconv.ParseUint(string(data[idStart:idx]), 10, 64)
		if err != nil {
			return nil, errcode.ErrCodeInvalidPacket
		}
		p.ID = &id
	}

	if idx < len(data) {
		var payload interface{}
		if err := json.Unmarshal(data[idx:], &payload); err != nil {
			return nil, errcode.ErrCodeJSON.WithArgs(err.Error())
		}
		p.Payload = payload
		p.HasPayload = true
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Encode is the deterministic inverse of Decode: for every Packet p
// satisfying the invariants of the data model, Decode(Encode(p)) == p.
func Encode(p *Packet) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(p.Opcode))

	if p.AttachmentsExpected > 0 {
		buf.WriteString(strconv.Itoa(p.AttachmentsExpected))
		buf.WriteByte('-')
	}

	nspPresent := p.Namespace != nil
	if nspPresent {
		buf.WriteString(*p.Namespace)
	}

	// The separator disambiguates the namespace from what follows; it is
	// emitted at most once, and only when there is something to
	// disambiguate from.
	if nspPresent && (p.ID != nil || p.HasPayload) {
		buf.WriteByte(',')
	}

	if p.ID != nil {
		buf.WriteString(strconv.FormatUint(*p.ID, 10))
	}

	if p.HasPayload {
		enc, err := json.Marshal(p.Payload)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
	}

	return buf.Bytes(), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
