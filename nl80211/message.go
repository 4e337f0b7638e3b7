package nl80211

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"sort"

	ne "github.com/josharian/native"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
)

// Message is a single generic netlink message: the 16-byte base netlink
// header, the 4-byte generic header and a set of attributes keyed by id.
// Header.Length always equals the exact number of bytes MarshalBinary
// produces; AddAttribute keeps the accounting straight even on replacement.
// Netlink parsers (the kernel's included) reject length mismatches.
type Message struct {
	Header     netlink.Header
	GenlHeader GenlMsgHdr

	attrs map[uint16]netlink.Attribute
}

// NewMessage builds an empty message. For data requests typ is the resolved
// family id; during bootstrap it's GENL_ID_CTRL. The port id is always 0:
// we only ever talk to the kernel.
func NewMessage(command uint8, typ uint16, flags netlink.HeaderFlags, seq uint32) *Message {
	return &Message{
		Header: netlink.Header{
			Length:   minMsgLen,
			Type:     netlink.HeaderType(typ),
			Flags:    flags,
			Sequence: seq,
			PID:      0,
		},
		GenlHeader: NewGenlMsgHdr(command),
		attrs:      make(map[uint16]netlink.Attribute),
	}
}

// AddAttribute inserts an attribute, replacing any previous attribute with
// the same id. The declared total length tracks the actual attribute set
// exactly: on replacement the old aligned size is subtracted before the new
// one is added.
func (m *Message) AddAttribute(a netlink.Attribute) {
	if old, ok := m.attrs[a.Type]; ok {
		m.Header.Length -= uint32(alignedAttributeLen(old))
	}
	a.Length = uint16(nlaHdrLen + len(a.Data))
	m.Header.Length += uint32(alignedAttributeLen(a))
	m.attrs[a.Type] = a
}

// Attribute looks up an attribute by id.
func (m *Message) Attribute(id uint16) (netlink.Attribute, bool) {
	a, ok := m.attrs[id]
	return a, ok
}

// Uint16Attribute returns the value of a u16 attribute. The attribute must
// exist and declare exactly a u16-sized payload.
func (m *Message) Uint16Attribute(id uint16) (uint16, bool) {
	a, ok := m.attrs[id]
	if !ok || len(a.Data) != 2 {
		return 0, false
	}
	return nlenc.Uint16(a.Data), true
}

// Uint32Attribute returns the value of a u32 attribute. Same exact-size
// discipline as Uint16Attribute.
func (m *Message) Uint32Attribute(id uint16) (uint32, bool) {
	a, ok := m.attrs[id]
	if !ok || len(a.Data) != 4 {
		return 0, false
	}
	return nlenc.Uint32(a.Data), true
}

// StringAttribute returns the value of a NUL-terminated string attribute.
func (m *Message) StringAttribute(id uint16) (string, bool) {
	a, ok := m.attrs[id]
	if !ok || len(a.Data) == 0 {
		return "", false
	}
	return nlenc.String(a.Data), true
}

// Verify checks that the message carries the expected command and that
// every listed attribute is present. Used to vet responses before trusting
// their contents.
func (m *Message) Verify(command uint8, attrIDs ...uint16) error {
	if m.GenlHeader.Command != command {
		return fmt.Errorf("%w: expected command %d, got %d",
			ErrUnexpectedResponse, command, m.GenlHeader.Command)
	}
	for _, id := range attrIDs {
		if _, ok := m.attrs[id]; !ok {
			return fmt.Errorf("%w: missing attribute %d", ErrUnexpectedResponse, id)
		}
	}
	return nil
}

// MarshalBinary serialises the message into exactly Header.Length bytes of
// native byte order wire format.
func (m *Message) MarshalBinary() ([]byte, error) {
	b := make([]byte, m.Header.Length)
	if err := m.pack(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *Message) pack(b []byte) error {
	if len(b) < int(m.Header.Length) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrDecode, m.Header.Length, len(b))
	}

	ne.Endian.PutUint32(b[0:4], m.Header.Length)
	ne.Endian.PutUint16(b[4:6], uint16(m.Header.Type))
	ne.Endian.PutUint16(b[6:8], uint16(m.Header.Flags))
	ne.Endian.PutUint32(b[8:12], m.Header.Sequence)
	ne.Endian.PutUint32(b[12:16], m.Header.PID)

	if err := m.GenlHeader.pack(b[nlMsgHdrLen:]); err != nil {
		return err
	}

	offset := minMsgLen
	for _, id := range m.sortedAttributeIDs() {
		n, err := packAttribute(m.attrs[id], b[offset:])
		if err != nil {
			return err
		}
		offset += n
	}
	return nil
}

// ParseMessage reads a single message from the front of b, returning it
// along with the number of bytes it occupied. Parsing is all-or-nothing:
// truncated headers, attributes overrunning the declared region or a
// non-zero remainder after the last attribute all reject the message.
func ParseMessage(b []byte) (*Message, int, error) {
	if len(b) < minMsgLen {
		return nil, 0, fmt.Errorf("%w: need at least %d bytes, have %d",
			ErrDecode, minMsgLen, len(b))
	}

	hdr := netlink.Header{
		Length:   ne.Endian.Uint32(b[0:4]),
		Type:     netlink.HeaderType(ne.Endian.Uint16(b[4:6])),
		Flags:    netlink.HeaderFlags(ne.Endian.Uint16(b[6:8])),
		Sequence: ne.Endian.Uint32(b[8:12]),
		PID:      ne.Endian.Uint32(b[12:16]),
	}
	if hdr.Length < minMsgLen {
		return nil, 0, fmt.Errorf("%w: declared length %d is below the two-header minimum",
			ErrDecode, hdr.Length)
	}
	if int(hdr.Length) > len(b) {
		return nil, 0, fmt.Errorf("%w: declared length %d exceeds the %d buffered bytes",
			ErrDecode, hdr.Length, len(b))
	}

	genlHdr, err := parseGenlMsgHdr(b[nlMsgHdrLen:])
	if err != nil {
		return nil, 0, err
	}

	attrs, err := parseAttributes(b[minMsgLen:hdr.Length])
	if err != nil {
		return nil, 0, err
	}

	// Messages are padded to 4-byte boundaries within a receive buffer.
	consumed := (int(hdr.Length) + nlaAlignTo - 1) &^ (nlaAlignTo - 1)
	if consumed > len(b) {
		consumed = len(b)
	}
	return &Message{Header: hdr, GenlHeader: genlHdr, attrs: attrs}, consumed, nil
}

// ParseMessages parses a receive buffer holding one or more back-to-back
// messages. A parse failure anywhere rejects the whole buffer: partial
// results are never returned.
func ParseMessages(b []byte) ([]*Message, error) {
	var msgs []*Message
	for len(b) > 0 {
		msg, n, err := ParseMessage(b)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", len(msgs), err)
		}
		msgs = append(msgs, msg)
		b = b[n:]
	}
	return msgs, nil
}

// Equal reports whether two messages carry the same headers and the same
// attribute set. Attribute order is irrelevant; raw payload bytes are
// compared per id.
func (m *Message) Equal(other *Message) bool {
	if other == nil {
		return false
	}
	if m.Header != other.Header || m.GenlHeader != other.GenlHeader {
		return false
	}
	if len(m.attrs) != len(other.attrs) {
		return false
	}
	for id, a := range m.attrs {
		b, ok := other.attrs[id]
		if !ok || !bytes.Equal(a.Data, b.Data) {
			return false
		}
	}
	return true
}

// Hash folds the headers and the id-sorted attribute set into an FNV-1a
// sum. Sorting keeps the result stable no matter the map iteration order.
func (m *Message) Hash() uint64 {
	h := fnv.New64a()
	var scratch [16]byte
	ne.Endian.PutUint32(scratch[0:4], m.Header.Length)
	ne.Endian.PutUint16(scratch[4:6], uint16(m.Header.Type))
	ne.Endian.PutUint16(scratch[6:8], uint16(m.Header.Flags))
	ne.Endian.PutUint32(scratch[8:12], m.Header.Sequence)
	ne.Endian.PutUint32(scratch[12:16], m.Header.PID)
	h.Write(scratch[:])
	h.Write([]byte{m.GenlHeader.Command, m.GenlHeader.Version})

	for _, id := range m.sortedAttributeIDs() {
		ne.Endian.PutUint16(scratch[0:2], id)
		h.Write(scratch[0:2])
		h.Write(m.attrs[id].Data)
	}
	return h.Sum64()
}

func (m *Message) sortedAttributeIDs() []uint16 {
	ids := make([]uint16, 0, len(m.attrs))
	for id := range m.attrs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{len: %d, type: %#x, flags: %#x, seq: %d, %s, attrs: %d}",
		m.Header.Length, uint16(m.Header.Type), uint16(m.Header.Flags),
		m.Header.Sequence, m.GenlHeader, len(m.attrs))
}
