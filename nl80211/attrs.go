package nl80211

import (
	"fmt"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
)

// The TLV codec proper is mdlayher's netlink.Attribute; this file only adds
// the strict, size-accounted stream handling the kernel expects on top of
// it. We deliberately don't reach for netlink.MarshalAttributes here: the
// total length bookkeeping in Message needs per-attribute aligned sizes,
// and parsing has to reject trailing bytes instead of ignoring them.

// alignedAttributeLen is the number of bytes an attribute occupies on the
// wire: header plus payload, padded to a 4-byte boundary.
func alignedAttributeLen(a netlink.Attribute) int {
	return (nlaHdrLen + len(a.Data) + nlaAlignTo - 1) &^ (nlaAlignTo - 1)
}

// packAttribute writes a single attribute into b, returning the number of
// bytes consumed (always the aligned length, padding zeroed).
func packAttribute(a netlink.Attribute, b []byte) (int, error) {
	aligned := alignedAttributeLen(a)
	if len(b) < aligned {
		return 0, fmt.Errorf("%w: need %d bytes for attribute %d, have %d",
			ErrDecode, aligned, a.Type, len(b))
	}
	nlenc.PutUint16(b[0:2], uint16(nlaHdrLen+len(a.Data)))
	nlenc.PutUint16(b[2:4], a.Type)
	copy(b[nlaHdrLen:], a.Data)
	for i := nlaHdrLen + len(a.Data); i < aligned; i++ {
		b[i] = 0
	}
	return aligned, nil
}

// parseAttributes consumes exactly len(b) bytes worth of attributes into an
// id -> attribute map. Any malformed attribute rejects the whole stream: a
// header shorter than 4 bytes, a declared length overrunning the region or
// leftover bytes that don't amount to a full header are all fatal. The
// kernel is just as strict with what we send it, so there is no point in
// salvaging half a map.
func parseAttributes(b []byte) (map[uint16]netlink.Attribute, error) {
	attrs := make(map[uint16]netlink.Attribute)
	remaining := len(b)

	for remaining >= nlaHdrLen {
		offset := len(b) - remaining
		length := int(nlenc.Uint16(b[offset : offset+2]))
		typ := nlenc.Uint16(b[offset+2 : offset+4])
		if length < nlaHdrLen {
			return nil, fmt.Errorf("%w: attribute %d declares length %d, minimum is %d",
				ErrDecode, typ, length, nlaHdrLen)
		}

		aligned := (length + nlaAlignTo - 1) &^ (nlaAlignTo - 1)
		if aligned > remaining {
			return nil, fmt.Errorf("%w: attribute %d occupies %d bytes with only %d left",
				ErrDecode, typ, aligned, remaining)
		}

		data := make([]byte, length-nlaHdrLen)
		copy(data, b[offset+nlaHdrLen:offset+length])
		attrs[typ] = netlink.Attribute{Length: uint16(length), Type: typ, Data: data}
		remaining -= aligned
	}

	if remaining != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after the last attribute",
			ErrDecode, remaining)
	}
	return attrs, nil
}

// parseNestedAttributes unpacks the payload of a nested attribute into the
// inner id -> attribute map. Used for CTRL_ATTR_MCAST_GROUPS, whose payload
// is a list of indexed groups, each in turn holding name and id attributes.
func parseNestedAttributes(a netlink.Attribute) (map[uint16]netlink.Attribute, error) {
	return parseAttributes(a.Data)
}

// StringAttr builds a string attribute with the NUL terminator the kernel
// expects on genetlink string payloads.
func StringAttr(id uint16, s string) netlink.Attribute {
	return netlink.Attribute{Type: id, Data: append([]byte(s), 0x00)}
}

// Uint16Attr builds a native-order u16 attribute.
func Uint16Attr(id uint16, v uint16) netlink.Attribute {
	return netlink.Attribute{Type: id, Data: nlenc.Uint16Bytes(v)}
}

// Uint32Attr builds a native-order u32 attribute.
func Uint32Attr(id uint16, v uint32) netlink.Attribute {
	return netlink.Attribute{Type: id, Data: nlenc.Uint32Bytes(v)}
}
