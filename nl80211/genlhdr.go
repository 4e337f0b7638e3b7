package nl80211

import (
	"fmt"

	ne "github.com/josharian/native"
)

// genlVersion is the only generic netlink protocol version in use.
const genlVersion uint8 = 1

// GenlMsgHdr is the Go counterpart of 'struct genlmsghdr' as defined in
// include/uapi/linux/genetlink.h. It immediately follows the base netlink
// header on the wire.
type GenlMsgHdr struct {
	Command  uint8
	Version  uint8
	Reserved uint16
}

// NewGenlMsgHdr builds a header for the given command. The version is
// always 1 and the reserved field always 0.
func NewGenlMsgHdr(command uint8) GenlMsgHdr {
	return GenlMsgHdr{Command: command, Version: genlVersion}
}

// pack writes the header into the first 4 bytes of b in native byte order.
func (h GenlMsgHdr) pack(b []byte) error {
	if len(b) < genlMsgHdrLen {
		return fmt.Errorf("%w: need %d bytes for the generic header, have %d",
			ErrDecode, genlMsgHdrLen, len(b))
	}
	b[0] = h.Command
	b[1] = h.Version
	ne.Endian.PutUint16(b[2:4], h.Reserved)
	return nil
}

// parseGenlMsgHdr reads a header from the first 4 bytes of b.
func parseGenlMsgHdr(b []byte) (GenlMsgHdr, error) {
	if len(b) < genlMsgHdrLen {
		return GenlMsgHdr{}, fmt.Errorf("%w: need %d bytes for the generic header, have %d",
			ErrDecode, genlMsgHdrLen, len(b))
	}
	return GenlMsgHdr{
		Command:  b[0],
		Version:  b[1],
		Reserved: ne.Endian.Uint16(b[2:4]),
	}, nil
}

func (h GenlMsgHdr) String() string {
	return fmt.Sprintf("GenlMsgHdr{command: %d, version: %d, reserved: %d}",
		h.Command, h.Version, h.Reserved)
}
