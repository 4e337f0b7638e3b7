//go:build linux

package nl80211

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// sock is the production Conn: a SOCK_RAW AF_NETLINK socket speaking
// NETLINK_GENERIC, connected to the kernel (pid 0) and bounded on both
// send and receive by SO_SNDTIMEO/SO_RCVTIMEO. Modelled on how the kernel
// side expects to be spoken to; see netlink(7).
type sock struct {
	fd      int
	bufSize int
}

// dial opens and connects the netlink socket. The caller owns the returned
// Conn and must Close it.
func dial(c Config) (Conn, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_GENERIC)
	if err != nil {
		return nil, fmt.Errorf("couldn't open a generic netlink socket: %w", err)
	}

	s := &sock{fd: fd, bufSize: c.RecvBufferSize}

	tv := unix.NsecToTimeval(int64(c.TimeoutMs) * 1_000_000)
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
		s.Close()
		return nil, fmt.Errorf("couldn't set the send timeout: %w", err)
	}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		s.Close()
		return nil, fmt.Errorf("couldn't set the receive timeout: %w", err)
	}

	// Binding with pid 0 lets the kernel pick a unique port id; connecting
	// to pid 0 pins the peer to the kernel itself.
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		s.Close()
		return nil, fmt.Errorf("couldn't bind the netlink socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		s.Close()
		return nil, fmt.Errorf("couldn't connect to the kernel: %w", err)
	}

	return s, nil
}

func (s *sock) Send(b []byte) error {
	if err := unix.Sendto(s.fd, b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return fmt.Errorf("netlink send failed: %w", err)
	}
	return nil
}

func (s *sock) Receive() ([]byte, error) {
	b := make([]byte, s.bufSize)
	n, _, err := unix.Recvfrom(s.fd, b, 0)
	if err != nil {
		return nil, fmt.Errorf("netlink receive failed: %w", err)
	}
	return b[:n], nil
}

func (s *sock) JoinGroup(id uint32) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(id)); err != nil {
		return fmt.Errorf("couldn't join multicast group %d: %w", id, err)
	}
	return nil
}

func (s *sock) Close() error {
	return unix.Close(s.fd)
}
