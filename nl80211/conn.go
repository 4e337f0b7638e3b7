package nl80211

import (
	"github.com/goccy/go-yaml"
)

// Conn is the raw channel to the kernel's generic netlink subsystem. The
// production implementation (see sock_linux.go) is a bare AF_NETLINK socket
// with bounded I/O; tests script their own.
type Conn interface {
	// Send writes one serialised message.
	Send(b []byte) error

	// Receive performs one bounded read and returns whatever the kernel
	// packed into it, which may be several concatenated messages.
	Receive() ([]byte, error)

	// JoinGroup subscribes the socket to a multicast group by numeric id.
	JoinGroup(id uint32) error

	Close() error
}

// Config tunes the socket owned by a Proxy.
type Config struct {
	// Bound applied to each socket send and receive, in milliseconds.
	TimeoutMs int `yaml:"timeoutMs"`

	// Size of the buffer handed to each receive. 8 KiB fits every reply
	// nl80211 produces; dumps span several messages rather than growing
	// a single one.
	RecvBufferSize int `yaml:"recvBufferSize"`
}

var DefaultConfig = Config{
	TimeoutMs:      300,
	RecvBufferSize: 8 * 1024,
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return nil
}
