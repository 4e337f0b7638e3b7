package wifi

import (
	"fmt"
	"log/slog"

	"github.com/mdlayher/netlink"

	"github.com/wlanlink/wlanlink/nl80211"
)

// Client drives the nl80211 family through an initialised proxy: interface
// enumeration over the synchronous path and multicast event decoding over
// the receive path.
//
// Monitoring and request/response traffic share the proxy's single socket,
// so a client that monitors should not be used for requests concurrently:
// the kernel makes no distinction between readers and a solicited reply
// could be drained by the monitoring loop. Use a second proxy instead.
type Client struct {
	proxy *nl80211.Proxy
}

// FamilyInfo describes the resolved nl80211 family.
type FamilyInfo struct {
	Name   string            `structs:"name" json:"name"`
	ID     uint16            `structs:"id" json:"id"`
	Groups map[string]uint32 `structs:"multicastGroups" json:"multicastGroups"`
}

// NewClient wraps an already-initialised proxy.
func NewClient(p *nl80211.Proxy) *Client {
	return &Client{proxy: p}
}

// FamilyInfo returns the family id and multicast groups the proxy resolved
// at Init.
func (c *Client) FamilyInfo() FamilyInfo {
	return FamilyInfo{
		Name:   nl80211.NL80211_GENL_NAME,
		ID:     c.proxy.FamilyID(),
		Groups: c.proxy.MulticastGroups(),
	}
}

// Interfaces asks nl80211 to dump every wireless interface on the system.
func (c *Client) Interfaces() ([]Interface, error) {
	req, err := c.proxy.NewRequest(CMD_GET_INTERFACE)
	if err != nil {
		return nil, err
	}
	req.Header.Flags |= netlink.Dump

	msgs, err := c.proxy.Execute(req)
	if err != nil {
		return nil, fmt.Errorf("interface dump failed: %w", err)
	}

	ifaces := []Interface{}
	for {
		batchDone := false
		for _, m := range msgs {
			// Dumps are terminated by a plain NLMSG_DONE control
			// message, possibly delivered in a later read.
			if m.Header.Type == netlink.Done {
				batchDone = true
				break
			}
			iface, err := parseInterface(m)
			if err != nil {
				return nil, err
			}
			ifaces = append(ifaces, iface)
		}
		if batchDone {
			return ifaces, nil
		}
		if msgs, err = c.proxy.Receive(); err != nil {
			return nil, fmt.Errorf("interface dump failed: %w", err)
		}
	}
}

func parseInterface(m *nl80211.Message) (Interface, error) {
	if err := m.Verify(CMD_NEW_INTERFACE, ATTR_IFINDEX, ATTR_IFNAME); err != nil {
		return Interface{}, fmt.Errorf("unexpected dump entry: %w", err)
	}

	iface := Interface{}
	iface.Index, _ = m.Uint32Attribute(ATTR_IFINDEX)
	iface.Name, _ = m.StringAttribute(ATTR_IFNAME)
	iface.PHY, _ = m.Uint32Attribute(ATTR_WIPHY)
	iface.Frequency, _ = m.Uint32Attribute(ATTR_WIPHY_FREQ)
	if t, ok := m.Uint32Attribute(ATTR_IFTYPE); ok {
		iface.Type = InterfaceType(t)
	}
	if mac, ok := m.Attribute(ATTR_MAC); ok && len(mac.Data) == 6 {
		iface.HardwareAddr = append([]byte{}, mac.Data...)
	}
	return iface, nil
}

// Monitor joins the given multicast groups (all required ones when none
// are named) and forwards decoded notifications into out until done is
// closed. Receive timeouts just mean nothing happened and are skipped
// over; they are also what keeps the loop responsive to done.
func (c *Client) Monitor(done <-chan struct{}, out chan<- Event, groups ...string) error {
	if len(groups) == 0 {
		groups = []string{
			nl80211.NL80211_MULTICAST_GROUP_SCAN,
			nl80211.NL80211_MULTICAST_GROUP_REG,
			nl80211.NL80211_MULTICAST_GROUP_MLME,
		}
	}
	for _, g := range groups {
		if err := c.proxy.JoinMulticastGroup(g); err != nil {
			return fmt.Errorf("couldn't subscribe to %q: %w", g, err)
		}
	}

	slog.Debug("monitoring nl80211 notifications", "groups", groups)
	for {
		select {
		case <-done:
			slog.Debug("cleanly exiting the nl80211 monitor")
			return nil
		default:
		}

		msgs, err := c.proxy.Receive()
		if err != nil {
			continue
		}
		for _, m := range msgs {
			select {
			case out <- decodeEvent(m):
			case <-done:
				slog.Debug("cleanly exiting the nl80211 monitor")
				return nil
			}
		}
	}
}

func decodeEvent(m *nl80211.Message) Event {
	e := Event{Command: m.GenlHeader.Command}
	name, ok := commandNames[e.Command]
	if !ok {
		name = "unknown"
	}
	e.Name = name
	e.IfIndex, _ = m.Uint32Attribute(ATTR_IFINDEX)
	return e
}
