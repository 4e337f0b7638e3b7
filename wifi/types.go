package wifi

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/fatih/structs"
)

// InterfaceType is the operating mode of a wireless interface, mirroring
// enum nl80211_iftype.
type InterfaceType uint32

const (
	InterfaceTypeUnspecified InterfaceType = iota
	InterfaceTypeAdHoc
	InterfaceTypeStation
	InterfaceTypeAP
	InterfaceTypeAPVLAN
	InterfaceTypeWDS
	InterfaceTypeMonitor
	InterfaceTypeMeshPoint
	InterfaceTypeP2PClient
	InterfaceTypeP2PGroupOwner
	InterfaceTypeP2PDevice
	InterfaceTypeOCB
)

func (t InterfaceType) String() string {
	switch t {
	case InterfaceTypeUnspecified:
		return "unspecified"
	case InterfaceTypeAdHoc:
		return "ad-hoc"
	case InterfaceTypeStation:
		return "station"
	case InterfaceTypeAP:
		return "access point"
	case InterfaceTypeAPVLAN:
		return "access point VLAN"
	case InterfaceTypeWDS:
		return "wireless distribution"
	case InterfaceTypeMonitor:
		return "monitor"
	case InterfaceTypeMeshPoint:
		return "mesh point"
	case InterfaceTypeP2PClient:
		return "P2P client"
	case InterfaceTypeP2PGroupOwner:
		return "P2P group owner"
	case InterfaceTypeP2PDevice:
		return "P2P device"
	case InterfaceTypeOCB:
		return "outside context of BSS"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// validTags encodes valid struct tags allowing for the control of
// marshalling of Interface structs.
var validTags = map[string]struct{}{
	// When leveraging the lean tag only the fields identifying the
	// interface are marshalled, which is all the API's list endpoint
	// needs to serve.
	"lean": {},
}

// Interface is one wireless interface as reported by an nl80211 interface
// dump. The struct tags control marshalling exactly like the enrichment
// structs do: the default `structs` tag carries everything, `lean` only
// the identity.
type Interface struct {
	Verbosity    string           `structs:"-" lean:"-" json:"-"`
	Index        uint32           `structs:"ifIndex" lean:"ifIndex"`
	Name         string           `structs:"ifName" lean:"ifName"`
	HardwareAddr net.HardwareAddr `structs:"mac" lean:"-"`
	PHY          uint32           `structs:"phy" lean:"-"`
	Type         InterfaceType    `structs:"type" lean:"type"`
	Frequency    uint32           `structs:"frequencyMHz" lean:"-"`
}

// MarshalJSON implements the json.Marshaler interface through fatih/structs
// so that the Verbosity field can pick the tag driving the output.
func (i Interface) MarshalJSON() ([]byte, error) {
	s := structs.New(i)
	s.TagName = "structs"
	if _, ok := validTags[i.Verbosity]; ok {
		s.TagName = i.Verbosity
	}

	m := s.Map()
	// Stringify the fields encoding/json would butcher.
	if _, ok := m["mac"]; ok {
		m["mac"] = i.HardwareAddr.String()
	}
	if _, ok := m["type"]; ok {
		m["type"] = i.Type.String()
	}
	return json.Marshal(m)
}

func (i Interface) String() string {
	return fmt.Sprintf("%s (index %d, %s, phy %d)", i.Name, i.Index, i.Type, i.PHY)
}

// Event is one unsolicited nl80211 notification read off a multicast
// group.
type Event struct {
	// Command is the raw nl80211 command carried by the notification.
	Command uint8 `structs:"command"`

	// Name is the human-readable rendition of Command, or "unknown".
	Name string `structs:"name"`

	// IfIndex is the interface the event refers to, 0 when the
	// notification carries no interface attribute.
	IfIndex uint32 `structs:"ifIndex"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s (command %d, ifindex %d)", e.Name, e.Command, e.IfIndex)
}
