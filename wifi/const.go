package wifi

// Subset of nl80211 commands this package drives or decodes. See
// include/uapi/linux/nl80211.h; the names are the kernel's, shortened by
// their NL80211_ prefix to keep call sites readable.
const (
	CMD_GET_WIPHY     uint8 = 1
	CMD_NEW_WIPHY     uint8 = 3
	CMD_GET_INTERFACE uint8 = 5
	CMD_NEW_INTERFACE uint8 = 7
	CMD_DEL_INTERFACE uint8 = 8

	CMD_TRIGGER_SCAN     uint8 = 33
	CMD_NEW_SCAN_RESULTS uint8 = 34
	CMD_SCAN_ABORTED     uint8 = 35
	CMD_REG_CHANGE       uint8 = 36
	CMD_AUTHENTICATE     uint8 = 37
	CMD_ASSOCIATE        uint8 = 38
	CMD_DEAUTHENTICATE   uint8 = 39
	CMD_DISASSOCIATE     uint8 = 40
	CMD_CONNECT          uint8 = 46
	CMD_ROAM             uint8 = 47
	CMD_DISCONNECT       uint8 = 48
)

// Subset of nl80211 attributes carried by the messages above.
const (
	ATTR_WIPHY      uint16 = 1
	ATTR_WIPHY_NAME uint16 = 2
	ATTR_IFINDEX    uint16 = 3
	ATTR_IFNAME     uint16 = 4
	ATTR_IFTYPE     uint16 = 5
	ATTR_MAC        uint16 = 6
	ATTR_WIPHY_FREQ uint16 = 38
)

// commandNames maps the event commands seen on the scan, regulatory and
// mlme multicast groups to human-readable names.
var commandNames = map[uint8]string{
	CMD_NEW_WIPHY:        "new-wiphy",
	CMD_NEW_INTERFACE:    "new-interface",
	CMD_DEL_INTERFACE:    "del-interface",
	CMD_TRIGGER_SCAN:     "trigger-scan",
	CMD_NEW_SCAN_RESULTS: "new-scan-results",
	CMD_SCAN_ABORTED:     "scan-aborted",
	CMD_REG_CHANGE:       "regulatory-change",
	CMD_AUTHENTICATE:     "authenticate",
	CMD_ASSOCIATE:        "associate",
	CMD_DEAUTHENTICATE:   "deauthenticate",
	CMD_DISASSOCIATE:     "disassociate",
	CMD_CONNECT:          "connect",
	CMD_ROAM:             "roam",
	CMD_DISCONNECT:       "disconnect",
}
