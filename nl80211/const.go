package nl80211

// All of these constants' names make the linter complain, but we inherited
// them from the kernel's uapi headers, so we will keep them.
const (
	// Fixed message type of the generic netlink control family. See
	// include/uapi/linux/genetlink.h.
	GENL_ID_CTRL uint16 = 0x10

	// Control family commands.
	CTRL_CMD_NEWFAMILY uint8 = 1
	CTRL_CMD_GETFAMILY uint8 = 3

	// Control family attributes.
	CTRL_ATTR_FAMILY_ID    uint16 = 1
	CTRL_ATTR_FAMILY_NAME  uint16 = 2
	CTRL_ATTR_MCAST_GROUPS uint16 = 7

	// Attributes nested within each CTRL_ATTR_MCAST_GROUPS entry.
	CTRL_ATTR_MCAST_GRP_NAME uint16 = 1
	CTRL_ATTR_MCAST_GRP_ID   uint16 = 2
)

// Strings needed to bootstrap nl80211. See include/uapi/linux/nl80211.h.
const (
	NL80211_GENL_NAME string = "nl80211"

	NL80211_MULTICAST_GROUP_SCAN string = "scan"
	NL80211_MULTICAST_GROUP_REG  string = "regulatory"
	NL80211_MULTICAST_GROUP_MLME string = "mlme"
)

const (
	// Size of struct nlmsghdr, as in include/uapi/linux/netlink.h.
	nlMsgHdrLen = 16

	// Size of struct genlmsghdr, as in include/uapi/linux/genetlink.h.
	genlMsgHdrLen = 4

	// Minimum size of a parseable message: both headers, no attributes.
	minMsgLen = nlMsgHdrLen + genlMsgHdrLen

	// Size of struct nlattr and the boundary its payload is padded to.
	nlaHdrLen  = 4
	nlaAlignTo = 4
)

// requiredMulticastGroups are the nl80211 notification channels every
// remotely modern kernel exposes. Family resolution refuses to complete
// without them so that a subscription can never fail later on.
var requiredMulticastGroups = []string{
	NL80211_MULTICAST_GROUP_SCAN,
	NL80211_MULTICAST_GROUP_REG,
	NL80211_MULTICAST_GROUP_MLME,
}
