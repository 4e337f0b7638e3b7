// Package nl80211 implements the generic netlink (genetlink) framing needed
// to talk to the kernel's nl80211 subsystem together with a small proxy
// handling family resolution and request execution.
//
// Generic netlink multiplexes many logical families (nl80211 among them)
// over a single NETLINK_GENERIC socket. Family identifiers are assigned by
// the kernel at runtime, so before any nl80211 request can be issued the
// nlctrl control family has to be asked for the numeric id via a
// CTRL_CMD_GETFAMILY request. The whole dance is described in some detail
// in the kernel's documentation [0] and the message layout in the uapi
// headers [1].
//
// Everything on the wire is host-native byte order, as mandated by
// netlink(7). Attribute payloads are padded to 4-byte boundaries.
//
// 0: https://docs.kernel.org/userspace-api/netlink/intro.html
//
// 1: https://elixir.bootlin.com/linux/v6.12.4/source/include/uapi/linux/genetlink.h
package nl80211
