// Package wifi builds on the nl80211 proxy to offer the operations one
// actually wants from the wireless subsystem: enumerating interfaces,
// following multicast notifications and sampling link quality.
//
// The command and attribute identifiers are the kernel's, see [nl80211.h].
// Only the subset this package drives is declared; growing it is a matter
// of adding a constant.
//
// [nl80211.h]: https://github.com/torvalds/linux/blob/master/include/uapi/linux/nl80211.h
package wifi
