//go:build !linux

package nl80211

import "errors"

func dial(c Config) (Conn, error) {
	return nil, errors.New("generic netlink is only available on linux")
}
