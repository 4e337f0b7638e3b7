package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wlanlink/wlanlink/api"
	"github.com/wlanlink/wlanlink/nl80211"
	"github.com/wlanlink/wlanlink/wifi"
)

// kickstart wires everything together: one proxy serving the REST API's
// requests and a second one subscribed to the multicast groups. They
// can't share a socket given a solicited reply and a notification are
// indistinguishable to the kernel's delivery.
func kickstart(conf *Config) error {
	netlinkConf := conf.netlink()

	requestProxy := nl80211.NewProxy(&netlinkConf)
	if err := requestProxy.Init(); err != nil {
		return fmt.Errorf("error setting up the request proxy: %w", err)
	}
	defer func() {
		if err := requestProxy.Close(); err != nil {
			slog.Error("error closing the request proxy", "err", err)
		}
	}()

	monitorProxy := nl80211.NewProxy(&netlinkConf)
	if err := monitorProxy.Init(); err != nil {
		return fmt.Errorf("error setting up the monitor proxy: %w", err)
	}
	defer func() {
		if err := monitorProxy.Close(); err != nil {
			slog.Error("error closing the monitor proxy", "err", err)
		}
	}()

	registry := prometheus.NewRegistry()
	if err := requestProxy.RegisterMetrics(registry); err != nil {
		return fmt.Errorf("error registering the proxy metrics: %w", err)
	}

	apiConf := conf.api()
	server := api.New(&apiConf, wifi.NewClient(requestProxy), registry)
	if err := server.Init(); err != nil {
		return fmt.Errorf("error setting up the api server: %w", err)
	}
	defer func() {
		if err := server.Cleanup(); err != nil {
			slog.Error("error cleaning up the api server", "err", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	doneChan := make(chan struct{})
	eventChan := make(chan wifi.Event)

	go server.Run(doneChan)
	go func() {
		if err := wifi.NewClient(monitorProxy).Monitor(doneChan, eventChan, conf.monitorGroups()...); err != nil {
			slog.Error("error monitoring nl80211", "err", err)
		}
	}()

	slog.Info("wlanlink is up", "family", requestProxy.FamilyID())
	for {
		select {
		case event := <-eventChan:
			slog.Info("got an nl80211 event", "event", event.Name, "ifIndex", event.IfIndex)
		case <-sigChan:
			slog.Info("cleanly exiting wlanlink")
			close(doneChan)
			return nil
		}
	}
}
