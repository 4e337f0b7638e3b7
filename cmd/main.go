package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wlanlink/wlanlink/wifi"
)

//go:generate go tool go-md2man -in ../docs/wlanlink.1.md -out ../docs/wlanlink.1

var (
	rootCmd = &cobra.Command{
		Use:   "wlanlink",
		Short: "An nl80211 client.",
		Long:  "Talk to the kernel's wireless subsystem over generic netlink.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	familyCmd = &cobra.Command{
		Use:   "family",
		Short: "Resolve the nl80211 family.",
		Run: func(cmd *cobra.Command, args []string) {
			client, cleanup, err := newClient()
			if err != nil {
				fmt.Printf("error setting up the nl80211 proxy: %v\n", err)
				os.Exit(-1)
			}
			defer cleanup()

			printJSON(client.FamilyInfo())
		},
	}

	interfacesCmd = &cobra.Command{
		Use:   "interfaces",
		Short: "List the system's wireless interfaces.",
		Run: func(cmd *cobra.Command, args []string) {
			client, cleanup, err := newClient()
			if err != nil {
				fmt.Printf("error setting up the nl80211 proxy: %v\n", err)
				os.Exit(-1)
			}
			defer cleanup()

			ifaces, err := client.Interfaces()
			if err != nil {
				fmt.Printf("error dumping the interfaces: %v\n", err)
				os.Exit(-1)
			}
			printJSON(ifaces)
		},
	}

	qualityCmd = &cobra.Command{
		Use:   "quality",
		Short: "Sample the link quality off procfs.",
		Run: func(cmd *cobra.Command, args []string) {
			conf := getConf()
			snapshot, err := wifi.QualitySnapshot(conf.api().ProcMount)
			if err != nil {
				fmt.Printf("error reading the wireless stats: %v\n", err)
				os.Exit(-1)
			}
			printJSON(snapshot)
		},
	}

	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Follow nl80211 notifications until interrupted.",
		Run: func(cmd *cobra.Command, args []string) {
			client, cleanup, err := newClient()
			if err != nil {
				fmt.Printf("error setting up the nl80211 proxy: %v\n", err)
				os.Exit(-1)
			}
			defer cleanup()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt)

			eventChan := make(chan wifi.Event)
			doneChan := make(chan struct{})
			go func() {
				if err := client.Monitor(doneChan, eventChan, getConf().monitorGroups()...); err != nil {
					fmt.Printf("error monitoring nl80211: %v\n", err)
					os.Exit(-1)
				}
			}()

			for {
				select {
				case event := <-eventChan:
					fmt.Printf("got an event: %s\n", event)
				case <-sigChan:
					close(doneChan)
					return
				}
			}
		},
	}

	daemonCmd = &cobra.Command{
		Use:   "daemon",
		Short: "Run the REST API and keep monitoring in the background.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := kickstart(getConf()); err != nil {
				fmt.Printf("error running the daemon: %v\n", err)
				os.Exit(-1)
			}
		},
	}

	confFilePath string
	logLevelFlag string
	logTimeFlag  bool
	builtCommit  = "dev"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&confFilePath, "conf", "/etc/wlanlink/conf.yaml", "Path of the configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level: one of debug, info, warn, error.")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "Include timestamps in log lines.")

	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add the different sub-commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(familyCmd)
	rootCmd.AddCommand(interfacesCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(daemonCmd)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		fmt.Printf("error marshalling the output: %v\n", err)
		os.Exit(-1)
	}
	fmt.Println(string(b))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
