package main

import (
	"fmt"
	"os"

	"github.com/nixlim/mixwatch/internal/settings"
)

// SetupOptions carries the -setup flags.
type SetupOptions struct {
	ConfigPath string
	BaseURL    string
	APIURL     string
	APIV1URL   string
	Force      bool
}

// RunSetup writes the backend endpoints into the config file and prints the
// result.
//
// Exit codes:
//   - 0: success or already configured
//   - 1: error
func RunSetup(opts SetupOptions) {
	values := settings.BackendValues(opts.BaseURL, opts.APIURL, opts.APIV1URL)
	if len(values) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -setup needs at least one of -base-url, -api-url or -api-v1-url")
		os.Exit(1)
	}

	output := settings.Merge(settings.MergeOptions{
		ConfigPath: opts.ConfigPath,
		Values:     values,
		Force:      opts.Force,
	})

	for _, msg := range output.Messages {
		fmt.Println(msg)
	}
	for _, w := range output.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	switch output.Result {
	case settings.MergeSuccess:
		fmt.Println("Config updated.")
		os.Exit(0)
	case settings.MergeAlreadyConfigured:
		fmt.Println("Already configured. No changes needed.")
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", output.Err)
		os.Exit(1)
	}
}
