package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"huffdbg/internal/failure"
	"huffdbg/internal/flatten"
	"huffdbg/internal/session"
)

// sessionFlags are the per-session options shared by debug, macro and
// flatten. Only flags the user actually set end up in the patch, so the
// config file defaults survive.
type sessionFlags struct {
	caller        string
	statePath     string
	preserveState bool
	storage       []string
	calldata      string
	value         string
	signature     string
	sigArgs       []string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.caller, "caller", "", "Address the call is made from")
	fs.StringVar(&f.statePath, "state-path", "", "hevm state directory, relative to the workspace")
	fs.BoolVar(&f.preserveState, "state", false, "Run the constructor and debug against its persisted state")
	fs.StringArrayVar(&f.storage, "storage", nil, "Seed a storage slot before execution, as slot=value (repeatable)")
	fs.StringVar(&f.calldata, "calldata", "", "Raw calldata as hex")
	fs.StringVar(&f.value, "value", "", "Call value in wei")
	fs.StringVar(&f.signature, "sig", "", `Function signature to encode as calldata, e.g. "transfer(address,uint256)"`)
	fs.StringSliceVar(&f.sigArgs, "sig-args", nil, "Arguments for --sig")
}

func (f *sessionFlags) patch(cmd *cobra.Command) (session.Patch, error) {
	p := session.Patch{}
	changed := cmd.Flags().Changed

	if changed("caller") {
		p[session.KeyCaller] = f.caller
	}
	if changed("state-path") {
		p[session.KeyStatePath] = f.statePath
	}
	if changed("state") {
		p[session.KeyPreserveState] = f.preserveState
	}
	if changed("calldata") {
		p[session.KeyCalldata] = f.calldata
	}
	if changed("value") {
		p[session.KeyCallValue] = f.value
		p[session.KeyCallValueChecked] = true
	}
	if len(f.storage) > 0 {
		overrides, err := parseStorage(f.storage)
		if err != nil {
			return nil, failure.New(failure.ConfigFailure, "storage", err)
		}
		p[session.KeyStorage] = overrides
	}
	return p, nil
}

// parseStorage parses slot=value pairs.
func parseStorage(pairs []string) ([]flatten.StorageOverride, error) {
	out := make([]flatten.StorageOverride, 0, len(pairs))
	for _, pair := range pairs {
		slot, value, ok := strings.Cut(pair, "=")
		slot, value = strings.TrimSpace(slot), strings.TrimSpace(value)
		if !ok || slot == "" || value == "" {
			return nil, fmt.Errorf("expected slot=value, got %q", pair)
		}
		out = append(out, flatten.StorageOverride{Slot: slot, Value: value})
	}
	return out, nil
}
