package session

import (
	"fmt"
	"sort"
	"strings"

	"huffdbg/internal/flatten"
)

// Options are the caller-controlled session settings.
type Options struct {
	Caller           string
	StatePath        string
	PreserveState    bool
	Storage          []flatten.StorageOverride
	Calldata         string
	CallValue        string
	CallValueChecked bool
	CacheDir         string
}

// DefaultCaller is the address sessions execute as unless told otherwise.
const DefaultCaller = "0x00000000000000000000000000000000deadbeef"

// DefaultOptions returns the built-in defaults, the lowest precedence layer.
func DefaultOptions() Options {
	return Options{
		Caller:    DefaultCaller,
		StatePath: "cache/state",
		CacheDir:  "cache",
	}
}

// Patch keys. Every recognised key is listed here; anything else is an error.
const (
	KeyCaller           = "caller"
	KeyStatePath        = "state_path"
	KeyPreserveState    = "preserve_state"
	KeyStorage          = "storage"
	KeyCalldata         = "calldata"
	KeyCallValue        = "call_value"
	KeyCallValueChecked = "call_value_checked"
	KeyCacheDir         = "cache_dir"

	// Computed keys. Accepted so callers may echo a previous config back,
	// but the computed value always replaces them.
	KeyContractAddress = "contract_address"
	KeyMountedDrive    = "mounted_drive"
	KeyWorkDir         = "work_dir"
)

// Patch is a caller-supplied set of option overrides, keyed by the Key*
// constants.
type Patch map[string]any

type applyFunc func(o *Options, v any) error

var patchKeys = map[string]applyFunc{
	KeyCaller:           stringField(func(o *Options, s string) { o.Caller = s }),
	KeyStatePath:        stringField(func(o *Options, s string) { o.StatePath = s }),
	KeyCalldata:         stringField(func(o *Options, s string) { o.Calldata = s }),
	KeyCallValue:        stringField(func(o *Options, s string) { o.CallValue = s }),
	KeyCacheDir:         stringField(func(o *Options, s string) { o.CacheDir = s }),
	KeyPreserveState:    boolField(func(o *Options, b bool) { o.PreserveState = b }),
	KeyCallValueChecked: boolField(func(o *Options, b bool) { o.CallValueChecked = b }),
	KeyStorage:          applyStorage,

	KeyContractAddress: computedField,
	KeyMountedDrive:    computedField,
	KeyWorkDir:         computedField,
}

// KnownKeys returns the recognised patch keys, sorted.
func KnownKeys() []string {
	keys := make([]string, 0, len(patchKeys))
	for k := range patchKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply returns a copy of o with p layered on top. Unknown keys and values
// of the wrong type are rejected; all problems are reported together.
func (o Options) Apply(p Patch) (Options, error) {
	out := o
	out.Storage = append([]flatten.StorageOverride(nil), o.Storage...)

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var problems []string
	for _, k := range keys {
		apply, ok := patchKeys[k]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown option %q (known: %s)", k, strings.Join(KnownKeys(), ", ")))
			continue
		}
		if err := apply(&out, p[k]); err != nil {
			problems = append(problems, fmt.Sprintf("option %q: %v", k, err))
		}
	}
	if len(problems) > 0 {
		return o, fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return out, nil
}

func stringField(set func(*Options, string)) applyFunc {
	return func(o *Options, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		set(o, s)
		return nil
	}
}

func boolField(set func(*Options, bool)) applyFunc {
	return func(o *Options, v any) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		set(o, b)
		return nil
	}
}

func applyStorage(o *Options, v any) error {
	switch s := v.(type) {
	case []flatten.StorageOverride:
		o.Storage = append([]flatten.StorageOverride(nil), s...)
		return nil
	case nil:
		o.Storage = nil
		return nil
	default:
		return fmt.Errorf("expected storage overrides, got %T", v)
	}
}

func computedField(*Options, any) error { return nil }
