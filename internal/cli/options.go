package cli

import (
	"fmt"
	"sort"
	"strings"
)

type Options struct {
	JSON        bool
	Yes         bool
	Interactive bool
	PageSize    int
	Pages       int
	UserName    string
	Password    string
}

// filterFlags collects repeated --filter key=value flags.
type filterFlags map[string]string

func (f filterFlags) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, ",")
}

func (f filterFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("filter must look like key=value, got %q", value)
	}
	f[key] = strings.TrimSpace(val)
	return nil
}
