package enums

import (
	"fmt"
	"slices"
)

// parse returns the member of valid spelled exactly as raw.
func parse[T ~string](valid []T, raw, kind string) (T, error) {
	if i := slices.Index(valid, T(raw)); i >= 0 {
		return valid[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
