// Package naming picks collision-free file names for new entries.
package naming

import (
	"fmt"
	"path"
)

// Exister reports whether a vault-relative path is occupied.
type Exister interface {
	Exists(path string) (bool, error)
}

// Claimed is a set of paths already handed out in the current run but
// possibly not yet written (dry runs).
type Claimed map[string]struct{}

// Resolve returns dir/base.ext, or the first free dir/base (n).ext for
// n = 2, 3, ... The check covers dir only and is not atomic with the
// caller's subsequent write.
func Resolve(store Exister, claimed Claimed, dir, base, ext string) (string, error) {
	for i := 1; ; i++ {
		name := base + "." + ext
		if i > 1 {
			name = fmt.Sprintf("%s (%d).%s", base, i, ext)
		}
		p := path.Join(dir, name)

		if _, ok := claimed[p]; ok {
			continue
		}
		exists, err := store.Exists(p)
		if err != nil {
			return "", fmt.Errorf("naming: %w", err)
		}
		if !exists {
			if claimed != nil {
				claimed[p] = struct{}{}
			}
			return p, nil
		}
	}
}
