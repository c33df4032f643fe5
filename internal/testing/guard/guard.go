// Package guard sets LYCEUM_TEST_MODE for any test binary that imports it,
// so the server and worker entrypoints refuse to start under test.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LYCEUM_TEST_MODE") == "" {
			_ = os.Setenv("LYCEUM_TEST_MODE", "1")
		}
	})
}
