package testing

import (
	"os"
	stdtesting "testing"

	_ "github.com/lyceum-erp/lyceum-erp/internal/testing/guard"
)

// TestMain exists so the package builds as a test entrypoint; the guard
// import above is what flips LYCEUM_TEST_MODE for every blank importer.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
