package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode keeps test binaries away from Redis reservations and other
// runtime side effects.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FREIGHTDESK_TEST_MODE", "1")
		if os.Getenv("DOCNO_RESERVE") == "" {
			_ = os.Setenv("DOCNO_RESERVE", "false")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
