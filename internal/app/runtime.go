package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv makes both binaries return before touching mongo or redis.
const TestModeEnv = "BACKOFFICE_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(TestModeEnv))
})

func parseTestMode(raw string) bool {
	on, err := strconv.ParseBool(raw)
	return err == nil && on
}

// InTestMode reports whether the binaries should skip runtime side effects.
// The environment is read once.
func InTestMode() bool {
	return testMode()
}
