// Package testing puts test binaries into test mode. Import it for side
// effects from external test packages.
package testing

import "os"

// testEnv holds values applied when the variable is not already set.
var testEnv = map[string]string{
	"AUTH_SECRET":  "test-secret-test-secret-test-secret",
	"REGISTRY_URL": "http://127.0.0.1:0",
}

func init() {
	_ = os.Setenv("BACKOFFICE_TEST_MODE", "1")
	for key, value := range testEnv {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}
