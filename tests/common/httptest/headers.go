//go:build unit || e2e

package httptest

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertHeaders expects each header to be set exactly once to the given
// value. An empty value means the header must be absent.
func AssertHeaders(t *testing.T, w *httptest.ResponseRecorder, expected map[string]string) {
	t.Helper()
	for name, want := range expected {
		values := w.Header().Values(name)
		if want == "" {
			assert.Empty(t, values, "header %s should not be set", name)
			continue
		}
		assert.Equal(t, []string{want}, values, "header %s", name)
	}
}
