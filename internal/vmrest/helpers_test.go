package vmrest

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/faize-ai/guestdir/internal/config"
	"github.com/faize-ai/guestdir/internal/vcsim"
)

const (
	testUser     = "administrator@vsphere.local"
	testPassword = "VMware1!"
)

// startSim runs a TLS vcsim server and returns it with a matching connection.
func startSim(t *testing.T) (*vcsim.Server, *config.Connection) {
	t.Helper()

	sim := vcsim.New(testUser, testPassword)
	sim.AddVM("vm-1", "/tmp")

	ts := httptest.NewTLSServer(sim.Handler())
	t.Cleanup(ts.Close)

	return sim, &config.Connection{
		Hostname:      strings.TrimPrefix(ts.URL, "https://"),
		Username:      testUser,
		Password:      testPassword,
		ValidateCerts: false,
		Timeout:       5 * time.Second,
	}
}
