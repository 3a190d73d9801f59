package mdns

import (
	"strings"
	"testing"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/testutil"
)

func TestTXT(t *testing.T) {
	txt := TXT(testutil.DefaultIdentity())

	want := map[string]bool{
		"alias=bob":                           true,
		"path=/say":                           true,
		"identity=" + testutil.FixtureAddress: true,
	}
	if len(txt) != len(want) {
		t.Fatalf("TXT() = %v", txt)
	}
	for _, rec := range txt {
		if !want[rec] {
			t.Errorf("unexpected record %q", rec)
		}
	}
}

func TestTXT_NoAddress(t *testing.T) {
	id := testutil.DefaultIdentity()
	id.NetworkAddress = ""
	for _, rec := range TXT(id) {
		if strings.HasPrefix(rec, "identity=") {
			t.Errorf("identity record should be omitted, got %q", rec)
		}
	}
}

func TestInstanceName(t *testing.T) {
	if got := InstanceName("bob"); !strings.HasPrefix(got, "rori-client bob on ") {
		t.Errorf("InstanceName(bob) = %q", got)
	}
	if got := InstanceName(""); !strings.HasPrefix(got, "rori-client on ") {
		t.Errorf("InstanceName() = %q", got)
	}
}

func TestAdvertise_Disabled(t *testing.T) {
	shutdown, err := Advertise(config.MDNSConfig{Enabled: false}, 3000, testutil.DefaultIdentity())
	if err != nil {
		t.Fatalf("Advertise() error = %v", err)
	}
	shutdown()
}
