package redis

import (
	"strings"
	"testing"
)

func TestKeyNamespaces(t *testing.T) {
	keys := []string{
		KeyFacilitySummary(7),
		KeyFacilityAvailability(7),
		KeyFacilityLotMap(7),
		KeyEntryLimit("ip:10.0.0.1"),
		KeyIdemSessionStart(7, "abc"),
		ChannelFacilitiesChanged(),
	}

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !strings.HasPrefix(k, "parkgo:v1") {
			t.Fatalf("key %q outside namespace", k)
		}
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}

	if got := KeyEntryLimit("ip:10.0.0.1"); got != "parkgo:v1:ratelimit:entries:ip:10.0.0.1" {
		t.Fatalf("unexpected entry-limit key: %s", got)
	}
}
