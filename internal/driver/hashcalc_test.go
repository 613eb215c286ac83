package driver_test

import (
	"testing"

	"tirc/internal/driver"
	"tirc/internal/layout"
)

func TestCacheKeyDependsOnContentAndTarget(t *testing.T) {
	x64 := layout.X86_64LinuxGNU()
	a := driver.CacheKey([]byte("format = \"1.0\"\n"), x64)
	if a.IsZero() {
		t.Fatalf("zero key")
	}
	if b := driver.CacheKey([]byte("format = \"1.0\"\n"), x64); a != b {
		t.Fatalf("key is not deterministic: %s vs %s", a, b)
	}
	if b := driver.CacheKey([]byte("format = \"1.1\"\n"), x64); a == b {
		t.Fatalf("content change must change the key")
	}
	if b := driver.CacheKey([]byte("format = \"1.0\"\n"), layout.I386LinuxGNU()); a == b {
		t.Fatalf("target change must change the key")
	}
	if len(a.String()) != 64 {
		t.Fatalf("hex form: %q", a.String())
	}
}
