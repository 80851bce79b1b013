package vehicles

import "testing"

func TestValidType(t *testing.T) {
	for _, typ := range []string{"", "car", "motorcycle", "truck", "van", "suv"} {
		if !ValidType(typ) {
			t.Fatalf("expected %q to be valid", typ)
		}
	}
	if ValidType("boat") {
		t.Fatalf("expected boat to be invalid")
	}
}

func TestValidSize(t *testing.T) {
	for _, size := range []string{"", "small", "medium", "large"} {
		if !ValidSize(size) {
			t.Fatalf("expected %q to be valid", size)
		}
	}
	if ValidSize("huge") {
		t.Fatalf("expected huge to be invalid")
	}
}
