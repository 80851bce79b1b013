package facilities

import (
	"testing"

	"github.com/kirinyoku/park-go/internal/domain"
)

func TestLotLabel(t *testing.T) {
	if got := LotLabel("PKN", 1); got != "PKN-1" {
		t.Fatalf("LotLabel: %s", got)
	}
	if got := LotLabel("PKN", 150); got != "PKN-150" {
		t.Fatalf("LotLabel: %s", got)
	}
}

func TestClampPage(t *testing.T) {
	s := New(nil, nil, nil, Config{DefaultPage: 10, MaxPage: 100})

	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 10},
		{-5, -1, 1, 10},
		{2, 25, 2, 25},
		{1, 1000, 1, 100},
	}

	for _, c := range cases {
		page, limit := s.ClampPage(c.page, c.limit)
		if page != c.wantPage || limit != c.wantLimit {
			t.Fatalf("ClampPage(%d, %d) = %d, %d; want %d, %d",
				c.page, c.limit, page, limit, c.wantPage, c.wantLimit)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, st := range []domain.FacilityStatus{
		domain.FacilityAvailable,
		domain.FacilityMaintenance,
		domain.FacilityFull,
	} {
		if !validStatus(st) {
			t.Fatalf("expected %s to be valid", st)
		}
	}

	if validStatus("CLOSED") {
		t.Fatalf("expected CLOSED to be invalid")
	}
	if validStatus("") {
		t.Fatalf("expected empty status to be invalid")
	}
}
