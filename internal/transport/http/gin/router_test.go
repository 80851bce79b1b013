package httpgin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/park-go/internal/service/auth"
	"github.com/kirinyoku/park-go/internal/service/facilities"
	"github.com/kirinyoku/park-go/internal/service/parking"
	"github.com/kirinyoku/park-go/internal/service/vehicles"
)

func TestRespondErr(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{auth.ErrEmailConflict, http.StatusConflict},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrUserNotFound, http.StatusNotFound},
		{auth.ErrWrongOldPassword, http.StatusBadRequest},
		{vehicles.ErrVehicleNotFound, http.StatusNotFound},
		{vehicles.ErrPlateConflict, http.StatusConflict},
		{vehicles.ErrInvalidType, http.StatusBadRequest},
		{vehicles.ErrInvalidSize, http.StatusBadRequest},
		{facilities.ErrFacilityNotFound, http.StatusNotFound},
		{facilities.ErrCodeConflict, http.StatusConflict},
		{facilities.ErrInvalidStatus, http.StatusBadRequest},
		{parking.ErrVehicleNotFound, http.StatusNotFound},
		{parking.ErrFacilityNotFound, http.StatusNotFound},
		{parking.ErrNoAvailability, http.StatusConflict},
		{parking.ErrSessionNotFound, http.StatusNotFound},
		{parking.ErrSessionNotActive, http.StatusConflict},
		{fmt.Errorf("anything else"), http.StatusInternalServerError},
		// wrapped errors must still map
		{fmt.Errorf("service: %w", parking.ErrNoAvailability), http.StatusConflict},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondErr(c, tc.err)

		if w.Code != tc.want {
			t.Fatalf("respondErr(%v) = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if v := parseIntDefault("", 10); v != 10 {
		t.Fatalf("expected default, got %d", v)
	}
	if v := parseIntDefault("7", 10); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if v := parseIntDefault("junk", 10); v != 10 {
		t.Fatalf("expected default on junk, got %d", v)
	}
}
