package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/park-go/internal/domain"
	redisrepo "github.com/kirinyoku/park-go/internal/repository/redis"
	"github.com/kirinyoku/park-go/internal/service"
	"github.com/kirinyoku/park-go/internal/service/auth"
	"github.com/kirinyoku/park-go/internal/service/facilities"
	"github.com/kirinyoku/park-go/internal/service/parking"
	"github.com/kirinyoku/park-go/internal/service/vehicles"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.POST("/auth/register", handleRegister(svcs))
	r.POST("/auth/login", handleLogin(svcs))

	authed := r.Group("", AuthMiddleware(svcs.Auth.Tokens()))
	{
		authed.PUT("/users/me", handleUpdateProfile(svcs))

		authed.POST("/vehicles", handleCreateVehicle(svcs))
		authed.GET("/vehicles", handleListVehicles(svcs))
		authed.PUT("/vehicles/:id", handleUpdateVehicle(svcs))
		authed.DELETE("/vehicles/:id", handleDeleteVehicle(svcs))

		authed.GET("/facilities", handleListFacilities(svcs))
		authed.GET("/facilities/:id", handleGetFacility(svcs))
		authed.GET("/facilities/:id/availability", handleGetAvailability(svcs))
		authed.GET("/facilities/:id/lots", handleListLots(svcs))

		authed.POST("/sessions", handleStartSession(svcs, idem))
		authed.GET("/sessions/:id", handleGetSession(svcs))

		admin := authed.Group("", RequireAdmin())
		{
			admin.POST("/facilities", handleCreateFacility(svcs))
			admin.PUT("/facilities/:id", handleUpdateFacility(svcs))
			admin.DELETE("/facilities/:id", handleDeleteFacility(svcs))
			admin.GET("/facilities/:id/sessions", handleSessionsByFacility(svcs))

			admin.POST("/sessions/:id/end", handleEndSession(svcs))
			admin.GET("/sessions/active", handleActiveSessions(svcs))
		}
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Register user
// @Param    req body  RegisterRequest true "payload"
// @Success  201 {object} domain.User
// @Failure  409 {object} ErrorResponse
// @Router   /auth/register [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		user, err := svcs.Auth.Register(
			c.Request.Context(),
			req.Email,
			req.FirstName,
			req.LastName,
			req.Password,
			domain.Role(req.Role),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

// @Summary  Login
// @Param    req body  LoginRequest true "payload"
// @Success  200 {object} LoginResponse
// @Failure  401 {object} ErrorResponse
// @Router   /auth/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		user, token, err := svcs.Auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, LoginResponse{Token: token, User: user})
	}
}

// @Summary  Update own profile
// @Param    req body  UpdateProfileRequest true "payload"
// @Success  200 {object} domain.User
// @Router   /users/me [put]
func handleUpdateProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		user, err := svcs.Auth.UpdateProfile(
			c.Request.Context(),
			callerID(c),
			req.FirstName,
			req.LastName,
			req.OldPassword,
			req.NewPassword,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// @Summary  Register vehicle
// @Param    req body  CreateVehicleRequest true "payload"
// @Success  201 {object} domain.Vehicle
// @Failure  409 {object} ErrorResponse
// @Router   /vehicles [post]
func handleCreateVehicle(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateVehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		vehicle, err := svcs.Vehicles.Register(c.Request.Context(), &domain.Vehicle{
			UserID: callerID(c),
			Plate:  req.Plate,
			Model:  req.Model,
			Type:   req.Type,
			Size:   req.Size,
			Color:  req.Color,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, vehicle)
	}
}

// @Summary  List own vehicles
// @Param    page   query  int     false "page"
// @Param    limit  query  int     false "page size"
// @Param    search query  string  false "plate/model filter"
// @Success  200 {object} map[string]any
// @Router   /vehicles [get]
func handleListVehicles(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := parseIntDefault(c.Query("page"), 1)
		limit := parseIntDefault(c.Query("limit"), 10)
		search := strings.TrimSpace(c.Query("search"))

		list, total, err := svcs.Vehicles.ListMine(c.Request.Context(), callerID(c), search, page, limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"vehicles": list,
			"meta":     ListMeta{Page: page, Limit: limit, Total: total, Search: search},
		})
	}
}

// @Summary  Update vehicle
// @Param    id  path  int  true  "Vehicle ID"
// @Param    req body  CreateVehicleRequest true "payload"
// @Success  200 {object} domain.Vehicle
// @Router   /vehicles/{id} [put]
func handleUpdateVehicle(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateVehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		v := domain.Vehicle{
			ID:     id,
			UserID: callerID(c),
			Plate:  req.Plate,
			Model:  req.Model,
			Type:   req.Type,
			Size:   req.Size,
			Color:  req.Color,
		}
		if err := svcs.Vehicles.Update(c.Request.Context(), callerID(c), &v); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// @Summary  Delete vehicle
// @Param    id  path  int  true  "Vehicle ID"
// @Success  204
// @Router   /vehicles/{id} [delete]
func handleDeleteVehicle(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Vehicles.Delete(c.Request.Context(), callerID(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List facilities
// @Param    page   query  int     false "page"
// @Param    limit  query  int     false "page size"
// @Param    search query  string  false "code/name/location filter"
// @Success  200 {object} map[string]any
// @Router   /facilities [get]
func handleListFacilities(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := parseIntDefault(c.Query("page"), 1)
		limit := parseIntDefault(c.Query("limit"), 10)
		search := strings.TrimSpace(c.Query("search"))

		list, total, err := svcs.Facilities.List(c.Request.Context(), search, page, limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"facilities": list,
			"meta":       ListMeta{Page: page, Limit: limit, Total: total, Search: search},
		})
	}
}

// @Summary  Get facility with lots
// @Param    id  path  int  true  "Facility ID"
// @Success  200 {object} domain.FacilityWithLots
// @Failure  404 {object} ErrorResponse
// @Router   /facilities/{id} [get]
func handleGetFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		f, err := svcs.Facilities.GetWithLots(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCached(c, f, facilityMaxAge)
	}
}

// @Summary  Get availability counters
// @Param    id  path  int  true  "Facility ID"
// @Success  200 {object} domain.FacilityCounts
// @Router   /facilities/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		cnt, err := svcs.Facilities.Availability(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCached(c, cnt, availabilityMaxAge)
	}
}

// @Summary  List facility lots
// @Param    id    path   int     true  "Facility ID"
// @Param    only  query  string  false "available"
// @Success  200 {array} domain.Lot
// @Router   /facilities/{id}/lots [get]
func handleListLots(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		onlyFree := c.Query("only") == "available" || c.Query("only_available") == "true"

		lots, err := svcs.Facilities.Lots(c.Request.Context(), id, onlyFree)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCached(c, lots, availabilityMaxAge)
	}
}

// @Summary  Create facility and init lots
// @Param    req body  CreateFacilityRequest true "payload"
// @Success  201 {object} domain.FacilityWithLots
// @Failure  409 {object} ErrorResponse
// @Router   /facilities [post]
func handleCreateFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateFacilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		created, err := svcs.Facilities.Create(c.Request.Context(), &domain.Facility{
			Code:        req.Code,
			Name:        req.Name,
			Location:    req.Location,
			TotalSpaces: req.TotalSpaces,
			FeePerHour:  req.FeePerHour,
			Status:      domain.FacilityStatus(req.Status),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// @Summary  Update facility
// @Param    id  path  int  true  "Facility ID"
// @Param    req body  UpdateFacilityRequest true "payload"
// @Success  200 {object} domain.Facility
// @Router   /facilities/{id} [put]
func handleUpdateFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateFacilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		f := domain.Facility{
			ID:         id,
			Code:       req.Code,
			Name:       req.Name,
			Location:   req.Location,
			FeePerHour: req.FeePerHour,
			Status:     domain.FacilityStatus(req.Status),
		}
		if err := svcs.Facilities.Update(c.Request.Context(), &f); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, f)
	}
}

// @Summary  Delete facility
// @Param    id  path  int  true  "Facility ID"
// @Success  204
// @Router   /facilities/{id} [delete]
func handleDeleteFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Facilities.Delete(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Start parking session (idempotent)
// @Param    req body  StartSessionRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.SessionStart
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "no availability / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /sessions [post]
func handleStartSession(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemSessionStart(req.FacilityID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		userID := req.UserID
		if userID == 0 {
			userID = callerID(c)
		}

		started, err := svcs.Parking.StartSession(
			c.Request.Context(),
			userID,
			req.VehicleID,
			req.FacilityID,
			c.ClientIP(),
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if isRateLimitedErr(err) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: err.Error()},
				)
				return
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(started)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, started)
	}
}

// @Summary  End parking session
// @Param    id  path  int  true  "Session ID"
// @Success  200 {object} domain.SessionEnd
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "not active"
// @Router   /sessions/{id}/end [post]
func handleEndSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		ended, err := svcs.Parking.EndSession(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ended)
	}
}

// @Summary  List active sessions
// @Success  200 {array} domain.Session
// @Router   /sessions/active [get]
func handleActiveSessions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := svcs.Parking.ActiveSessions(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

// @Summary  Get session with ticket and bill
// @Param    id  path  int  true  "Session ID"
// @Success  200 {object} domain.SessionDetails
// @Failure  404 {object} ErrorResponse
// @Router   /sessions/{id} [get]
func handleGetSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		details, err := svcs.Parking.SessionDetails(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, details)
	}
}

// @Summary  List facility sessions
// @Param    id      path   int     true  "Facility ID"
// @Param    status  query  string  false "ACTIVE|COMPLETED"
// @Param    date    query  string  false "RFC3339 day filter"
// @Success  200 {array} domain.Session
// @Router   /facilities/{id}/sessions [get]
func handleSessionsByFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		status := domain.SessionStatus(c.Query("status"))
		switch status {
		case "", domain.SessionActive, domain.SessionCompleted:
		default:
			badRequest(c, "invalid status")
			return
		}

		var day *time.Time
		if d := c.Query("date"); d != "" {
			parsed, err := parseRFC3339(d)
			if err != nil {
				parsed, err = time.Parse("2006-01-02", d)
			}
			if err != nil {
				badRequest(c, "invalid date")
				return
			}
			day = &parsed
		}

		sessions, err := svcs.Parking.SessionsByFacility(c.Request.Context(), id, status, day)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func isRateLimitedErr(err error) bool {
	return errors.Is(err, parking.ErrRateLimited)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// auth service
	case errors.Is(err, auth.ErrEmailConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "email already registered"})
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid email or password"})
		return
	case errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	case errors.Is(err, auth.ErrWrongOldPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "old password is incorrect"})
		return
	// vehicles service
	case errors.Is(err, vehicles.ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "vehicle not found"})
		return
	case errors.Is(err, vehicles.ErrPlateConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "plate already registered"})
		return
	case errors.Is(err, vehicles.ErrInvalidType), errors.Is(err, vehicles.ErrInvalidSize):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	// facilities service
	case errors.Is(err, facilities.ErrFacilityNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "facility not found"})
		return
	case errors.Is(err, facilities.ErrCodeConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "facility code already exists"})
		return
	case errors.Is(err, facilities.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid facility status"})
		return
	// parking service
	case errors.Is(err, parking.ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "vehicle not found"})
		return
	case errors.Is(err, parking.ErrFacilityNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "facility not found"})
		return
	case errors.Is(err, parking.ErrNoAvailability):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no available parking spaces"})
		return
	case errors.Is(err, parking.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	case errors.Is(err, parking.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "session is not active"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
