package service

import (
	postgres "github.com/kirinyoku/park-go/internal/repository/postgres"
	redis "github.com/kirinyoku/park-go/internal/repository/redis"
	"github.com/kirinyoku/park-go/internal/service/auth"
	"github.com/kirinyoku/park-go/internal/service/facilities"
	"github.com/kirinyoku/park-go/internal/service/parking"
	"github.com/kirinyoku/park-go/internal/service/vehicles"
)

type Services struct {
	Auth       *auth.Service
	Facilities *facilities.Service
	Vehicles   *vehicles.Service
	Parking    *parking.Service
}

type Config struct {
	Auth       auth.Config
	Facilities facilities.Config
	Vehicles   vehicles.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.FacilitiesPubSub,
	limiter *redis.EntryLimiter,
	cfg Config,
) *Services {
	return &Services{
		Auth:       auth.New(store, cfg.Auth),
		Facilities: facilities.New(store, cache, pubsub, cfg.Facilities),
		Vehicles:   vehicles.New(store, cfg.Vehicles),
		Parking:    parking.New(store, cache, pubsub, limiter),
	}
}
