//go:build wireinject
// +build wireinject

package di

import (
	"chalet/config"
	"chalet/infras/jwt"
	"chalet/infras/kafka"
	"chalet/infras/otel"
	"chalet/infras/postgres"
	"chalet/infras/redis"
	"chalet/infras/s3"
	bookingHandler "chalet/internal/handlers/booking"
	guestHandler "chalet/internal/handlers/guest"
	moderationHandler "chalet/internal/handlers/moderation"
	paymentHandler "chalet/internal/handlers/payment"
	propertyHandler "chalet/internal/handlers/property"
	"chalet/permissions"
	"chalet/shared/cache"
	"chalet/transport/http"
	"chalet/transport/http/middleware"
	"chalet/transport/http/router"

	bookingEvent "chalet/internal/domains/booking/event"
	bookingRepository "chalet/internal/domains/booking/repository"
	bookingService "chalet/internal/domains/booking/service"
	guestRepository "chalet/internal/domains/guest/repository"
	guestService "chalet/internal/domains/guest/service"
	paymentRepository "chalet/internal/domains/payment/repository"
	paymentService "chalet/internal/domains/payment/service"
	propertyRepository "chalet/internal/domains/property/repository"
	propertyService "chalet/internal/domains/property/service"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
	middleware.NewThrottle,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	bookingEvent.NewPublisher,
)

var propertyDomain = wire.NewSet(
	propertyRepository.New,
	propertyService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentRepository.New,
	paymentService.New,
)

var guestDomain = wire.NewSet(
	guestRepository.New,
	guestService.New,
)

var domains = wire.NewSet(
	propertyDomain,
	bookingDomain,
	paymentDomain,
	guestDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	propertyHandler.New,
	bookingHandler.New,
	paymentHandler.New,
	guestHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

// InitializeWorker builds the payment moderation consumer. It needs no http layer.
func InitializeWorker() *moderationHandler.Handler {
	wire.Build(
		config.Get,
		infrastructures,
		sharedHelpers,
		bookingRepository.New,
		paymentDomain,
		moderationHandler.New,
	)

	return &moderationHandler.Handler{}
}
