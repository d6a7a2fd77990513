package router

import (
	"chalet/internal/handlers/booking"
	"chalet/internal/handlers/guest"
	"chalet/internal/handlers/payment"
	"chalet/internal/handlers/property"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Property property.Handler
	Booking  booking.Handler
	Payment  payment.Handler
	Guest    guest.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Property.Router(routerGroup)
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
		r.DomainHandlers.Guest.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
