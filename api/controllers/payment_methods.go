package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/internal/paymentmethods"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

type paymentMethodHandlers = ownedHandlers[paymentmethods.PaymentMethodDTO, paymentmethods.CreatePaymentMethodRequest, paymentmethods.UpdatePaymentMethodRequest]

func newPaymentMethodHandlers(svc paymentmethods.Service, logg *logger.Logger) paymentMethodHandlers {
	return paymentMethodHandlers{svc: svc, name: "payment method", logg: logg}
}

func PaymentMethodList(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return newPaymentMethodHandlers(svc, logg).list()
}

func PaymentMethodGet(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return newPaymentMethodHandlers(svc, logg).get()
}

func PaymentMethodCreate(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return newPaymentMethodHandlers(svc, logg).create()
}

func PaymentMethodUpdate(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return newPaymentMethodHandlers(svc, logg).update()
}

func PaymentMethodDelete(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return newPaymentMethodHandlers(svc, logg).delete()
}

func PaymentMethodSetDefault(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return newPaymentMethodHandlers(svc, logg).setDefault()
}
