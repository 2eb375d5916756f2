package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/internal/addresses"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

type addressHandlers = ownedHandlers[addresses.AddressDTO, addresses.CreateAddressRequest, addresses.UpdateAddressRequest]

func newAddressHandlers(svc addresses.Service, logg *logger.Logger) addressHandlers {
	return addressHandlers{svc: svc, name: "address", logg: logg}
}

func AddressList(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return newAddressHandlers(svc, logg).list()
}

func AddressGet(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return newAddressHandlers(svc, logg).get()
}

func AddressCreate(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return newAddressHandlers(svc, logg).create()
}

func AddressUpdate(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return newAddressHandlers(svc, logg).update()
}

func AddressDelete(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return newAddressHandlers(svc, logg).delete()
}

// AddressSetDefault clears the previous default in the same transaction.
func AddressSetDefault(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return newAddressHandlers(svc, logg).setDefault()
}
