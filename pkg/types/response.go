package types

import "github.com/angelmondragon/storefront-api/pkg/pagination"

type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type ListEnvelope struct {
	Success    bool            `json:"success"`
	Data       any             `json:"data"`
	Pagination pagination.Meta `json:"pagination"`
}

type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Errors  any    `json:"errors,omitempty"`
}
