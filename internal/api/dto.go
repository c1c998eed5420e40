package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"buildops/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type clientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
}

type serviceRequest struct {
	Name       string           `json:"name" validate:"required,max=200"`
	HourlyRate *decimal.Decimal `json:"hourlyRate" validate:"required"`
}

type inventoryRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"required,max=100"`
	Quantity *int64 `json:"quantity" validate:"required,gte=0"`
	Status   string `json:"status" validate:"omitempty,oneof='Available' 'In Use' 'Maintenance' 'Out of Stock'"`
	Notes    string `json:"notes"`
}

type lineItemRequest struct {
	ServiceID int64           `json:"serviceId" validate:"required,gt=0"`
	Hours     decimal.Decimal `json:"hours"`
}

type bookingRequest struct {
	ClientID int64             `json:"clientId" validate:"required,gt=0"`
	Date     string            `json:"date" validate:"required"`
	Services []lineItemRequest `json:"services" validate:"required,min=1,dive"`
	Notes    string            `json:"notes"`
	Status   string            `json:"status" validate:"omitempty,oneof=Scheduled Completed Cancelled"`
}

func (b bookingRequest) lineItems() []models.LineItem {
	out := make([]models.LineItem, 0, len(b.Services))
	for _, item := range b.Services {
		out = append(out, models.LineItem{ServiceID: item.ServiceID, Hours: item.Hours})
	}
	return out
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=Scheduled Completed Cancelled"`
}

// requestError is a malformed body or a failed struct validation.
type requestError struct {
	status int
	msg    string
	fields map[string]string
}

func (e *requestError) Error() string {
	return e.msg
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &requestError{status: http.StatusBadRequest, msg: "invalid JSON body: " + err.Error()}
	}

	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &requestError{status: http.StatusBadRequest, msg: err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	return &requestError{
		status: http.StatusUnprocessableEntity,
		msg:    fmt.Sprintf("validation failed on %d field(s)", len(fields)),
		fields: fields,
	}
}
