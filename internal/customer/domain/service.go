package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/regi/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	Name           string `json:"name"`
	MembershipCode int    `json:"membership_code"`
}

type ListCustomerRequest struct {
	PageToken      string
	PageSize       int
	Name           string
	MembershipCode *int
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

type ListCustomerFilter struct {
	Name           string
	MembershipCode *int
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	// Delete removes the customer and every sale recorded against them,
	// line items included, in one transaction.
	Delete(ctx context.Context, id string) error
}
