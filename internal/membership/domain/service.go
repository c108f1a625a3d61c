package domain

import "context"

type ListMembershipTypeRequest struct {
	Name    string
	SortBy  string
	OrderBy string
}

type ListMembershipTypeResponse struct {
	MembershipTypes []MembershipType `json:"membership_types"`
}

type Service interface {
	List(ctx context.Context, req ListMembershipTypeRequest) (ListMembershipTypeResponse, error)
	Lookup(ctx context.Context, code int) (MembershipType, error)
	// Policy snapshots the current pricing config; hot reloads take
	// effect on the next call.
	Policy() DiscountPolicy
}
