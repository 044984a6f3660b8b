package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContactRequest holds the contact fields accepted for every party
type ContactRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=255"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Phone    string  `json:"phone" validate:"omitempty,max=32"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateContactRequest holds optional contact changes
type UpdateContactRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CreateLandlordRequest is the body of POST /landlords
type CreateLandlordRequest struct {
	ContactRequest
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=255"`
	TaxNumber   *string `json:"tax_number,omitempty" validate:"omitempty,max=64"`
}

// UpdateLandlordRequest is the body of PUT /landlords/:id
type UpdateLandlordRequest struct {
	UpdateContactRequest
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=255"`
	TaxNumber   *string `json:"tax_number,omitempty" validate:"omitempty,max=64"`
}

// CreateTenantRequest is the body of POST /tenants
type CreateTenantRequest struct {
	ContactRequest
	PropertyID  *string          `json:"property_id,omitempty" validate:"omitempty,max=32"`
	LeaseStart  *time.Time       `json:"lease_start,omitempty"`
	LeaseEnd    *time.Time       `json:"lease_end,omitempty"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent,omitempty"`
}

// UpdateTenantRequest is the body of PUT /tenants/:id
type UpdateTenantRequest struct {
	UpdateContactRequest
	PropertyID  *string          `json:"property_id,omitempty" validate:"omitempty,max=32"`
	LeaseStart  *time.Time       `json:"lease_start,omitempty"`
	LeaseEnd    *time.Time       `json:"lease_end,omitempty"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent,omitempty"`
}

// CreateAgentRequest is the body of POST /agents
type CreateAgentRequest struct {
	ContactRequest
	Region *string `json:"region,omitempty" validate:"omitempty,max=128"`
}

// UpdateAgentRequest is the body of PUT /agents/:id
type UpdateAgentRequest struct {
	UpdateContactRequest
	Region   *string `json:"region,omitempty" validate:"omitempty,max=128"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ListPartiesRequest filters landlord, tenant and agent listings
type ListPartiesRequest struct {
	PaginationRequest
	SortRequest
	Search        *string    `json:"search,omitempty" query:"search"`
	PropertyID    *string    `json:"property_id,omitempty" query:"property_id"`
	CreatedAfter  *time.Time `json:"created_after,omitempty" query:"created_after"`
	CreatedBefore *time.Time `json:"created_before,omitempty" query:"created_before"`
}

// ContactDTO is the contact part of party responses
type ContactDTO struct {
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Notes    *string `json:"notes,omitempty"`
}

// LandlordDTO is the API representation of a landlord
type LandlordDTO struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
	ContactDTO
	CompanyName *string `json:"company_name,omitempty"`
	TaxNumber   *string `json:"tax_number,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// TenantDTO is the API representation of a tenant
type TenantDTO struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
	ContactDTO
	PropertyID  *string          `json:"property_id,omitempty"`
	LeaseStart  *string          `json:"lease_start,omitempty"`
	LeaseEnd    *string          `json:"lease_end,omitempty"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// AgentDTO is the API representation of a field agent
type AgentDTO struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
	ContactDTO
	Region    *string `json:"region,omitempty"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ListLandlordsResponse struct {
	Items      []LandlordDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

type ListTenantsResponse struct {
	Items      []TenantDTO    `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

type ListAgentsResponse struct {
	Items      []AgentDTO     `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
