package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePropertyRequest is the body of POST /properties
type CreatePropertyRequest struct {
	Title       string          `json:"title" validate:"required,min=3,max=255"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=5000"`
	Address     string          `json:"address" validate:"required,max=512"`
	City        string          `json:"city" validate:"required,max=128"`
	Type        string          `json:"type" validate:"required,oneof=apartment house commercial land"`
	Status      string          `json:"status" validate:"omitempty,oneof=available rented maintenance"`
	Bedrooms    int             `json:"bedrooms" validate:"min=0,max=100"`
	Bathrooms   int             `json:"bathrooms" validate:"min=0,max=100"`
	AreaSqm     decimal.Decimal `json:"area_sqm"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	LandlordID  string          `json:"landlord_id" validate:"required,max=32"`
	AgentID     *string         `json:"agent_id,omitempty" validate:"omitempty,max=32"`
	PhotoURLs   []string        `json:"photo_urls" validate:"omitempty,max=50,dive,url"`
}

// UpdatePropertyRequest is the body of PUT /properties/:id
type UpdatePropertyRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Address     *string          `json:"address,omitempty" validate:"omitempty,max=512"`
	City        *string          `json:"city,omitempty" validate:"omitempty,max=128"`
	Type        *string          `json:"type,omitempty" validate:"omitempty,oneof=apartment house commercial land"`
	Status      *string          `json:"status,omitempty" validate:"omitempty,oneof=available rented maintenance"`
	Bedrooms    *int             `json:"bedrooms,omitempty" validate:"omitempty,min=0,max=100"`
	Bathrooms   *int             `json:"bathrooms,omitempty" validate:"omitempty,min=0,max=100"`
	AreaSqm     *decimal.Decimal `json:"area_sqm,omitempty"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent,omitempty"`
	AgentID     *string          `json:"agent_id,omitempty" validate:"omitempty,max=32"`
	PhotoURLs   []string         `json:"photo_urls,omitempty" validate:"omitempty,max=50,dive,url"`
}

// ListPropertiesRequest filters property listings
type ListPropertiesRequest struct {
	PaginationRequest
	SortRequest
	Search        *string          `json:"search,omitempty" query:"search"`
	Status        *string          `json:"status,omitempty" query:"status"`
	Type          *string          `json:"type,omitempty" query:"type"`
	City          *string          `json:"city,omitempty" query:"city"`
	LandlordID    *string          `json:"landlord_id,omitempty" query:"landlord_id"`
	AgentID       *string          `json:"agent_id,omitempty" query:"agent_id"`
	MinRent       *decimal.Decimal `json:"min_rent,omitempty" query:"min_rent"`
	MaxRent       *decimal.Decimal `json:"max_rent,omitempty" query:"max_rent"`
	CreatedAfter  *time.Time       `json:"created_after,omitempty" query:"created_after"`
	CreatedBefore *time.Time       `json:"created_before,omitempty" query:"created_before"`
}

// PropertyDTO is the API representation of a property
type PropertyDTO struct {
	ID          string          `json:"id"`
	UUID        string          `json:"uuid"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Bedrooms    int             `json:"bedrooms"`
	Bathrooms   int             `json:"bathrooms"`
	AreaSqm     decimal.Decimal `json:"area_sqm"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	PhotoURLs   []string        `json:"photo_urls"`
	LandlordID  string          `json:"landlord_id"`
	AgentID     *string         `json:"agent_id,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type ListPropertiesResponse struct {
	Items      []PropertyDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
