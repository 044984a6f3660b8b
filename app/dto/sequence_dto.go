package dto

// SequenceCounterDTO is the API representation of a per-type, per-month counter
type SequenceCounterDTO struct {
	Key        string `json:"key"`
	EntityType string `json:"entity_type"`
	YearMonth  string `json:"year_month"`
	Value      int64  `json:"value"`
	LastID     string `json:"last_id"`
	UpdatedAt  string `json:"updated_at"`
}

// ListSequenceCountersRequest filters counter listings
type ListSequenceCountersRequest struct {
	PaginationRequest
	EntityType *string `json:"entity_type,omitempty" query:"entity_type"`
	YearMonth  *string `json:"year_month,omitempty" query:"year_month"`
}

type ListSequenceCountersResponse struct {
	Items      []SequenceCounterDTO `json:"items"`
	Pagination PaginationInfo       `json:"pagination"`
}

// PeekSequenceRequest selects one counter; an empty YearMonth means the current month
type PeekSequenceRequest struct {
	EntityType string `json:"entity_type" query:"entity_type" validate:"required,min=2,max=64"`
	YearMonth  string `json:"year_month" query:"year_month" validate:"omitempty,len=6,numeric"`
}

// ParseIDResponse describes a decomposed identifier
type ParseIDResponse struct {
	ID         string `json:"id"`
	Prefix     string `json:"prefix"`
	EntityType string `json:"entity_type,omitempty"`
	YearMonth  string `json:"year_month"`
	Sequence   int64  `json:"sequence"`
	Issued     bool   `json:"issued"`
}
