package dto

// ListEmailLogsRequest filters the transactional email log
type ListEmailLogsRequest struct {
	PaginationRequest
	Recipient *string `json:"recipient,omitempty" query:"recipient"`
	Status    *string `json:"status,omitempty" query:"status" validate:"omitempty,oneof=sent failed"`
	EntityID  *string `json:"entity_id,omitempty" query:"entity_id"`
}

// EmailLogDTO is the API representation of an email attempt
type EmailLogDTO struct {
	ID        uint    `json:"id"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject"`
	Template  string  `json:"template"`
	EntityID  *string `json:"entity_id,omitempty"`
	Status    string  `json:"status"`
	Error     *string `json:"error,omitempty"`
	SentAt    string  `json:"sent_at"`
}

type ListEmailLogsResponse struct {
	Items      []EmailLogDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
