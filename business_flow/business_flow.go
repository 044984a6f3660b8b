// Package businessflow contains the core business logic and use cases of the property management backend
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/app/services"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information attached to a request
type ClientMetadata struct {
	IPAddress      string `json:"ip_address"`
	UserAgent      string `json:"user_agent"`
	RequestID      string `json:"request_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	AdminID        uint   `json:"admin_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetIdempotencyKey sets the client retry key of a create request
func (cm *ClientMetadata) SetIdempotencyKey(key string) {
	cm.IdempotencyKey = strings.TrimSpace(key)
}

func idempotencyKeyOf(metadata *ClientMetadata) string {
	if metadata == nil {
		return ""
	}
	return metadata.IdempotencyKey
}

// idempotent runs create at most once per (scope, key). A replayed key loads the entity
// the first request produced instead of creating another one.
func idempotent[T any](
	ctx context.Context,
	store services.IdempotencyStore,
	scope, key string,
	load func(ctx context.Context, id string) (T, error),
	create func(ctx context.Context) (T, string, error),
) (T, error) {
	var zero T
	if store == nil || key == "" {
		v, _, err := create(ctx)
		return v, err
	}

	entityID, reserved, err := store.Reserve(ctx, scope, key)
	if err != nil {
		if errors.Is(err, services.ErrIdempotencyPending) {
			return zero, NewBusinessError("IDEMPOTENCY_IN_PROGRESS", "A request with this idempotency key is still in progress", ErrIdempotencyInProgress)
		}
		log.Printf("idempotency store unavailable for %s: %v", scope, err)
		v, _, err := create(ctx)
		return v, err
	}
	if !reserved {
		return load(ctx, entityID)
	}

	v, id, err := create(ctx)
	if err != nil {
		if relErr := store.Release(ctx, scope, key); relErr != nil {
			log.Printf("failed to release idempotency key for %s: %v", scope, relErr)
		}
		return zero, err
	}
	if err := store.Complete(ctx, scope, key, id); err != nil {
		log.Printf("failed to complete idempotency key for %s: %v", scope, err)
	}
	return v, nil
}

// pageParams validates pagination input and returns page, page size and offset
func pageParams(p dto.PaginationRequest) (int, int, int, error) {
	page := p.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, 0, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
	}
	size := p.PageSize
	if size == 0 {
		size = utils.DefaultPageSize
	}
	if size < 1 || size > utils.MaxPageSize {
		return 0, 0, 0, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}
	return page, size, (page - 1) * size, nil
}

func paginationInfo(total int64, page, size int) dto.PaginationInfo {
	totalPages := int((total + int64(size) - 1) / int64(size))
	return dto.PaginationInfo{
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}
}

// orderClause maps a client sort request onto a whitelisted column. Ties break on id.
func orderClause(s dto.SortRequest, columns map[string]string, defaultField string) (string, error) {
	field := strings.TrimSpace(s.SortBy)
	if field == "" {
		field = defaultField
	}
	column, ok := columns[field]
	if !ok {
		return "", NewBusinessErrorf("INVALID_SORT_FIELD", "Cannot sort by %q", ErrInvalidSortField, field)
	}
	dir := "DESC"
	if strings.EqualFold(s.SortOrder, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", column, dir, dir), nil
}

func checkDateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return NewBusinessError("INVALID_DATE_RANGE", "Start date cannot be after end date", ErrStartDateAfterEndDate)
	}
	return nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toContactDTO(c models.Contact) dto.ContactDTO {
	return dto.ContactDTO{
		FullName: c.FullName,
		Email:    c.Email,
		Phone:    c.Phone,
		Notes:    c.Notes,
	}
}

// ToLandlordDTO converts a landlord model to its API representation
func ToLandlordDTO(l models.Landlord) dto.LandlordDTO {
	return dto.LandlordDTO{
		ID:          l.ID,
		UUID:        l.UUID.String(),
		ContactDTO:  toContactDTO(l.Contact),
		CompanyName: l.CompanyName,
		TaxNumber:   l.TaxNumber,
		CreatedAt:   formatTime(l.CreatedAt),
		UpdatedAt:   formatTime(l.UpdatedAt),
	}
}

// ToTenantDTO converts a tenant model to its API representation
func ToTenantDTO(t models.Tenant) dto.TenantDTO {
	out := dto.TenantDTO{
		ID:         t.ID,
		UUID:       t.UUID.String(),
		ContactDTO: toContactDTO(t.Contact),
		PropertyID: t.PropertyID,
		LeaseStart: formatTimePtr(t.LeaseStart),
		LeaseEnd:   formatTimePtr(t.LeaseEnd),
		CreatedAt:  formatTime(t.CreatedAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
	if t.MonthlyRent.Valid {
		rent := t.MonthlyRent.Decimal
		out.MonthlyRent = &rent
	}
	return out
}

// ToAgentDTO converts an agent model to its API representation
func ToAgentDTO(a models.Agent) dto.AgentDTO {
	return dto.AgentDTO{
		ID:         a.ID,
		UUID:       a.UUID.String(),
		ContactDTO: toContactDTO(a.Contact),
		Region:     a.Region,
		IsActive:   utils.IsTrue(a.IsActive),
		CreatedAt:  formatTime(a.CreatedAt),
		UpdatedAt:  formatTime(a.UpdatedAt),
	}
}

// ToPropertyDTO converts a property model to its API representation
func ToPropertyDTO(p models.Property) dto.PropertyDTO {
	photos := p.PhotoURLs
	if photos == nil {
		photos = []string{}
	}
	return dto.PropertyDTO{
		ID:          p.ID,
		UUID:        p.UUID.String(),
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		City:        p.City,
		Type:        p.Type,
		Status:      p.Status,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		AreaSqm:     p.AreaSqm,
		MonthlyRent: p.MonthlyRent,
		PhotoURLs:   photos,
		LandlordID:  p.LandlordID,
		AgentID:     p.AgentID,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

// ToAccountDTO converts an account model to its API representation
func ToAccountDTO(a models.Account) dto.AccountDTO {
	return dto.AccountDTO{
		ID:             a.ID,
		UUID:           a.UUID.String(),
		Name:           a.Name,
		Kind:           a.Kind,
		Currency:       a.Currency,
		LandlordID:     a.LandlordID,
		OpeningBalance: a.OpeningBalance,
		Balance:        a.Balance,
		AllowOverdraft: utils.IsTrue(a.AllowOverdraft),
		CreatedAt:      formatTime(a.CreatedAt),
	}
}

func toLedgerEntryDTO(kind string, e models.LedgerEntry) dto.LedgerEntryDTO {
	return dto.LedgerEntryDTO{
		ID:         e.ID,
		Kind:       kind,
		AccountID:  e.AccountID,
		Amount:     e.Amount,
		Category:   e.Category,
		PropertyID: e.PropertyID,
		Note:       e.Note,
		OccurredAt: formatTime(e.OccurredAt),
	}
}

// ToIncomeDTO converts an income to a ledger entry
func ToIncomeDTO(i models.Income) dto.LedgerEntryDTO {
	out := toLedgerEntryDTO(ledgerKindIncome, i.LedgerEntry)
	out.TenantID = i.TenantID
	return out
}

// ToExpenseDTO converts an expense to a ledger entry
func ToExpenseDTO(e models.Expense) dto.LedgerEntryDTO {
	out := toLedgerEntryDTO(ledgerKindExpense, e.LedgerEntry)
	out.Payee = e.Payee
	return out
}

// ToEmailLogDTO converts an email log row to its API representation
func ToEmailLogDTO(l models.EmailLog) dto.EmailLogDTO {
	return dto.EmailLogDTO{
		ID:        l.ID,
		Recipient: l.Recipient,
		Subject:   l.Subject,
		Template:  l.Template,
		EntityID:  l.EntityID,
		Status:    l.Status,
		Error:     l.Error,
		SentAt:    formatTime(l.SentAt),
	}
}

// ToAdminDTOModel converts an admin model to its API representation
func ToAdminDTOModel(a models.Admin) dto.AdminDTO {
	return dto.AdminDTO{
		ID:          a.ID,
		UUID:        a.UUID.String(),
		Username:    a.Username,
		IsActive:    a.IsActive,
		CreatedAt:   formatTime(a.CreatedAt),
		LastLoginAt: formatTimePtr(a.LastLoginAt),
	}
}

// ToAdminSessionDTO builds the session part of a login response
func ToAdminSessionDTO(accessToken, refreshToken string, ttl time.Duration) dto.AdminSessionDTO {
	return dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(ttl.Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    formatTime(utils.UTCNow()),
	}
}
