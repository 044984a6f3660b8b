package businessflow

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/app/services"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/sequence"
	"github.com/amirphl/estatedesk/utils"
	"github.com/shopspring/decimal"
)

// TenantFlow handles tenant use cases
type TenantFlow interface {
	Create(ctx context.Context, req *dto.CreateTenantRequest, metadata *ClientMetadata) (*dto.TenantDTO, error)
	Get(ctx context.Context, id string) (*dto.TenantDTO, error)
	List(ctx context.Context, req *dto.ListPartiesRequest) (*dto.ListTenantsResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateTenantRequest, metadata *ClientMetadata) (*dto.TenantDTO, error)
	Delete(ctx context.Context, id string, metadata *ClientMetadata) error
}

type TenantFlowImpl struct {
	tenantRepo   repository.TenantRepository
	propertyRepo repository.PropertyRepository
	transactor   repository.Transactor
	allocator    *sequence.Allocator
	idempotency  services.IdempotencyStore
	emailFlow    EmailFlow
}

func NewTenantFlow(
	tenantRepo repository.TenantRepository,
	propertyRepo repository.PropertyRepository,
	transactor repository.Transactor,
	allocator *sequence.Allocator,
	idempotency services.IdempotencyStore,
	emailFlow EmailFlow,
) TenantFlow {
	return &TenantFlowImpl{
		tenantRepo:   tenantRepo,
		propertyRepo: propertyRepo,
		transactor:   transactor,
		allocator:    allocator,
		idempotency:  idempotency,
		emailFlow:    emailFlow,
	}
}

func validateLease(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return NewBusinessError("LEASE_DATES_INVALID", "Lease end must be after lease start", ErrLeaseDatesInvalid)
	}
	return nil
}

func validateRent(rent *decimal.Decimal) error {
	if rent != nil && rent.IsNegative() {
		return NewBusinessError("NEGATIVE_AMOUNT", "Monthly rent cannot be negative", ErrNegativeAmount)
	}
	return nil
}

// occupy marks the leased property as rented. It runs inside the caller's transaction.
func (f *TenantFlowImpl) occupy(ctx context.Context, propertyID string) (*models.Property, error) {
	property, err := f.propertyRepo.ByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, NewBusinessError("PROPERTY_NOT_FOUND", "Property not found", ErrPropertyNotFound)
	}
	if property.Status != models.PropertyStatusRented {
		property.Status = models.PropertyStatusRented
		property.UpdatedAt = utils.UTCNow()
		if err := f.propertyRepo.Update(ctx, property); err != nil {
			return nil, err
		}
	}
	return property, nil
}

func (f *TenantFlowImpl) Create(ctx context.Context, req *dto.CreateTenantRequest, metadata *ClientMetadata) (*dto.TenantDTO, error) {
	if req == nil {
		return nil, NewBusinessError("TENANT_VALIDATION_FAILED", "Create tenant validation failed", ErrFullNameRequired)
	}
	contact, err := newContact(req.ContactRequest)
	if err != nil {
		return nil, err
	}
	if err := validateLease(req.LeaseStart, req.LeaseEnd); err != nil {
		return nil, err
	}
	if err := validateRent(req.MonthlyRent); err != nil {
		return nil, err
	}
	propertyID := trimmedPtr(req.PropertyID)

	return idempotent(ctx, f.idempotency, "tenant", idempotencyKeyOf(metadata),
		func(ctx context.Context, id string) (*dto.TenantDTO, error) {
			return f.Get(ctx, id)
		},
		func(ctx context.Context) (*dto.TenantDTO, string, error) {
			tenant, err := sequence.AllocateAndCreate(ctx, f.allocator, models.EntityTenant,
				func(ctx context.Context, id string) (*models.Tenant, error) {
					existing, err := f.tenantRepo.ByEmail(ctx, contact.Email)
					if err != nil {
						return nil, err
					}
					if existing != nil {
						return nil, ErrEmailAlreadyExists
					}

					t := &models.Tenant{
						ID:         id,
						Contact:    contact,
						PropertyID: propertyID,
						LeaseStart: utils.TimeToUTCPtr(req.LeaseStart),
						LeaseEnd:   utils.TimeToUTCPtr(req.LeaseEnd),
					}
					if req.MonthlyRent != nil {
						t.MonthlyRent = decimal.NewNullDecimal(*req.MonthlyRent)
					}

					if propertyID != nil {
						property, err := f.occupy(ctx, *propertyID)
						if err != nil {
							return nil, err
						}
						if !t.MonthlyRent.Valid {
							t.MonthlyRent = decimal.NewNullDecimal(property.MonthlyRent)
						}
					}

					if err := f.tenantRepo.Save(ctx, t); err != nil {
						return nil, emailTaken(err)
					}
					return t, nil
				})
			if err != nil {
				return nil, "", creationError("TENANT_CREATE_FAILED", "Failed to create tenant", err)
			}

			if f.emailFlow != nil {
				f.emailFlow.SendWelcome(ctx, EmailTemplateWelcomeTenant, tenant.Email, tenant.FullName, tenant.ID)
			}

			resp := ToTenantDTO(*tenant)
			return &resp, tenant.ID, nil
		})
}

func (f *TenantFlowImpl) load(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := f.tenantRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to lookup tenant", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
	}
	return tenant, nil
}

func (f *TenantFlowImpl) Get(ctx context.Context, id string) (*dto.TenantDTO, error) {
	tenant, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTenantDTO(*tenant)
	return &resp, nil
}

func (f *TenantFlowImpl) List(ctx context.Context, req *dto.ListPartiesRequest) (*dto.ListTenantsResponse, error) {
	if req == nil {
		req = &dto.ListPartiesRequest{}
	}
	page, size, offset, err := pageParams(req.PaginationRequest)
	if err != nil {
		return nil, err
	}
	orderBy, err := orderClause(req.SortRequest, partySortColumns, "created_at")
	if err != nil {
		return nil, err
	}
	filter, err := partyFilter(req)
	if err != nil {
		return nil, err
	}

	total, err := f.tenantRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("TENANT_COUNT_FAILED", "Failed to count tenants", err)
	}
	rows, err := f.tenantRepo.ByFilter(ctx, filter, orderBy, size, offset)
	if err != nil {
		return nil, NewBusinessError("TENANT_LIST_FAILED", "Failed to list tenants", err)
	}

	items := make([]dto.TenantDTO, 0, len(rows))
	for _, t := range rows {
		items = append(items, ToTenantDTO(*t))
	}
	return &dto.ListTenantsResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

func (f *TenantFlowImpl) Update(ctx context.Context, id string, req *dto.UpdateTenantRequest, metadata *ClientMetadata) (*dto.TenantDTO, error) {
	if req == nil {
		return f.Get(ctx, id)
	}
	if err := validateRent(req.MonthlyRent); err != nil {
		return nil, err
	}

	var updated *models.Tenant
	err := f.transactor.Within(ctx, func(ctx context.Context) error {
		tenant, err := f.load(ctx, id)
		if err != nil {
			return err
		}

		emailChanged, err := applyContactUpdate(&tenant.Contact, req.UpdateContactRequest)
		if err != nil {
			return err
		}
		if req.LeaseStart != nil {
			tenant.LeaseStart = utils.TimeToUTCPtr(req.LeaseStart)
		}
		if req.LeaseEnd != nil {
			tenant.LeaseEnd = utils.TimeToUTCPtr(req.LeaseEnd)
		}
		if err := validateLease(tenant.LeaseStart, tenant.LeaseEnd); err != nil {
			return err
		}
		if req.MonthlyRent != nil {
			tenant.MonthlyRent = decimal.NewNullDecimal(*req.MonthlyRent)
		}
		if pid := trimmedPtr(req.PropertyID); pid != nil && (tenant.PropertyID == nil || *tenant.PropertyID != *pid) {
			if _, err := f.occupy(ctx, *pid); err != nil {
				return err
			}
			tenant.PropertyID = pid
		}

		if emailChanged {
			other, err := f.tenantRepo.ByEmail(ctx, tenant.Email)
			if err != nil {
				return err
			}
			if other != nil && other.ID != tenant.ID {
				return ErrEmailAlreadyExists
			}
		}

		tenant.UpdatedAt = utils.UTCNow()
		if err := f.tenantRepo.Update(ctx, tenant); err != nil {
			return emailTaken(err)
		}
		updated = tenant
		return nil
	})
	if err != nil {
		return nil, creationError("TENANT_UPDATE_FAILED", "Failed to update tenant", err)
	}

	resp := ToTenantDTO(*updated)
	return &resp, nil
}

func (f *TenantFlowImpl) Delete(ctx context.Context, id string, metadata *ClientMetadata) error {
	if err := f.tenantRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
		}
		return NewBusinessError("TENANT_DELETE_FAILED", "Failed to delete tenant", err)
	}
	return nil
}
