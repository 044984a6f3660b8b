package businessflow

import (
	"context"
	"errors"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/app/services"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/sequence"
	"github.com/amirphl/estatedesk/utils"
)

// LandlordFlow handles landlord use cases
type LandlordFlow interface {
	Create(ctx context.Context, req *dto.CreateLandlordRequest, metadata *ClientMetadata) (*dto.LandlordDTO, error)
	Get(ctx context.Context, id string) (*dto.LandlordDTO, error)
	List(ctx context.Context, req *dto.ListPartiesRequest) (*dto.ListLandlordsResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateLandlordRequest, metadata *ClientMetadata) (*dto.LandlordDTO, error)
	Delete(ctx context.Context, id string, metadata *ClientMetadata) error
}

type LandlordFlowImpl struct {
	landlordRepo repository.LandlordRepository
	allocator    *sequence.Allocator
	idempotency  services.IdempotencyStore
	emailFlow    EmailFlow
}

func NewLandlordFlow(
	landlordRepo repository.LandlordRepository,
	allocator *sequence.Allocator,
	idempotency services.IdempotencyStore,
	emailFlow EmailFlow,
) LandlordFlow {
	return &LandlordFlowImpl{
		landlordRepo: landlordRepo,
		allocator:    allocator,
		idempotency:  idempotency,
		emailFlow:    emailFlow,
	}
}

func (f *LandlordFlowImpl) Create(ctx context.Context, req *dto.CreateLandlordRequest, metadata *ClientMetadata) (*dto.LandlordDTO, error) {
	if req == nil {
		return nil, NewBusinessError("LANDLORD_VALIDATION_FAILED", "Create landlord validation failed", ErrFullNameRequired)
	}
	contact, err := newContact(req.ContactRequest)
	if err != nil {
		return nil, err
	}

	return idempotent(ctx, f.idempotency, "landlord", idempotencyKeyOf(metadata),
		func(ctx context.Context, id string) (*dto.LandlordDTO, error) {
			return f.Get(ctx, id)
		},
		func(ctx context.Context) (*dto.LandlordDTO, string, error) {
			landlord, err := sequence.AllocateAndCreate(ctx, f.allocator, models.EntityLandlord,
				func(ctx context.Context, id string) (*models.Landlord, error) {
					existing, err := f.landlordRepo.ByEmail(ctx, contact.Email)
					if err != nil {
						return nil, err
					}
					if existing != nil {
						return nil, ErrEmailAlreadyExists
					}

					l := &models.Landlord{
						ID:          id,
						Contact:     contact,
						CompanyName: trimmedPtr(req.CompanyName),
						TaxNumber:   trimmedPtr(req.TaxNumber),
					}
					if err := f.landlordRepo.Save(ctx, l); err != nil {
						return nil, emailTaken(err)
					}
					return l, nil
				})
			if err != nil {
				return nil, "", creationError("LANDLORD_CREATE_FAILED", "Failed to create landlord", err)
			}

			if f.emailFlow != nil {
				f.emailFlow.SendWelcome(ctx, EmailTemplateWelcomeLandlord, landlord.Email, landlord.FullName, landlord.ID)
			}

			resp := ToLandlordDTO(*landlord)
			return &resp, landlord.ID, nil
		})
}

func (f *LandlordFlowImpl) load(ctx context.Context, id string) (*models.Landlord, error) {
	landlord, err := f.landlordRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LANDLORD_LOOKUP_FAILED", "Failed to lookup landlord", err)
	}
	if landlord == nil {
		return nil, NewBusinessError("LANDLORD_NOT_FOUND", "Landlord not found", ErrLandlordNotFound)
	}
	return landlord, nil
}

func (f *LandlordFlowImpl) Get(ctx context.Context, id string) (*dto.LandlordDTO, error) {
	landlord, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToLandlordDTO(*landlord)
	return &resp, nil
}

func (f *LandlordFlowImpl) List(ctx context.Context, req *dto.ListPartiesRequest) (*dto.ListLandlordsResponse, error) {
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

	total, err := f.landlordRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LANDLORD_COUNT_FAILED", "Failed to count landlords", err)
	}
	rows, err := f.landlordRepo.ByFilter(ctx, filter, orderBy, size, offset)
	if err != nil {
		return nil, NewBusinessError("LANDLORD_LIST_FAILED", "Failed to list landlords", err)
	}

	items := make([]dto.LandlordDTO, 0, len(rows))
	for _, l := range rows {
		items = append(items, ToLandlordDTO(*l))
	}
	return &dto.ListLandlordsResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

func (f *LandlordFlowImpl) Update(ctx context.Context, id string, req *dto.UpdateLandlordRequest, metadata *ClientMetadata) (*dto.LandlordDTO, error) {
	if req == nil {
		return f.Get(ctx, id)
	}
	landlord, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}

	emailChanged, err := applyContactUpdate(&landlord.Contact, req.UpdateContactRequest)
	if err != nil {
		return nil, err
	}
	if req.CompanyName != nil {
		landlord.CompanyName = trimmedPtr(req.CompanyName)
	}
	if req.TaxNumber != nil {
		landlord.TaxNumber = trimmedPtr(req.TaxNumber)
	}

	if emailChanged {
		other, err := f.landlordRepo.ByEmail(ctx, landlord.Email)
		if err != nil {
			return nil, NewBusinessError("LANDLORD_LOOKUP_FAILED", "Failed to lookup landlord", err)
		}
		if other != nil && other.ID != landlord.ID {
			return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
		}
	}

	landlord.UpdatedAt = utils.UTCNow()
	if err := f.landlordRepo.Update(ctx, landlord); err != nil {
		return nil, creationError("LANDLORD_UPDATE_FAILED", "Failed to update landlord", emailTaken(err))
	}

	resp := ToLandlordDTO(*landlord)
	return &resp, nil
}

func (f *LandlordFlowImpl) Delete(ctx context.Context, id string, metadata *ClientMetadata) error {
	if err := f.landlordRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewBusinessError("LANDLORD_NOT_FOUND", "Landlord not found", ErrLandlordNotFound)
		}
		return NewBusinessError("LANDLORD_DELETE_FAILED", "Failed to delete landlord", err)
	}
	return nil
}
