package businessflow

import (
	"context"
	"errors"
	"strings"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/app/services"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/sequence"
	"github.com/amirphl/estatedesk/utils"
	"github.com/shopspring/decimal"
)

// PropertyFlow handles property use cases
type PropertyFlow interface {
	Create(ctx context.Context, req *dto.CreatePropertyRequest, metadata *ClientMetadata) (*dto.PropertyDTO, error)
	Get(ctx context.Context, id string) (*dto.PropertyDTO, error)
	List(ctx context.Context, req *dto.ListPropertiesRequest) (*dto.ListPropertiesResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdatePropertyRequest, metadata *ClientMetadata) (*dto.PropertyDTO, error)
	Delete(ctx context.Context, id string, metadata *ClientMetadata) error
}

type PropertyFlowImpl struct {
	propertyRepo repository.PropertyRepository
	landlordRepo repository.LandlordRepository
	agentRepo    repository.AgentRepository
	transactor   repository.Transactor
	allocator    *sequence.Allocator
	idempotency  services.IdempotencyStore
}

func NewPropertyFlow(
	propertyRepo repository.PropertyRepository,
	landlordRepo repository.LandlordRepository,
	agentRepo repository.AgentRepository,
	transactor repository.Transactor,
	allocator *sequence.Allocator,
	idempotency services.IdempotencyStore,
) PropertyFlow {
	return &PropertyFlowImpl{
		propertyRepo: propertyRepo,
		landlordRepo: landlordRepo,
		agentRepo:    agentRepo,
		transactor:   transactor,
		allocator:    allocator,
		idempotency:  idempotency,
	}
}

var propertySortColumns = map[string]string{
	"created_at":   "created_at",
	"monthly_rent": "monthly_rent",
	"title":        "title",
	"city":         "city",
	"area_sqm":     "area_sqm",
}

func cleanPhotoURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (f *PropertyFlowImpl) checkAgent(ctx context.Context, agentID *string) error {
	if agentID == nil {
		return nil
	}
	agent, err := f.agentRepo.ByID(ctx, *agentID)
	if err != nil {
		return err
	}
	if agent == nil {
		return NewBusinessError("AGENT_NOT_FOUND", "Agent not found", ErrAgentNotFound)
	}
	return nil
}

func (f *PropertyFlowImpl) Create(ctx context.Context, req *dto.CreatePropertyRequest, metadata *ClientMetadata) (*dto.PropertyDTO, error) {
	if req == nil {
		return nil, NewBusinessError("PROPERTY_VALIDATION_FAILED", "Create property validation failed", ErrPropertyTitleRequired)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, NewBusinessError("PROPERTY_TITLE_REQUIRED", "Property title is required", ErrPropertyTitleRequired)
	}
	if !models.IsValidPropertyType(req.Type) {
		return nil, NewBusinessError("INVALID_PROPERTY_TYPE", "Property type is invalid", ErrInvalidPropertyType)
	}
	status := req.Status
	if status == "" {
		status = models.PropertyStatusAvailable
	}
	if !models.IsValidPropertyStatus(status) {
		return nil, NewBusinessError("INVALID_PROPERTY_STATUS", "Property status is invalid", ErrInvalidPropertyStatus)
	}
	if req.MonthlyRent.IsNegative() || req.AreaSqm.IsNegative() || req.Bedrooms < 0 || req.Bathrooms < 0 {
		return nil, NewBusinessError("NEGATIVE_AMOUNT", "Amounts cannot be negative", ErrNegativeAmount)
	}
	agentID := trimmedPtr(req.AgentID)

	return idempotent(ctx, f.idempotency, "property", idempotencyKeyOf(metadata),
		func(ctx context.Context, id string) (*dto.PropertyDTO, error) {
			return f.Get(ctx, id)
		},
		func(ctx context.Context) (*dto.PropertyDTO, string, error) {
			property, err := sequence.AllocateAndCreate(ctx, f.allocator, models.EntityProperty,
				func(ctx context.Context, id string) (*models.Property, error) {
					landlord, err := f.landlordRepo.ByID(ctx, strings.TrimSpace(req.LandlordID))
					if err != nil {
						return nil, err
					}
					if landlord == nil {
						return nil, NewBusinessError("LANDLORD_NOT_FOUND", "Landlord not found", ErrLandlordNotFound)
					}
					if err := f.checkAgent(ctx, agentID); err != nil {
						return nil, err
					}

					p := &models.Property{
						ID:          id,
						Title:       title,
						Description: trimmedPtr(req.Description),
						Address:     strings.TrimSpace(req.Address),
						City:        strings.TrimSpace(req.City),
						Type:        req.Type,
						Status:      status,
						Bedrooms:    req.Bedrooms,
						Bathrooms:   req.Bathrooms,
						AreaSqm:     req.AreaSqm,
						MonthlyRent: req.MonthlyRent,
						PhotoURLs:   cleanPhotoURLs(req.PhotoURLs),
						LandlordID:  landlord.ID,
						AgentID:     agentID,
					}
					if err := f.propertyRepo.Save(ctx, p); err != nil {
						return nil, err
					}
					return p, nil
				})
			if err != nil {
				return nil, "", creationError("PROPERTY_CREATE_FAILED", "Failed to create property", err)
			}
			resp := ToPropertyDTO(*property)
			return &resp, property.ID, nil
		})
}

func (f *PropertyFlowImpl) load(ctx context.Context, id string) (*models.Property, error) {
	property, err := f.propertyRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("PROPERTY_LOOKUP_FAILED", "Failed to lookup property", err)
	}
	if property == nil {
		return nil, NewBusinessError("PROPERTY_NOT_FOUND", "Property not found", ErrPropertyNotFound)
	}
	return property, nil
}

func (f *PropertyFlowImpl) Get(ctx context.Context, id string) (*dto.PropertyDTO, error) {
	property, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPropertyDTO(*property)
	return &resp, nil
}

func (f *PropertyFlowImpl) List(ctx context.Context, req *dto.ListPropertiesRequest) (*dto.ListPropertiesResponse, error) {
	if req == nil {
		req = &dto.ListPropertiesRequest{}
	}
	page, size, offset, err := pageParams(req.PaginationRequest)
	if err != nil {
		return nil, err
	}
	orderBy, err := orderClause(req.SortRequest, propertySortColumns, "created_at")
	if err != nil {
		return nil, err
	}
	if err := checkDateRange(req.CreatedAfter, req.CreatedBefore); err != nil {
		return nil, err
	}
	if req.Type != nil && !models.IsValidPropertyType(*req.Type) {
		return nil, NewBusinessError("INVALID_PROPERTY_TYPE", "Property type is invalid", ErrInvalidPropertyType)
	}
	if req.Status != nil && !models.IsValidPropertyStatus(*req.Status) {
		return nil, NewBusinessError("INVALID_PROPERTY_STATUS", "Property status is invalid", ErrInvalidPropertyStatus)
	}

	filter := models.PropertyFilter{
		Search:        trimmedPtr(req.Search),
		Status:        req.Status,
		Type:          req.Type,
		City:          trimmedPtr(req.City),
		LandlordID:    trimmedPtr(req.LandlordID),
		AgentID:       trimmedPtr(req.AgentID),
		MinRent:       req.MinRent,
		MaxRent:       req.MaxRent,
		CreatedAfter:  utils.TimeToUTCPtr(req.CreatedAfter),
		CreatedBefore: utils.TimeToUTCPtr(req.CreatedBefore),
	}

	total, err := f.propertyRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("PROPERTY_COUNT_FAILED", "Failed to count properties", err)
	}
	rows, err := f.propertyRepo.ByFilter(ctx, filter, orderBy, size, offset)
	if err != nil {
		return nil, NewBusinessError("PROPERTY_LIST_FAILED", "Failed to list properties", err)
	}

	items := make([]dto.PropertyDTO, 0, len(rows))
	for _, p := range rows {
		items = append(items, ToPropertyDTO(*p))
	}
	return &dto.ListPropertiesResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

func nonNegative(d *decimal.Decimal) bool {
	return d == nil || !d.IsNegative()
}

func (f *PropertyFlowImpl) Update(ctx context.Context, id string, req *dto.UpdatePropertyRequest, metadata *ClientMetadata) (*dto.PropertyDTO, error) {
	if req == nil {
		return f.Get(ctx, id)
	}
	if !nonNegative(req.MonthlyRent) || !nonNegative(req.AreaSqm) {
		return nil, NewBusinessError("NEGATIVE_AMOUNT", "Amounts cannot be negative", ErrNegativeAmount)
	}

	var updated *models.Property
	err := f.transactor.Within(ctx, func(ctx context.Context) error {
		p, err := f.load(ctx, id)
		if err != nil {
			return err
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return NewBusinessError("PROPERTY_TITLE_REQUIRED", "Property title is required", ErrPropertyTitleRequired)
			}
			p.Title = title
		}
		if req.Description != nil {
			p.Description = trimmedPtr(req.Description)
		}
		if req.Address != nil {
			p.Address = strings.TrimSpace(*req.Address)
		}
		if req.City != nil {
			p.City = strings.TrimSpace(*req.City)
		}
		if req.Type != nil {
			if !models.IsValidPropertyType(*req.Type) {
				return NewBusinessError("INVALID_PROPERTY_TYPE", "Property type is invalid", ErrInvalidPropertyType)
			}
			p.Type = *req.Type
		}
		if req.Status != nil {
			if !models.IsValidPropertyStatus(*req.Status) {
				return NewBusinessError("INVALID_PROPERTY_STATUS", "Property status is invalid", ErrInvalidPropertyStatus)
			}
			p.Status = *req.Status
		}
		if req.Bedrooms != nil {
			p.Bedrooms = *req.Bedrooms
		}
		if req.Bathrooms != nil {
			p.Bathrooms = *req.Bathrooms
		}
		if req.AreaSqm != nil {
			p.AreaSqm = *req.AreaSqm
		}
		if req.MonthlyRent != nil {
			p.MonthlyRent = *req.MonthlyRent
		}
		if req.PhotoURLs != nil {
			p.PhotoURLs = cleanPhotoURLs(req.PhotoURLs)
		}
		if req.AgentID != nil {
			agentID := trimmedPtr(req.AgentID)
			if err := f.checkAgent(ctx, agentID); err != nil {
				return err
			}
			p.AgentID = agentID
		}

		p.UpdatedAt = utils.UTCNow()
		if err := f.propertyRepo.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, creationError("PROPERTY_UPDATE_FAILED", "Failed to update property", err)
	}

	resp := ToPropertyDTO(*updated)
	return &resp, nil
}

func (f *PropertyFlowImpl) Delete(ctx context.Context, id string, metadata *ClientMetadata) error {
	if err := f.propertyRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewBusinessError("PROPERTY_NOT_FOUND", "Property not found", ErrPropertyNotFound)
		}
		return NewBusinessError("PROPERTY_DELETE_FAILED", "Failed to delete property", err)
	}
	return nil
}
