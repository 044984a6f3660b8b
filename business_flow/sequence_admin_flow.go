package businessflow

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/sequence"
)

// KnownEntityTypes lists every entity type that receives sequential identifiers
var KnownEntityTypes = []string{
	models.EntityLandlord,
	models.EntityTenant,
	models.EntityAgent,
	models.EntityProperty,
	models.EntityAccount,
	models.EntityIncome,
	models.EntityExpense,
}

// SequenceAdminFlow exposes the identifier counters to administrators
type SequenceAdminFlow interface {
	ListCounters(ctx context.Context, req *dto.ListSequenceCountersRequest) (*dto.ListSequenceCountersResponse, error)
	Peek(ctx context.Context, req *dto.PeekSequenceRequest) (*dto.SequenceCounterDTO, error)
	ParseID(ctx context.Context, id string) (*dto.ParseIDResponse, error)
}

type SequenceAdminFlowImpl struct {
	counterRepo repository.SequenceCounterRepository
	allocator   *sequence.Allocator
	byPrefix    map[string]string
}

func NewSequenceAdminFlow(counterRepo repository.SequenceCounterRepository, allocator *sequence.Allocator) SequenceAdminFlow {
	byPrefix := make(map[string]string, len(KnownEntityTypes))
	for _, t := range KnownEntityTypes {
		p, _ := sequence.Prefix(t)
		byPrefix[p] = t
	}
	return &SequenceAdminFlowImpl{
		counterRepo: counterRepo,
		allocator:   allocator,
		byPrefix:    byPrefix,
	}
}

// ToSequenceCounterDTO converts a counter row, rendering the last identifier it issued
func ToSequenceCounterDTO(c models.SequenceCounter) dto.SequenceCounterDTO {
	out := dto.SequenceCounterDTO{
		Key:        c.Key,
		EntityType: c.EntityType,
		YearMonth:  c.YearMonth,
		Value:      c.Value,
		UpdatedAt:  formatTime(c.UpdatedAt),
	}
	if prefix, err := sequence.Prefix(c.EntityType); err == nil && c.Value > 0 {
		out.LastID = sequence.FormatID(prefix, c.YearMonth, c.Value)
	}
	return out
}

func (f *SequenceAdminFlowImpl) entityType(name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, t := range KnownEntityTypes {
		if strings.EqualFold(t, name) {
			return t, nil
		}
	}
	return "", NewBusinessErrorf("UNKNOWN_ENTITY_TYPE", "Entity type %q is unknown", ErrUnknownEntityType, name)
}

func (f *SequenceAdminFlowImpl) ListCounters(ctx context.Context, req *dto.ListSequenceCountersRequest) (*dto.ListSequenceCountersResponse, error) {
	if req == nil {
		req = &dto.ListSequenceCountersRequest{}
	}
	page, size, offset, err := pageParams(req.PaginationRequest)
	if err != nil {
		return nil, err
	}

	var filter models.SequenceCounterFilter
	if req.EntityType != nil && strings.TrimSpace(*req.EntityType) != "" {
		t, err := f.entityType(*req.EntityType)
		if err != nil {
			return nil, err
		}
		filter.EntityType = &t
	}
	if ym := trimmedPtr(req.YearMonth); ym != nil {
		if _, err := time.Parse("200601", *ym); err != nil {
			return nil, NewBusinessError("INVALID_YEAR_MONTH", "year_month must be formatted as YYYYMM", ErrInvalidYearMonth)
		}
		filter.YearMonth = ym
	}

	total, err := f.counterRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SEQUENCE_COUNT_FAILED", "Failed to count sequence counters", err)
	}
	rows, err := f.counterRepo.ByFilter(ctx, filter, "", size, offset)
	if err != nil {
		return nil, NewBusinessError("SEQUENCE_LIST_FAILED", "Failed to list sequence counters", err)
	}

	items := make([]dto.SequenceCounterDTO, 0, len(rows))
	for _, c := range rows {
		items = append(items, ToSequenceCounterDTO(*c))
	}
	return &dto.ListSequenceCountersResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

func (f *SequenceAdminFlowImpl) Peek(ctx context.Context, req *dto.PeekSequenceRequest) (*dto.SequenceCounterDTO, error) {
	if req == nil {
		return nil, NewBusinessError("UNKNOWN_ENTITY_TYPE", "Entity type is required", ErrUnknownEntityType)
	}
	entityType, err := f.entityType(req.EntityType)
	if err != nil {
		return nil, err
	}

	var at time.Time
	if ym := strings.TrimSpace(req.YearMonth); ym != "" {
		at, err = time.ParseInLocation("200601", ym, f.allocator.Config().Location)
		if err != nil {
			return nil, NewBusinessError("INVALID_YEAR_MONTH", "year_month must be formatted as YYYYMM", ErrInvalidYearMonth)
		}
	}

	counter, err := f.allocator.Peek(ctx, entityType, at)
	if err != nil {
		return nil, NewBusinessError("SEQUENCE_PEEK_FAILED", "Failed to read sequence counter", err)
	}
	if counter == nil {
		return nil, NewBusinessError("SEQUENCE_NOT_FOUND", "No identifiers were issued for this entity type and month", ErrSequenceNotFound)
	}

	resp := ToSequenceCounterDTO(*counter)
	return &resp, nil
}

// ParseID decomposes id and reports whether its counter has reached it
func (f *SequenceAdminFlowImpl) ParseID(ctx context.Context, id string) (*dto.ParseIDResponse, error) {
	parsed, err := sequence.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, NewBusinessError("INVALID_ENTITY_ID", "Identifier is invalid", ErrInvalidEntityID)
	}

	resp := &dto.ParseIDResponse{
		ID:        strings.TrimSpace(id),
		Prefix:    parsed.Prefix,
		YearMonth: parsed.YearMonth,
		Sequence:  parsed.Sequence,
	}

	entityType, ok := f.byPrefix[parsed.Prefix]
	if !ok {
		return resp, nil
	}
	resp.EntityType = entityType

	counter, err := f.counterRepo.ByKey(ctx, sequence.CounterKey(entityType, parsed.YearMonth))
	if err != nil {
		return nil, NewBusinessError("SEQUENCE_LOOKUP_FAILED", "Failed to read sequence counter", err)
	}
	resp.Issued = counter != nil && counter.Value >= parsed.Sequence
	return resp, nil
}
