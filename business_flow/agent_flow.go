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

// AgentFlow handles field agent use cases
type AgentFlow interface {
	Create(ctx context.Context, req *dto.CreateAgentRequest, metadata *ClientMetadata) (*dto.AgentDTO, error)
	Get(ctx context.Context, id string) (*dto.AgentDTO, error)
	List(ctx context.Context, req *dto.ListPartiesRequest) (*dto.ListAgentsResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateAgentRequest, metadata *ClientMetadata) (*dto.AgentDTO, error)
	Delete(ctx context.Context, id string, metadata *ClientMetadata) error
}

type AgentFlowImpl struct {
	agentRepo   repository.AgentRepository
	allocator   *sequence.Allocator
	idempotency services.IdempotencyStore
}

func NewAgentFlow(agentRepo repository.AgentRepository, allocator *sequence.Allocator, idempotency services.IdempotencyStore) AgentFlow {
	return &AgentFlowImpl{
		agentRepo:   agentRepo,
		allocator:   allocator,
		idempotency: idempotency,
	}
}

func (f *AgentFlowImpl) Create(ctx context.Context, req *dto.CreateAgentRequest, metadata *ClientMetadata) (*dto.AgentDTO, error) {
	if req == nil {
		return nil, NewBusinessError("AGENT_VALIDATION_FAILED", "Create agent validation failed", ErrFullNameRequired)
	}
	contact, err := newContact(req.ContactRequest)
	if err != nil {
		return nil, err
	}

	return idempotent(ctx, f.idempotency, "agent", idempotencyKeyOf(metadata),
		func(ctx context.Context, id string) (*dto.AgentDTO, error) {
			return f.Get(ctx, id)
		},
		func(ctx context.Context) (*dto.AgentDTO, string, error) {
			agent, err := sequence.AllocateAndCreate(ctx, f.allocator, models.EntityAgent,
				func(ctx context.Context, id string) (*models.Agent, error) {
					existing, err := f.agentRepo.ByEmail(ctx, contact.Email)
					if err != nil {
						return nil, err
					}
					if existing != nil {
						return nil, ErrEmailAlreadyExists
					}

					a := &models.Agent{
						ID:      id,
						Contact: contact,
						Region:  trimmedPtr(req.Region),
					}
					if err := f.agentRepo.Save(ctx, a); err != nil {
						return nil, emailTaken(err)
					}
					return a, nil
				})
			if err != nil {
				return nil, "", creationError("AGENT_CREATE_FAILED", "Failed to create agent", err)
			}
			resp := ToAgentDTO(*agent)
			return &resp, agent.ID, nil
		})
}

func (f *AgentFlowImpl) load(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := f.agentRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("AGENT_LOOKUP_FAILED", "Failed to lookup agent", err)
	}
	if agent == nil {
		return nil, NewBusinessError("AGENT_NOT_FOUND", "Agent not found", ErrAgentNotFound)
	}
	return agent, nil
}

func (f *AgentFlowImpl) Get(ctx context.Context, id string) (*dto.AgentDTO, error) {
	agent, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAgentDTO(*agent)
	return &resp, nil
}

func (f *AgentFlowImpl) List(ctx context.Context, req *dto.ListPartiesRequest) (*dto.ListAgentsResponse, error) {
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

	total, err := f.agentRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("AGENT_COUNT_FAILED", "Failed to count agents", err)
	}
	rows, err := f.agentRepo.ByFilter(ctx, filter, orderBy, size, offset)
	if err != nil {
		return nil, NewBusinessError("AGENT_LIST_FAILED", "Failed to list agents", err)
	}

	items := make([]dto.AgentDTO, 0, len(rows))
	for _, a := range rows {
		items = append(items, ToAgentDTO(*a))
	}
	return &dto.ListAgentsResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

func (f *AgentFlowImpl) Update(ctx context.Context, id string, req *dto.UpdateAgentRequest, metadata *ClientMetadata) (*dto.AgentDTO, error) {
	if req == nil {
		return f.Get(ctx, id)
	}
	agent, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}

	emailChanged, err := applyContactUpdate(&agent.Contact, req.UpdateContactRequest)
	if err != nil {
		return nil, err
	}
	if req.Region != nil {
		agent.Region = trimmedPtr(req.Region)
	}
	if req.IsActive != nil {
		agent.IsActive = utils.ToPtr(*req.IsActive)
	}

	if emailChanged {
		other, err := f.agentRepo.ByEmail(ctx, agent.Email)
		if err != nil {
			return nil, NewBusinessError("AGENT_LOOKUP_FAILED", "Failed to lookup agent", err)
		}
		if other != nil && other.ID != agent.ID {
			return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
		}
	}

	agent.UpdatedAt = utils.UTCNow()
	if err := f.agentRepo.Update(ctx, agent); err != nil {
		return nil, creationError("AGENT_UPDATE_FAILED", "Failed to update agent", emailTaken(err))
	}

	resp := ToAgentDTO(*agent)
	return &resp, nil
}

func (f *AgentFlowImpl) Delete(ctx context.Context, id string, metadata *ClientMetadata) error {
	if err := f.agentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewBusinessError("AGENT_NOT_FOUND", "Agent not found", ErrAgentNotFound)
		}
		return NewBusinessError("AGENT_DELETE_FAILED", "Failed to delete agent", err)
	}
	return nil
}
