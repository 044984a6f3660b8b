package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func landlordRequest(name, email string) *dto.CreateLandlordRequest {
	return &dto.CreateLandlordRequest{
		ContactRequest: dto.ContactRequest{FullName: name, Email: email, Phone: "+15550199"},
	}
}

func TestLandlordFlow_CreateIssuesSequentialIDs(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	first, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "  Ada@Example.com "), nil)
	require.NoError(t, err)
	assert.Equal(t, "LA-202603-0001", first.ID)
	assert.Equal(t, "ada@example.com", first.Email)

	second, err := env.landlords.Create(ctx, landlordRequest("Grace Hopper", "grace@example.com"), nil)
	require.NoError(t, err)
	assert.Equal(t, "LA-202603-0002", second.ID)

	got, err := env.landlords.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.FullName)

	// welcome mail goes out after commit and is logged
	assert.Equal(t, []string{"ada@example.com", "grace@example.com"}, env.email.recipients())
	logs, err := env.emails.List(ctx, &dto.ListEmailLogsRequest{EntityID: utils.ToPtr(first.ID)})
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, models.EmailStatusSent, logs.Items[0].Status)
	assert.Equal(t, EmailTemplateWelcomeLandlord, logs.Items[0].Template)
}

func TestLandlordFlow_DuplicateEmailDoesNotConsumeID(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	_, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), nil)
	require.NoError(t, err)

	_, err = env.landlords.Create(ctx, landlordRequest("Someone Else", "ADA@example.com"), nil)
	require.Error(t, err)
	assert.True(t, IsEmailAlreadyExists(err))
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", businessCode(err))
	assert.Equal(t, int64(1), env.counterValue(t, models.EntityLandlord))

	next, err := env.landlords.Create(ctx, landlordRequest("Grace Hopper", "grace@example.com"), nil)
	require.NoError(t, err)
	assert.Equal(t, "LA-202603-0002", next.ID)
}

func TestLandlordFlow_IDCollisionIsNotReportedAsDuplicateEmail(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	// a row already holds the ID the counter will issue next
	require.NoError(t, env.db.Create(&models.Landlord{
		ID:      "LA-202603-0001",
		Contact: models.Contact{FullName: "Imported", Email: "imported@example.com"},
	}).Error)

	_, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), nil)
	require.Error(t, err)
	assert.False(t, IsEmailAlreadyExists(err))
	assert.Equal(t, "LANDLORD_CREATE_FAILED", businessCode(err))
	assert.Equal(t, int64(0), env.counterValue(t, models.EntityLandlord))
}

func TestLandlordFlow_DeletedEmailStaysReserved(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	l, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), nil)
	require.NoError(t, err)
	require.NoError(t, env.landlords.Delete(ctx, l.ID, nil))

	_, err = env.landlords.Get(ctx, l.ID)
	assert.True(t, IsLandlordNotFound(err))

	_, err = env.landlords.Create(ctx, landlordRequest("Ada Again", "ada@example.com"), nil)
	assert.True(t, IsEmailAlreadyExists(err))
	assert.Equal(t, int64(1), env.counterValue(t, models.EntityLandlord))

	err = env.landlords.Delete(ctx, l.ID, nil)
	assert.True(t, IsLandlordNotFound(err))
}

func TestLandlordFlow_IdempotentCreate(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")
	metadata.SetIdempotencyKey("retry-1")

	first, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), metadata)
	require.NoError(t, err)

	replay, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), metadata)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, int64(1), env.counterValue(t, models.EntityLandlord))
	assert.Len(t, env.email.recipients(), 1)

	// a failed create releases the key so the client can retry
	other := NewClientMetadata("127.0.0.1", "test")
	other.SetIdempotencyKey("retry-2")
	_, err = env.landlords.Create(ctx, landlordRequest("Dup", "ada@example.com"), other)
	require.Error(t, err)
	created, err := env.landlords.Create(ctx, landlordRequest("Grace Hopper", "grace@example.com"), other)
	require.NoError(t, err)
	assert.Equal(t, "LA-202603-0002", created.ID)
}

func TestLandlordFlow_IdempotencyKeyInFlight(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	_, reserved, err := env.idempotency.Reserve(ctx, "landlord", "busy")
	require.NoError(t, err)
	require.True(t, reserved)

	metadata := &ClientMetadata{IdempotencyKey: "busy"}
	_, err = env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), metadata)
	assert.True(t, IsIdempotencyInProgress(err))
	assert.Equal(t, int64(0), env.counterValue(t, models.EntityLandlord))
}

func TestLandlordFlow_EmailFailureDoesNotFailCreate(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()
	env.email.fail = errors.New("smtp down")

	l, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), nil)
	require.NoError(t, err)

	logs, err := env.emails.List(ctx, &dto.ListEmailLogsRequest{Status: utils.ToPtr(models.EmailStatusFailed)})
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, l.ID, *logs.Items[0].EntityID)
	require.NotNil(t, logs.Items[0].Error)
	assert.Contains(t, *logs.Items[0].Error, "smtp down")
}

func TestLandlordFlow_Validation(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *dto.CreateLandlordRequest
		wantErr error
	}{
		{name: "blank name", req: landlordRequest("   ", "a@example.com"), wantErr: ErrFullNameRequired},
		{name: "bad email", req: landlordRequest("Ada", "not-an-email"), wantErr: ErrInvalidEmail},
		{name: "email without domain", req: landlordRequest("Ada", "ada@"), wantErr: ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.landlords.Create(ctx, tt.req, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
	assert.Equal(t, int64(0), env.counterValue(t, models.EntityLandlord))
}

func TestLandlordFlow_UpdateAndList(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	ada, err := env.landlords.Create(ctx, landlordRequest("Ada Lovelace", "ada@example.com"), nil)
	require.NoError(t, err)
	_, err = env.landlords.Create(ctx, landlordRequest("Grace Hopper", "grace@example.com"), nil)
	require.NoError(t, err)

	_, err = env.landlords.Update(ctx, ada.ID, &dto.UpdateLandlordRequest{
		UpdateContactRequest: dto.UpdateContactRequest{Email: utils.ToPtr("grace@example.com")},
	}, nil)
	assert.True(t, IsEmailAlreadyExists(err))

	updated, err := env.landlords.Update(ctx, ada.ID, &dto.UpdateLandlordRequest{
		UpdateContactRequest: dto.UpdateContactRequest{FullName: utils.ToPtr("Augusta Ada King")},
		CompanyName:          utils.ToPtr("Analytical Estates"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Augusta Ada King", updated.FullName)
	assert.Equal(t, "Analytical Estates", *updated.CompanyName)

	list, err := env.landlords.List(ctx, &dto.ListPartiesRequest{
		SortRequest: dto.SortRequest{SortBy: "name", SortOrder: "asc"},
	})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Augusta Ada King", list.Items[0].FullName)
	assert.Equal(t, int64(2), list.Pagination.Total)
	assert.Equal(t, 1, list.Pagination.TotalPages)

	search, err := env.landlords.List(ctx, &dto.ListPartiesRequest{Search: utils.ToPtr("hopper")})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "Grace Hopper", search.Items[0].FullName)

	_, err = env.landlords.List(ctx, &dto.ListPartiesRequest{SortRequest: dto.SortRequest{SortBy: "password"}})
	assert.ErrorIs(t, err, ErrInvalidSortField)

	_, err = env.landlords.List(ctx, &dto.ListPartiesRequest{PaginationRequest: dto.PaginationRequest{PageSize: 500}})
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestTenantFlow_CreateOccupiesProperty(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	landlord, err := env.fixtures.CreateLandlord("owner@example.com")
	require.NoError(t, err)
	property, err := env.fixtures.CreateProperty(landlord.ID, "Lisbon", decimal.NewFromInt(1200))
	require.NoError(t, err)

	tenant, err := env.tenants.Create(ctx, &dto.CreateTenantRequest{
		ContactRequest: dto.ContactRequest{FullName: "Tom Tenant", Email: "tom@example.com"},
		PropertyID:     &property.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "TE-202603-0001", tenant.ID)
	require.NotNil(t, tenant.MonthlyRent)
	assert.True(t, decimal.NewFromInt(1200).Equal(*tenant.MonthlyRent))

	var stored models.Property
	require.NoError(t, env.db.Where("id = ?", property.ID).Take(&stored).Error)
	assert.Equal(t, models.PropertyStatusRented, stored.Status)

	byProperty, err := env.tenants.List(ctx, &dto.ListPartiesRequest{PropertyID: &property.ID})
	require.NoError(t, err)
	require.Len(t, byProperty.Items, 1)
	assert.Equal(t, tenant.ID, byProperty.Items[0].ID)
}

func TestTenantFlow_MissingPropertyRollsBack(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	_, err := env.tenants.Create(ctx, &dto.CreateTenantRequest{
		ContactRequest: dto.ContactRequest{FullName: "Tom Tenant", Email: "tom@example.com"},
		PropertyID:     utils.ToPtr("PR-202603-0042"),
	}, nil)
	assert.True(t, IsPropertyNotFound(err))
	assert.Equal(t, int64(0), env.counterValue(t, models.EntityTenant))
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Tenant{}))
	assert.Empty(t, env.email.recipients())
}

func TestTenantFlow_LeaseValidation(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	start := march2026
	end := march2026.AddDate(0, 0, -1)
	_, err := env.tenants.Create(ctx, &dto.CreateTenantRequest{
		ContactRequest: dto.ContactRequest{FullName: "Tom Tenant", Email: "tom@example.com"},
		LeaseStart:     &start,
		LeaseEnd:       &end,
	}, nil)
	assert.ErrorIs(t, err, ErrLeaseDatesInvalid)

	tenant, err := env.tenants.Create(ctx, &dto.CreateTenantRequest{
		ContactRequest: dto.ContactRequest{FullName: "Tom Tenant", Email: "tom@example.com"},
		LeaseStart:     &start,
	}, nil)
	require.NoError(t, err)

	_, err = env.tenants.Update(ctx, tenant.ID, &dto.UpdateTenantRequest{LeaseEnd: &end}, nil)
	assert.ErrorIs(t, err, ErrLeaseDatesInvalid)

	later := march2026.AddDate(1, 0, 0)
	updated, err := env.tenants.Update(ctx, tenant.ID, &dto.UpdateTenantRequest{LeaseEnd: &later}, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.LeaseEnd)
}

func TestAgentFlow_CRUD(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	agent, err := env.agents.Create(ctx, &dto.CreateAgentRequest{
		ContactRequest: dto.ContactRequest{FullName: "Field Agent", Email: "agent@example.com"},
		Region:         utils.ToPtr("North"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "AG-202603-0001", agent.ID)
	assert.True(t, agent.IsActive)

	updated, err := env.agents.Update(ctx, agent.ID, &dto.UpdateAgentRequest{IsActive: utils.ToPtr(false)}, nil)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.NoError(t, env.agents.Delete(ctx, agent.ID, nil))
	_, err = env.agents.Get(ctx, agent.ID)
	assert.True(t, IsAgentNotFound(err))
	assert.True(t, IsNotFound(err))
}
