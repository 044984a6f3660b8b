package testing

import (
	"fmt"
	"sync/atomic"

	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Fixture rows use sequence numbers from 9000 up so they never collide with allocator output in tests
var fixtureSeq atomic.Int64

func nextFixtureID(prefix string) string {
	return fmt.Sprintf("%s-209912-%04d", prefix, 9000+fixtureSeq.Add(1))
}

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *gorm.DB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *gorm.DB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateLandlord inserts a landlord with the given email
func (tf *TestFixtures) CreateLandlord(email string) (*models.Landlord, error) {
	row := &models.Landlord{
		ID: nextFixtureID("LA"),
		Contact: models.Contact{
			FullName: "Fixture Landlord",
			Email:    utils.NormalizeEmail(email),
			Phone:    "+15550100",
		},
	}
	if err := tf.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create test landlord: %w", err)
	}
	return row, nil
}

// CreateAgent inserts a field agent with the given email
func (tf *TestFixtures) CreateAgent(email string) (*models.Agent, error) {
	row := &models.Agent{
		ID: nextFixtureID("AG"),
		Contact: models.Contact{
			FullName: "Fixture Agent",
			Email:    utils.NormalizeEmail(email),
			Phone:    "+15550101",
		},
	}
	if err := tf.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create test agent: %w", err)
	}
	return row, nil
}

// CreateProperty inserts an available apartment owned by landlordID
func (tf *TestFixtures) CreateProperty(landlordID, city string, rent decimal.Decimal) (*models.Property, error) {
	row := &models.Property{
		ID:          nextFixtureID("PR"),
		Title:       "Fixture flat in " + city,
		Address:     "1 Fixture Street",
		City:        city,
		Type:        models.PropertyTypeApartment,
		Status:      models.PropertyStatusAvailable,
		Bedrooms:    2,
		Bathrooms:   1,
		AreaSqm:     decimal.NewFromInt(70),
		MonthlyRent: rent,
		LandlordID:  landlordID,
	}
	if err := tf.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create test property: %w", err)
	}
	return row, nil
}

// CreateAccount inserts a bank account with the given balance
func (tf *TestFixtures) CreateAccount(balance decimal.Decimal, allowOverdraft bool) (*models.Account, error) {
	row := &models.Account{
		ID:             nextFixtureID("AC"),
		Name:           "Fixture account",
		Kind:           models.AccountKindBank,
		Currency:       "USD",
		OpeningBalance: balance,
		Balance:        balance,
		AllowOverdraft: utils.ToPtr(allowOverdraft),
	}
	if err := tf.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}
	return row, nil
}

// CreateAdmin inserts an active admin with a bcrypt hash of password
func (tf *TestFixtures) CreateAdmin(username, password string) (*models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	row := &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := tf.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return row, nil
}
