// Package models contains domain entities for the property management backend
package models

// Entity type names. They are embedded in issued identifiers and counter keys,
// so they must never change once data exists.
const (
	EntityLandlord = "Landlord"
	EntityTenant   = "Tenant"
	EntityAgent    = "Agent"
	EntityProperty = "Property"
	EntityAccount  = "Account"
	EntityIncome   = "Income"
	EntityExpense  = "Expense"
)

// Contact holds the fields shared by landlords, tenants and field agents
type Contact struct {
	FullName string  `gorm:"size:255;not null" json:"full_name"`
	Email    string  `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone    string  `gorm:"size:32" json:"phone"`
	Notes    *string `gorm:"type:text" json:"notes,omitempty"`
}
