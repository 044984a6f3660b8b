package businessflow

import (
	"strings"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/utils"
)

var partySortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "full_name",
	"email":      "email",
}

// newContact validates and normalizes the contact part of a create request
func newContact(req dto.ContactRequest) (models.Contact, error) {
	c := models.Contact{
		FullName: strings.TrimSpace(req.FullName),
		Email:    utils.NormalizeEmail(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Notes:    trimmedPtr(req.Notes),
	}
	if c.FullName == "" {
		return c, NewBusinessError("FULL_NAME_REQUIRED", "Full name is required", ErrFullNameRequired)
	}
	if !validEmail(c.Email) {
		return c, NewBusinessError("INVALID_EMAIL", "Email is invalid", ErrInvalidEmail)
	}
	return c, nil
}

// applyContactUpdate applies optional contact changes and reports whether the email changed
func applyContactUpdate(c *models.Contact, req dto.UpdateContactRequest) (bool, error) {
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return false, NewBusinessError("FULL_NAME_REQUIRED", "Full name is required", ErrFullNameRequired)
		}
		c.FullName = name
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Notes != nil {
		c.Notes = trimmedPtr(req.Notes)
	}

	emailChanged := false
	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		if !validEmail(email) {
			return false, NewBusinessError("INVALID_EMAIL", "Email is invalid", ErrInvalidEmail)
		}
		emailChanged = email != c.Email
		c.Email = email
	}
	return emailChanged, nil
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// partyFilter builds the repository filter of a party listing
func partyFilter(req *dto.ListPartiesRequest) (models.PartyFilter, error) {
	if err := checkDateRange(req.CreatedAfter, req.CreatedBefore); err != nil {
		return models.PartyFilter{}, err
	}
	return models.PartyFilter{
		Search:        trimmedPtr(req.Search),
		PropertyID:    trimmedPtr(req.PropertyID),
		CreatedAfter:  utils.TimeToUTCPtr(req.CreatedAfter),
		CreatedBefore: utils.TimeToUTCPtr(req.CreatedBefore),
	}, nil
}

// emailTaken maps a unique violation on the email index to ErrEmailAlreadyExists.
// Other unique violations, such as a collision on the allocated ID, pass through unchanged.
func emailTaken(err error) error {
	if repository.IsUniqueViolationOn(err, "email") {
		return ErrEmailAlreadyExists
	}
	return err
}
