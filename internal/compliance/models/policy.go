package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// RenewalUnit is the unit of DocumentTypePolicy.RenewalPeriod.
type RenewalUnit string

const (
	RenewalDays   RenewalUnit = "days"
	RenewalMonths RenewalUnit = "months"
	RenewalYears  RenewalUnit = "years"
)

// DocumentTypePolicy is the reminder policy attached to one document category.
type DocumentTypePolicy struct {
	ID                   id.DocumentTypeID `json:"id"`
	Name                 string            `json:"name" validate:"required"`
	IsMandatory          bool              `json:"is_mandatory"`
	ValidityPeriodMonths *int              `json:"validity_period_months,omitempty" validate:"omitempty,gt=0"`
	ReminderBeforeDays   int               `json:"reminder_before_days" validate:"gt=0"`
	UrgentReminderDays   int               `json:"urgent_reminder_days" validate:"gte=0,ltfield=ReminderBeforeDays"`
	HasRenewal           bool              `json:"has_renewal"`
	RenewalPeriod        *int              `json:"renewal_period,omitempty" validate:"omitempty,gt=0"`
	RenewalUnit          RenewalUnit       `json:"renewal_unit,omitempty" validate:"omitempty,oneof=days months years"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects policies the urgency classifier cannot work with.
func (p *DocumentTypePolicy) Validate() error {
	if p == nil {
		return dErrors.New(dErrors.CodeValidation, "document type policy is required")
	}
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "document type policy id is required")
	}
	if p.HasRenewal && p.RenewalPeriod == nil {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("document type %q: renewal period is required", p.Name))
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("document type %q: field %s failed %s", p.Name, verrs[0].Field(), verrs[0].Tag()))
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid document type policy")
	}
	return nil
}

// PolicySet indexes policies by document type.
type PolicySet map[id.DocumentTypeID]*DocumentTypePolicy

// Lookup returns the policy for a document type, validated.
func (ps PolicySet) Lookup(docType id.DocumentTypeID) (*DocumentTypePolicy, error) {
	p, ok := ps[docType]
	if !ok || p == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "no policy for document type "+docType.String())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// MaxReminderBeforeDays is the widest warning window across all policies.
func (ps PolicySet) MaxReminderBeforeDays() int {
	widest := 0
	for _, p := range ps {
		if p != nil && p.ReminderBeforeDays > widest {
			widest = p.ReminderBeforeDays
		}
	}
	return widest
}
