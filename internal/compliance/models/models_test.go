package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func licensePolicy() *DocumentTypePolicy {
	return &DocumentTypePolicy{
		ID:                   id.NewDocumentTypeID(),
		Name:                 "Licencia de conducir",
		IsMandatory:          true,
		ValidityPeriodMonths: intPtr(24),
		ReminderBeforeDays:   30,
		UrgentReminderDays:   7,
	}
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, licensePolicy().Validate())

	cases := map[string]func(p *DocumentTypePolicy){
		"missing id":                func(p *DocumentTypePolicy) { p.ID = id.DocumentTypeID{} },
		"missing name":              func(p *DocumentTypePolicy) { p.Name = "" },
		"non positive warning":      func(p *DocumentTypePolicy) { p.ReminderBeforeDays = 0 },
		"negative urgent":           func(p *DocumentTypePolicy) { p.UrgentReminderDays = -1 },
		"urgent not below warning":  func(p *DocumentTypePolicy) { p.UrgentReminderDays = 30 },
		"zero validity":             func(p *DocumentTypePolicy) { p.ValidityPeriodMonths = intPtr(0) },
		"renewal without period":    func(p *DocumentTypePolicy) { p.HasRenewal = true },
		"renewal with unknown unit": func(p *DocumentTypePolicy) { p.HasRenewal, p.RenewalPeriod, p.RenewalUnit = true, intPtr(1), "weeks" },
		"renewal with zero period":  func(p *DocumentTypePolicy) { p.HasRenewal, p.RenewalPeriod = true, intPtr(0) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := licensePolicy()
			mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}

	t.Run("nil policy", func(t *testing.T) {
		var p *DocumentTypePolicy
		assert.True(t, dErrors.HasCode(p.Validate(), dErrors.CodeValidation))
	})

	t.Run("urgent zero is allowed", func(t *testing.T) {
		p := licensePolicy()
		p.UrgentReminderDays = 0
		assert.NoError(t, p.Validate())
	})
}

func TestPolicySet(t *testing.T) {
	good := licensePolicy()
	bad := licensePolicy()
	bad.ReminderBeforeDays = 0
	wide := licensePolicy()
	wide.ReminderBeforeDays = 60
	set := PolicySet{good.ID: good, bad.ID: bad, wide.ID: wide}

	got, err := set.Lookup(good.ID)
	require.NoError(t, err)
	assert.Same(t, good, got)

	_, err = set.Lookup(bad.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = set.Lookup(id.NewDocumentTypeID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	assert.Equal(t, 60, set.MaxReminderBeforeDays())
	assert.Equal(t, 0, PolicySet{}.MaxReminderBeforeDays())
}

func TestExpirationFromApproval(t *testing.T) {
	approved := calendar.Date(2026, time.January, 31)

	exp := ExpirationFromApproval(approved, licensePolicy())
	require.NotNil(t, exp)
	assert.Equal(t, calendar.Date(2028, time.January, 31), *exp)

	noValidity := licensePolicy()
	noValidity.ValidityPeriodMonths = nil
	assert.Nil(t, ExpirationFromApproval(approved, noValidity))
	assert.Nil(t, ExpirationFromApproval(approved, nil))
}

func TestNextRenewalFrom(t *testing.T) {
	from := calendar.Date(2026, time.October, 15)
	renewing := func(n int, unit RenewalUnit) *DocumentTypePolicy {
		p := licensePolicy()
		p.HasRenewal, p.RenewalPeriod, p.RenewalUnit = true, intPtr(n), unit
		return p
	}

	for _, tc := range []struct {
		name   string
		policy *DocumentTypePolicy
		want   *time.Time
	}{
		{"days", renewing(10, RenewalDays), timePtr(calendar.Date(2026, time.October, 25))},
		{"months", renewing(6, RenewalMonths), timePtr(calendar.Date(2027, time.April, 15))},
		{"years", renewing(1, RenewalYears), timePtr(calendar.Date(2027, time.October, 15))},
		{"unit defaults to months", renewing(2, ""), timePtr(calendar.Date(2026, time.December, 15))},
		{"no renewal", licensePolicy(), nil},
		{"nil policy", nil, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextRenewalFrom(from, tc.policy))
		})
	}
}

func TestRequirementStatus(t *testing.T) {
	for _, st := range []RequirementStatus{StatusPending, StatusSubmitted, StatusApproved, StatusRejected, StatusExpired} {
		assert.True(t, st.IsValid(), st)
	}
	assert.False(t, RequirementStatus("archived").IsValid())

	assert.True(t, StatusSubmitted.CanExpire())
	assert.True(t, StatusApproved.CanExpire())
	assert.False(t, StatusPending.CanExpire())
	assert.False(t, StatusRejected.CanExpire())
	assert.False(t, StatusExpired.CanExpire())

	exp := calendar.Date(2026, time.November, 1)
	assert.True(t, (&Requirement{Status: StatusApproved, ExpirationDate: &exp}).HasLiveExpiration())
	assert.False(t, (&Requirement{Status: StatusRejected, ExpirationDate: &exp}).HasLiveExpiration())
	assert.False(t, (&Requirement{Status: StatusApproved}).HasLiveExpiration())
}

func TestRequirementFilterMatches(t *testing.T) {
	owner := id.NewUserID()
	exp := calendar.Date(2026, time.October, 20)
	renew := calendar.Date(2026, time.November, 1)
	req := &Requirement{
		UserID:          owner,
		Status:          StatusApproved,
		RequiredDate:    calendar.Date(2026, time.October, 10),
		ExpirationDate:  &exp,
		NextRenewalDate: &renew,
	}
	other := id.NewUserID()

	for _, tc := range []struct {
		name   string
		filter RequirementFilter
		want   bool
	}{
		{"empty filter", RequirementFilter{}, true},
		{"status hit", RequirementFilter{Statuses: []RequirementStatus{StatusSubmitted, StatusApproved}}, true},
		{"status miss", RequirementFilter{Statuses: []RequirementStatus{StatusPending}}, false},
		{"user hit", RequirementFilter{UserID: &owner}, true},
		{"user miss", RequirementFilter{UserID: &other}, false},
		{"expiration window inclusive", RequirementFilter{ExpirationFrom: timePtr(exp), ExpirationTo: timePtr(exp)}, true},
		{"expiration before window", RequirementFilter{ExpirationFrom: timePtr(calendar.Date(2026, time.October, 21))}, false},
		{"expiration after window", RequirementFilter{ExpirationTo: timePtr(calendar.Date(2026, time.October, 19))}, false},
		{"required by same day", RequirementFilter{RequiredBy: timePtr(calendar.Date(2026, time.October, 10))}, true},
		{"required later", RequirementFilter{RequiredBy: timePtr(calendar.Date(2026, time.October, 9))}, false},
		{"renewal window", RequirementFilter{RenewalFrom: timePtr(calendar.Date(2026, time.October, 15)), RenewalTo: timePtr(renew)}, true},
		{"renewal outside", RequirementFilter{RenewalTo: timePtr(calendar.Date(2026, time.October, 31))}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(req))
		})
	}

	t.Run("date bounds need a date", func(t *testing.T) {
		bare := &Requirement{Status: StatusPending}
		assert.False(t, RequirementFilter{ExpirationTo: timePtr(exp)}.Matches(bare))
		assert.False(t, RequirementFilter{RenewalFrom: timePtr(renew)}.Matches(bare))
	})

	t.Run("nil requirement", func(t *testing.T) {
		assert.False(t, RequirementFilter{}.Matches(nil))
	})
}

func TestReminderTypeIsValid(t *testing.T) {
	for _, rt := range ReminderTypes {
		assert.True(t, rt.IsValid(), rt)
	}
	assert.False(t, ReminderType("daily").IsValid())
}
