package model

import (
	"fmt"
	"strings"
)

// CustomerProfile holds the resolved contact details for one account.
// Only the fields needed for dispatch are carried here.
type CustomerProfile struct {
	CustomerID int64  `json:"customerId"`
	AccountID  int64  `json:"accountId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phoneNumber"` // E.164, e.g. "+2348031234567"
}

// HasEmail reports whether the profile carries a non-blank email address.
func (p *CustomerProfile) HasEmail() bool {
	return strings.TrimSpace(p.Email) != ""
}

// HasPhone reports whether the profile carries a non-blank phone number.
func (p *CustomerProfile) HasPhone() bool {
	return strings.TrimSpace(p.Phone) != ""
}

// FullName returns "First Last" for provider payloads.
func (p *CustomerProfile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// String masks contact details so profiles are safe to log.
func (p *CustomerProfile) String() string {
	return fmt.Sprintf("CustomerProfile{customerId=%d, accountId=%d, email=%s, phone=%s}",
		p.CustomerID, p.AccountID, MaskEmail(p.Email), MaskPhone(p.Phone))
}

// MaskEmail keeps at most the first three characters of the local part.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	keep := at
	if keep > 3 {
		keep = 3
	}
	return email[:keep] + "***" + email[at:]
}

// MaskPhone keeps the country code and leading digits only.
func MaskPhone(phone string) string {
	if len(phone) < 6 {
		return "***"
	}
	return phone[:6] + "***"
}
