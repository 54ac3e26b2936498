package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/abbank/notification-gateway/internal/model"
)

// Mock resolves every account to a deterministic profile so local runs and
// tests are repeatable without a live customer service. A handful of fixture
// accounts have stable identities; all other accounts get generated contact
// details derived from the account ID. Not suitable for production.
type Mock struct{}

var _ Resolver = (*Mock)(nil)

// NewMock creates the mock resolver.
func NewMock() *Mock { return &Mock{} }

var fixtures = []model.CustomerProfile{
	{CustomerID: 1001, AccountID: 100001, FirstName: "Adaeze", LastName: "Okafor", Email: "adaeze.okafor@email.com", Phone: "+2348031001001"},
	{CustomerID: 1002, AccountID: 100002, FirstName: "Emeka", LastName: "Nwosu", Email: "emeka.nwosu@email.com", Phone: "+2348031002002"},
	{CustomerID: 1003, AccountID: 100003, FirstName: "Ngozi", LastName: "Eze", Email: "ngozi.eze@email.com", Phone: "+2348031003003"},
	{CustomerID: 1004, AccountID: 100004, FirstName: "Tunde", LastName: "Adeyemi", Email: "tunde.adeyemi@email.com", Phone: "+2348031004004"},
	{CustomerID: 1005, AccountID: 100005, FirstName: "Chisom", LastName: "Obi", Email: "chisom.obi@email.com", Phone: "+2348031005005"},
}

var firstNames = []string{
	"Amaka", "Chidi", "Fatima", "Ibrahim", "Kemi",
	"Lanre", "Mercy", "Nnamdi", "Ola", "Peace",
	"Raheem", "Sade", "Tobi", "Uche", "Wale",
}

var lastNames = []string{
	"Adebayo", "Adekunle", "Afolabi", "Agbo", "Ajayi",
	"Akindele", "Bello", "Dike", "Eze", "Fasanya",
	"Hassan", "Ihejirika", "Jibrin", "Lawal", "Nwachukwu",
}

// Resolve returns a fixture profile when one exists for the account,
// otherwise a generated one. Non-positive account IDs are not found.
func (m *Mock) Resolve(_ context.Context, accountID int64) (*model.CustomerProfile, error) {
	if accountID <= 0 {
		return nil, nil
	}

	for i := range fixtures {
		if fixtures[i].AccountID == accountID {
			p := fixtures[i]
			return &p, nil
		}
	}

	first := firstNames[accountID%int64(len(firstNames))]
	last := lastNames[(accountID/10)%int64(len(lastNames))]
	suffix := accountID % 10_000
	return &model.CustomerProfile{
		CustomerID: accountID + 900_000,
		AccountID:  accountID,
		FirstName:  first,
		LastName:   last,
		Email:      strings.ToLower(fmt.Sprintf("%s.%s%d@abbank-demo.com", first, last, suffix)),
		// Nigerian mobile range, E.164
		Phone: fmt.Sprintf("+2348%09d", accountID%1_000_000_000),
	}, nil
}
