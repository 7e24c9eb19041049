package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

func TestAuthorize(t *testing.T) {
	allowed := domain.NewRoleSet(domain.RoleDoctor, domain.RoleAdmin)

	for _, role := range domain.Roles {
		t.Run(string(role), func(t *testing.T) {
			principal := domain.Principal{SubjectID: "id", Role: role}
			want := role == domain.RoleDoctor || role == domain.RoleAdmin
			assert.Equal(t, want, Authorize(principal, allowed))
			assert.False(t, Authorize(principal, domain.NewRoleSet()), "empty set admits nobody")
			assert.False(t, Authorize(principal, nil))
		})
	}
}
