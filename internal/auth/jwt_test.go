package auth

import (
	"testing"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := NewToken(secret, claims, time.Hour)
	require.NoError(t, err)
	return token
}

func TestParse_HODWithDepartmentRef(t *testing.T) {
	token := sign(t, Claims{
		Role:           "hod",
		DepartmentID:   "dep-1",
		DepartmentName: "CSE",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "hod-42",
		},
	})

	claims, err := Parse(secret, token)
	require.NoError(t, err)

	requester, err := claims.Requester()
	require.NoError(t, err)
	assert.Equal(t, model.RequesterHOD, requester.Kind)
	assert.Equal(t, "hod-42", requester.ID)
	assert.Equal(t, "CSE", requester.Department.Label())
	assert.Equal(t, "dep-1", requester.Department.ID)
}

func TestParse_HODWithLiteralDepartment(t *testing.T) {
	token := sign(t, Claims{
		Role:             "hod",
		Department:       "Physics",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "hod-7"},
	})

	claims, err := Parse(secret, token)
	require.NoError(t, err)

	requester, err := claims.Requester()
	require.NoError(t, err)
	assert.Equal(t, "Physics", requester.Department.Label())
}

func TestParse_Admin(t *testing.T) {
	token := sign(t, Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "root"},
	})

	claims, err := Parse(secret, token)
	require.NoError(t, err)

	requester, err := claims.Requester()
	require.NoError(t, err)
	assert.True(t, requester.IsAdmin())
	assert.Equal(t, model.UnknownDepartment, requester.Department.Label())
}

func TestParse_Rejects(t *testing.T) {
	valid := sign(t, Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "root"}})

	expired, err := NewToken(secret, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "root",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, 0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", valid},
		{"expired", secret, expired},
		{"garbage", secret, "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRequester_UnknownRole(t *testing.T) {
	claims := &Claims{Role: "student", RegisteredClaims: jwt.RegisteredClaims{Subject: "s-1"}}
	_, err := claims.Requester()
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims = &Claims{Role: "admin"}
	_, err = claims.Requester()
	assert.ErrorIs(t, err, ErrInvalidToken)
}
