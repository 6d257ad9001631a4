package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ead/core"
)

func Test_checkPassword(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdef123", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcdef12!", wantTag: pwdComplexityTag},
		{name: "similar to username", pwd: "Jdoe1234!", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "Senha@1234", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Tr0ub4dor&3x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPassword(tt.pwd, "John Doe", "jdoe1234", "jdoe@test.cd"); got != tt.wantTag {
				t.Errorf("checkPassword() = %q, want %q", got, tt.wantTag)
			}
		})
	}
}

func TestNewUser_validation(t *testing.T) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	InitValidators(validate, translator)

	tests := []struct {
		name       string
		nu         NewUser
		wantFields map[string]string
	}{
		{
			name: "valid",
			nu:   NewUser{Name: "Ana", Username: "ana_s", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x", Roles: []string{RoleStudent}},
		},
		{
			name:       "no username nor email",
			nu:         NewUser{Name: "Ana", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x"},
			wantFields: map[string]string{"username": usernameOrEmailText, "email": usernameOrEmailText},
		},
		{
			name:       "unknown role",
			nu:         NewUser{Name: "Ana", Email: "ana@test.cd", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x", Roles: []string{"teacher:"}},
			wantFields: map[string]string{"roles": allRolesText},
		},
		{
			name:       "weak password",
			nu:         NewUser{Name: "Ana", Email: "ana@test.cd", Password: "abc", PasswordConfirm: "abc"},
			wantFields: map[string]string{"password": pwdMinLenText},
		},
		{
			name:       "required",
			nu:         NewUser{Email: "ana@test.cd", Password: "Tr0ub4dor&3x"},
			wantFields: map[string]string{"name": "this field is required", "password_confirm": "this field is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.nu)
			if tt.wantFields == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "err = %T", err)

			got := make(map[string]string, len(vErrs))
			for _, e := range vErrs {
				got[e.Field()] = e.Translate(translator)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 0, MaxRolePriority(nil))
	assert.Equal(t, 1, MaxRolePriority([]string{RoleStudent}))
	assert.Equal(t, 30, MaxRolePriority([]string{RoleStudent, RoleAdminOwner, RolePolo}))
}
