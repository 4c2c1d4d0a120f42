package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=150,username"`
	Age      int    `json:"age" validate:"min=1,max=32000"`
}

func TestStructOK(t *testing.T) {
	assert.Nil(t, Struct(signup{Email: "cook@example.com", Username: "chef.bob", Age: 3}))
}

func TestStructCollectsFieldErrors(t *testing.T) {
	errs := Struct(signup{Email: "nope", Username: "bad name!", Age: 0})

	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "age")
	assert.Equal(t, []string{"Ensure this value is greater than or equal to 1."}, errs["age"])
}

func TestUsernameRule(t *testing.T) {
	assert.True(t, ValidUsername("a.b@c+d-e_f"))
	assert.False(t, ValidUsername("me"))
	assert.False(t, ValidUsername("with space"))
	assert.False(t, ValidUsername(""))
}

func TestFieldErrorsAdd(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("tags", "required")
	fe.Add("tags", "duplicate")
	assert.Equal(t, []string{"required", "duplicate"}, fe["tags"])
	assert.Contains(t, fe.Error(), "tags: required; duplicate")
}
