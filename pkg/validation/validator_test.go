package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Name     string `json:"name" validate:"notblank"`
	Color    string `json:"color" validate:"test_color"`
}

func init() {
	RegisterEnum("test_color", "Dark Red", "Blue")
}

func TestStructReportsEveryField(t *testing.T) {
	fields := Struct(signup{Email: "nope", Password: "short", Name: "  ", Color: "Green"})
	assert.Equal(t, map[string]string{
		"email":    "must be a valid email",
		"password": "min length 8",
		"name":     "must not be blank",
		"color":    "must be one of: Dark Red, Blue",
	}, fields)
}

func TestStructValid(t *testing.T) {
	assert.Nil(t, Struct(signup{Email: "a@example.com", Password: "password123", Name: "Ada", Color: "Dark Red"}))
}

func TestPasswordLengthCountsBytes(t *testing.T) {
	type pw struct {
		Password string `json:"password" validate:"bcryptlen"`
	}
	assert.Nil(t, Struct(pw{Password: strings.Repeat("a", MaxPasswordBytes)}))
	assert.Nil(t, Struct(pw{Password: strings.Repeat("é", MaxPasswordBytes/2)}))
	assert.Equal(t, map[string]string{"password": "must be at most 72 bytes long"},
		Struct(pw{Password: strings.Repeat("é", 40)}))
}

func TestToDetailsInvalidJSON(t *testing.T) {
	var v map[string]any
	err := json.Unmarshal([]byte(`{"a":}`), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("boom")))
	assert.Nil(t, ToDetails(nil))
}
