package request

import (
	"net/url"
	"strings"

	"github.com/mcoot/bubble/internal/model"
)

// Query parameter names
const (
	ParamUser     = "user"
	ParamPassword = "password"
)

// Credentials reads the user and password every authenticated call carries.
// The user is checked before the password.
func Credentials(values url.Values) (model.PlayerID, string, error) {
	user, err := Required(values, ParamUser)
	if err != nil {
		return "", "", err
	}
	password, err := Required(values, ParamPassword)
	if err != nil {
		return "", "", err
	}
	return model.PlayerID(user), password, nil
}

// Required returns a query value, distinguishing an absent field from a blank one
func Required(values url.Values, name string) (string, error) {
	if !values.Has(name) {
		return "", model.MissingField(name)
	}
	v := values.Get(name)
	if strings.TrimSpace(v) == "" {
		return "", model.EmptyField(name)
	}
	return v, nil
}
