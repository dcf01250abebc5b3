package platformsdk

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 100
	maxActionLength   = 200
	maxSystemLength   = 64
)

var (
	roleRule   = validation.In("admin", "user")
	reSystem   = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	systemRule = validation.By(func(v any) error {
		systems, _ := v.([]string)
		if p, ok := v.(*[]string); ok && p != nil {
			systems = *p
		}
		for i, s := range systems {
			if len(s) > maxSystemLength || !reSystem.MatchString(s) {
				return fmt.Errorf("entry %d is not a valid system name", i)
			}
		}
		return nil
	})
)

// Validate checks the create/register payload. Returns a map of field
// names to error messages, or nil if all fields are valid.
func (r CreateUserRequest) Validate() map[string]string {
	return details(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		validation.Field(&r.Role, validation.Required, roleRule),
		validation.Field(&r.Systems, systemRule),
	))
}

func (r LoginRequest) Validate() map[string]string {
	return details(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

func (r UpdateUserRequest) Validate() map[string]string {
	return details(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, maxNameLength)),
		validation.Field(&r.Role, validation.NilOrNotEmpty, roleRule),
		validation.Field(&r.Systems, systemRule),
	))
}

func (r AssignSystemsRequest) Validate() map[string]string {
	if len(r) == 0 {
		return map[string]string{"systems": "cannot be blank"}
	}
	if err := validation.Validate([]string(r), systemRule); err != nil {
		return map[string]string{"systems": err.Error()}
	}
	return nil
}

func (r LogActivityRequest) Validate() map[string]string {
	return details(validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required, validation.Length(1, maxActionLength)),
	))
}

func (r ResourceRequest) Validate() map[string]string {
	return details(validation.ValidateStruct(&r,
		validation.Field(&r.Data, validation.Required),
	))
}

// Validate checks the request shape only. Negative skip and out of range
// limits are clamped server side, and sort field syntax is checked with the
// filter.
func (r QueryRequest) Validate() map[string]string {
	return details(validation.ValidateStruct(&r,
		validation.Field(&r.Sort, validation.Each(validation.Required)),
	))
}

// details flattens an ozzo error into the wire map.
func details(err error) map[string]string {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		out := make(map[string]string, len(errs))
		for field, fe := range errs {
			out[field] = fe.Error()
		}
		return out
	}
	return map[string]string{"request": err.Error()}
}
