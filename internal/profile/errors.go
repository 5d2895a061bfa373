package profile

import (
	"errors"
	"fmt"
)

// ErrRegistrySealed is returned when a feature mask is changed after the profile was published.
var ErrRegistrySealed = errors.New("feature registry sealed")

// NotFoundError reports an unknown profile, characteristic or feature name.
type NotFoundError struct {
	Resource string // "profile", "characteristic", "feature"
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	var nf *NotFoundError
	if errors.As(target, &nf) {
		return nf.Resource == "" || nf.Resource == e.Resource
	}
	return false
}
