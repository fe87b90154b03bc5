package application

import (
	"errors"

	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/pkg/apperror"
)

// notFoundOr returns notFound when err is repository.ErrNotFound and an upstream
// failure for anything else.
func notFoundOr(op string, err error, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return apperror.Upstream(op, err)
}
