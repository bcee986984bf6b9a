package store_test

import (
	"errors"

	"screener/pkg/platform/sentinel"
)

func isConflict(err error) bool {
	return errors.Is(err, sentinel.ErrConflict)
}
