package eventstore

import (
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

func storeError(err error, message string) error {
	return serrors.Wrap(err, serrors.CategoryRuntime, serrors.SeverityError, message).
		WithContext("component", "eventstore")
}
