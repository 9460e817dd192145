package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse"
	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, catalog.ErrUnknownRole) || errors.Is(err, catalog.ErrUnknownPermission) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, gatehouse.ErrInvalidCheck) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, gatehouse.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, rolematrix.ErrNotCustomized) ||
		errors.Is(err, override.ErrNotFound) ||
		errors.Is(err, session.ErrNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
