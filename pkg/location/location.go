// Package location is the boundary to device geolocation. The real provider
// lives in the host platform; this package defines the contract and a fixed
// provider for tools and tests.
package location

import (
	"context"
	"errors"

	"github.com/example/carside/pkg/models"
)

// ErrPermissionDenied is returned when the user has denied location access.
var ErrPermissionDenied = errors.New("location: permission denied")

// Geolocator acquires the device's current position. Current may block on a
// GPS fix and must honor ctx cancellation.
type Geolocator interface {
	Current(ctx context.Context) (models.Location, error)
}

// Static always reports the same position.
type Static struct {
	Position models.Location
}

func (s Static) Current(ctx context.Context) (models.Location, error) {
	if err := ctx.Err(); err != nil {
		return models.Location{}, err
	}
	return s.Position, nil
}

// Denied always fails with ErrPermissionDenied.
type Denied struct{}

func (Denied) Current(ctx context.Context) (models.Location, error) {
	return models.Location{}, ErrPermissionDenied
}
