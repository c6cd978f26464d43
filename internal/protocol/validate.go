package protocol

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwrk-planet/presence-relay/internal/domain"
)

// ValidateJoin: нужны room id, member id, name и color; координаты, если
// переданы, должны быть в допустимых пределах.
func ValidateJoin(roomID string, p domain.MemberPatch) error {
	if err := validateIDs(roomID, p.ID); err != nil {
		return err
	}
	if p.Name == nil {
		return fmt.Errorf("%w: user.name required", domain.ErrInvalidPayload)
	}
	if p.Color == nil {
		return fmt.Errorf("%w: user.color required", domain.ErrInvalidPayload)
	}
	return validateCoords(p, false)
}

// ValidateUpdate дополнительно требует обе координаты.
func ValidateUpdate(roomID string, p domain.MemberPatch) error {
	if err := validateIDs(roomID, p.ID); err != nil {
		return err
	}
	return validateCoords(p, true)
}

func validateIDs(roomID, memberID string) error {
	if roomID == "" {
		return fmt.Errorf("%w: sessionId required", domain.ErrInvalidPayload)
	}
	if strings.TrimSpace(memberID) == "" {
		return fmt.Errorf("%w: user.id required", domain.ErrInvalidPayload)
	}
	return nil
}

func validateCoords(p domain.MemberPatch, required bool) error {
	if required && (p.Latitude == nil || p.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude required", domain.ErrInvalidPayload)
	}
	if p.Latitude != nil && !inRange(*p.Latitude, 90) {
		return fmt.Errorf("%w: latitude out of range", domain.ErrInvalidPayload)
	}
	if p.Longitude != nil && !inRange(*p.Longitude, 180) {
		return fmt.Errorf("%w: longitude out of range", domain.ErrInvalidPayload)
	}
	return nil
}

func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}
