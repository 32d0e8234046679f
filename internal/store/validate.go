package store

import "fmt"

// MaxOwnerIDLength is the maximum allowed length for owner identifier
// strings. Matches the VARCHAR(255) constraint in the Postgres schema.
const MaxOwnerIDLength = 255

// ValidateOwnerID checks that an owner identifier is non-empty and does not
// exceed MaxOwnerIDLength.
func ValidateOwnerID(id string) error {
	if id == "" {
		return fmt.Errorf("owner identifier is empty")
	}
	if len(id) > MaxOwnerIDLength {
		return fmt.Errorf("owner identifier too long: %d chars (max %d)", len(id), MaxOwnerIDLength)
	}
	return nil
}
