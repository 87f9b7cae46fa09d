package models

import (
	"fmt"
)

// PoolReference links prize pool movements to their race
func PoolReference(raceID int64) string {
	return fmt.Sprintf("race:%d:pool", raceID)
}

// ExternalReference links a terminal credit to the event that produced it
func ExternalReference(source EventSource, externalID string) string {
	return fmt.Sprintf("ext:%s:%s", source, externalID)
}

// LevelReference identifies the bonus for reaching level
func LevelReference(level int) string {
	return fmt.Sprintf("level:%d", level)
}
