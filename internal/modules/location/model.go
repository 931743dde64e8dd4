// README: Driver position snapshot for persistence and pool reads.
package location

import (
	"time"

	"nosh/internal/types"
)

type Snapshot struct {
	ID         int64
	DriverID   types.ID
	Position   types.Point
	RecordedAt time.Time
}
