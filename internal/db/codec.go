package stamps

import (
	"encoding/json"
	"fmt"

	model "github.com/glkeru/loyalty/stamps/internal/models"
)

func encodeSnapshot(snap model.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func decodeSnapshot(data []byte) (model.PartialSnapshot, error) {
	var snap model.PartialSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.PartialSnapshot{}, fmt.Errorf("malformed snapshot: %w", err)
	}
	return snap, nil
}
