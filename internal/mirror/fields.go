package mirror

import (
	"encoding/json"
	"fmt"

	"office-quiz/internal/room"
	"office-quiz/internal/world"
)

// applyPlayerField decodes one field change into player and returns the
// decoded value.
func applyPlayerField(player *world.RemotePlayer, change room.FieldChange) (any, error) {
	switch change.Field {
	case "name", "anim":
		var value string
		if err := json.Unmarshal(change.Value, &value); err != nil {
			return nil, err
		}
		if change.Field == "name" {
			player.Name = value
		} else {
			player.Anim = value
		}
		return value, nil
	case "x", "y":
		var value float64
		if err := json.Unmarshal(change.Value, &value); err != nil {
			return nil, err
		}
		if change.Field == "x" {
			player.X = value
		} else {
			player.Y = value
		}
		return value, nil
	case "readyToConnect":
		var value bool
		if err := json.Unmarshal(change.Value, &value); err != nil {
			return nil, err
		}
		player.ReadyToConnect = value
		return value, nil
	case "money", "score":
		var value int
		if err := json.Unmarshal(change.Value, &value); err != nil {
			return nil, err
		}
		if change.Field == "money" {
			player.Money = value
		} else {
			player.Score = value
		}
		return value, nil
	default:
		return nil, fmt.Errorf("unknown field %q", change.Field)
	}
}
