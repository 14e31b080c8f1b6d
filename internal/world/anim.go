package world

import "strings"

const DefaultTexture = "adam"

const (
	ActionRun  = "run"
	ActionIdle = "idle"
	ActionSit  = "sit"
	ActionWork = "work"
)

// Anim builds an animation key such as "adam_run_left".
func Anim(texture, action, direction string) string {
	if texture == "" {
		texture = DefaultTexture
	}
	if direction == "" {
		direction = "down"
	}
	return texture + "_" + action + "_" + direction
}

// ParseAnim splits an animation key into its parts. Keys that do not have
// exactly three parts report ok=false.
func ParseAnim(key string) (texture, action, direction string, ok bool) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// IdleOf returns the idle animation that faces the same way as key.
func IdleOf(key string) string {
	texture, _, direction, ok := ParseAnim(key)
	if !ok {
		return Anim(DefaultTexture, ActionIdle, "down")
	}
	return Anim(texture, ActionIdle, direction)
}
