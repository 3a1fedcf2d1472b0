package events

import "github.com/dshills/retrofit/internal/host"

// PlayerEvent is implemented by payloads that concern a player.
type PlayerEvent interface {
	PlayerObject() *host.Object
}

// EnemyEvent is implemented by payloads that concern an enemy.
type EnemyEvent interface {
	EnemyObject() *host.Object
}

// ItemEvent is implemented by payloads that concern an item.
type ItemEvent interface {
	ItemObject() *host.Object
}

// SaveEvent is implemented by payloads that concern a save slot.
type SaveEvent interface {
	Slot() string
}
