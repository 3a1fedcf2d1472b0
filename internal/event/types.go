package event

import "strings"

// EventType names an event served by the registry.
type EventType int

const (
	// EventNone means no explicit event; the handler signature decides.
	EventNone EventType = iota
	CriticallyInjure
	Healing
	UsingItem
	UsingKey
	LoadingSave
	ResetSave
	Saving
	GameOpened
	HittingEnemy
	KillingEnemy
	StunningEnemy
	EnemyAttackingPlayer
	EnemyKillingPlayer

	eventTypeCount
)

var eventTypeNames = [eventTypeCount]string{
	EventNone:            "None",
	CriticallyInjure:     "CriticallyInjure",
	Healing:              "Healing",
	UsingItem:            "UsingItem",
	UsingKey:             "UsingKey",
	LoadingSave:          "LoadingSave",
	ResetSave:            "ResetSave",
	Saving:               "Saving",
	GameOpened:           "GameOpened",
	HittingEnemy:         "HittingEnemy",
	KillingEnemy:         "KillingEnemy",
	StunningEnemy:        "StunningEnemy",
	EnemyAttackingPlayer: "EnemyAttackingPlayer",
	EnemyKillingPlayer:   "EnemyKillingPlayer",
}

// String returns the event name.
func (t EventType) String() string {
	if t >= 0 && t < eventTypeCount {
		return eventTypeNames[t]
	}
	return "Unknown"
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t >= 0 && t < eventTypeCount
}

// ParseEventType parses an event name. Matching is case-insensitive.
func ParseEventType(s string) (EventType, bool) {
	for t, name := range eventTypeNames {
		if strings.EqualFold(name, s) {
			return EventType(t), true
		}
	}
	return EventNone, false
}

// EventTypes returns every event type except EventNone.
func EventTypes() []EventType {
	out := make([]EventType, 0, eventTypeCount-1)
	for t := EventNone + 1; t < eventTypeCount; t++ {
		out = append(out, t)
	}
	return out
}
