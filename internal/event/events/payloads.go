package events

import (
	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/host"
)

// Host type names payload constructors are correlated against.
const (
	TypePlayer         = "PlayerController"
	TypeEnemy          = "EnemyAI"
	TypeItem           = "GrabbableObject"
	TypeKey            = "KeyItem"
	TypeNetworkManager = "GameNetworkManager"
	TypeString         = "string"
	TypeInt            = "int"
	TypeBool           = "bool"
)

// CriticallyInjure is raised before a player becomes critically injured.
type CriticallyInjure struct {
	event.Denial
	Player *host.Object
}

// PlayerObject implements PlayerEvent.
func (e *CriticallyInjure) PlayerObject() *host.Object { return e.Player }

// Healing is raised before a player recovers from a critical injury.
type Healing struct {
	event.Denial
	Player *host.Object
}

// PlayerObject implements PlayerEvent.
func (e *Healing) PlayerObject() *host.Object { return e.Player }

// UsingItem is raised before a held item is activated.
type UsingItem struct {
	event.Denial
	Item       *host.Object
	ButtonDown bool
}

// ItemObject implements ItemEvent.
func (e *UsingItem) ItemObject() *host.Object { return e.Item }

// PlayerObject returns the player holding the item, if any.
func (e *UsingItem) PlayerObject() *host.Object {
	return heldBy(e.Item)
}

// UsingKey is raised before a key item is used on a door.
type UsingKey struct {
	event.Denial
	Key *host.Object
}

// ItemObject implements ItemEvent.
func (e *UsingKey) ItemObject() *host.Object { return e.Key }

// PlayerObject returns the player holding the key, if any.
func (e *UsingKey) PlayerObject() *host.Object {
	return heldBy(e.Key)
}

// LoadingSave is raised after part of a save slot has been loaded.
type LoadingSave struct {
	SaveSlot string
	Item     LoadedItem
}

// Slot implements SaveEvent.
func (e *LoadingSave) Slot() string { return e.SaveSlot }

// ResetSave is raised before a save slot is reset.
type ResetSave struct {
	event.Denial
	SaveSlot string
}

// Slot implements SaveEvent.
func (e *ResetSave) Slot() string { return e.SaveSlot }

// Saving is raised after part of the game has been written to a save slot.
type Saving struct {
	SaveSlot string
	Item     SaveItem
}

// Slot implements SaveEvent.
func (e *Saving) Slot() string { return e.SaveSlot }

// SaveItem names the part of the game a Saving event wrote.
type SaveItem string

// Saved parts.
const (
	SaveMods              SaveItem = "Mods"
	SaveGameValues        SaveItem = "GameValues"
	SaveShipItems         SaveItem = "ShipItems"
	SaveUnsellableItems   SaveItem = "UnsellableItems"
	SaveLocalPlayerValues SaveItem = "LocalPlayerValues"
)

// LoadedItem names the part of a save a LoadingSave event read.
type LoadedItem string

// Loaded parts.
const (
	LoadedLastSelectedSave      LoadedItem = "LastSelectedSave"
	LoadedSpawnUnlockable       LoadedItem = "SpawnUnlockable"
	LoadedUnlockables           LoadedItem = "LoadUnlockables"
	LoadedShipGrabbableItems    LoadedItem = "LoadShipGrabbableItems"
	LoadedTimeAndPlanetSettings LoadedItem = "SetTimeAndPlanetToSavedSettings"
)

// GeneralSaveSlot is the global save slot shared by every game file.
const GeneralSaveSlot = "LCGeneralSaveData"

// HittingEnemy is raised before a player hits an enemy.
type HittingEnemy struct {
	event.Denial
	Enemy  *host.Object
	Player *host.Object
	Force  int
}

// PlayerObject implements PlayerEvent.
func (e *HittingEnemy) PlayerObject() *host.Object { return e.Player }

// EnemyObject implements EnemyEvent.
func (e *HittingEnemy) EnemyObject() *host.Object { return e.Enemy }

// KillingEnemy is raised before a player kills an enemy.
type KillingEnemy struct {
	event.Denial
	Enemy  *host.Object
	Player *host.Object
}

// PlayerObject implements PlayerEvent.
func (e *KillingEnemy) PlayerObject() *host.Object { return e.Player }

// EnemyObject implements EnemyEvent.
func (e *KillingEnemy) EnemyObject() *host.Object { return e.Enemy }

// StunningEnemy is raised before a player stuns an enemy.
type StunningEnemy struct {
	event.Denial
	Enemy  *host.Object
	Player *host.Object
}

// PlayerObject implements PlayerEvent.
func (e *StunningEnemy) PlayerObject() *host.Object { return e.Player }

// EnemyObject implements EnemyEvent.
func (e *StunningEnemy) EnemyObject() *host.Object { return e.Enemy }

// EnemyAttackingPlayer is raised before an enemy damages a player.
// Handlers may lower or raise Damage.
type EnemyAttackingPlayer struct {
	event.Denial
	Damage int
	Player *host.Object
	Enemy  *host.Object
}

// PlayerObject implements PlayerEvent.
func (e *EnemyAttackingPlayer) PlayerObject() *host.Object { return e.Player }

// EnemyObject implements EnemyEvent.
func (e *EnemyAttackingPlayer) EnemyObject() *host.Object { return e.Enemy }

// EnemyKillingPlayer is raised before an enemy kills a player.
type EnemyKillingPlayer struct {
	event.Denial
	Player *host.Object
	Enemy  *host.Object
}

// PlayerObject implements PlayerEvent.
func (e *EnemyKillingPlayer) PlayerObject() *host.Object { return e.Player }

// EnemyObject implements EnemyEvent.
func (e *EnemyKillingPlayer) EnemyObject() *host.Object { return e.Enemy }

func heldBy(item *host.Object) *host.Object {
	if item == nil {
		return nil
	}
	p, _ := item.Fields["playerHeldBy"].(*host.Object)
	return p
}
