package patches

import (
	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/patcher"
)

// Candidate names.
const (
	PlayerHealingInjuring      = "PlayerHealingInjuring"
	CrawlerOnCollideWithPlayer = "CrawlerOnCollideWithPlayer"
	JesterOnCollideWithPlayer  = "JesterOnCollideWithPlayer"
	EnemyHitEnemy              = "EnemyHitEnemy"
	UsingItem                  = "UsingItem"
	ResetSave                  = "ResetSave"
	GameOpened                 = "GameOpened"
	SaveGameValues             = "SaveGameValues"
	SaveLocalPlayerValues      = "SaveLocalPlayerValues"
	SaveItemsInShip            = "SaveItemsInShip"
	SaveUnsellableItems        = "SaveUnsellableItems"
	LoadingGlobalSave          = "LoadingGlobalSave"
	SpawnUnlockable            = "SpawnUnlockable"
	LoadUnlockables            = "LoadUnlockables"
	LoadShipGrabbableItems     = "LoadShipGrabbableItems"
	SetTimeAndPlanet           = "SetTimeAndPlanet"
)

// Candidates returns every game candidate. ignored names are marked Ignore.
func Candidates(ignored ...string) []patcher.Candidate {
	cands := []patcher.Candidate{
		{
			Name:    PlayerHealingInjuring,
			Type:    "PlayerController",
			Method:  "MakeCriticallyInjured",
			Events:  []event.EventType{event.CriticallyInjure, event.Healing},
			Rewrite: healingInjuring,
		},
		{
			Name:    CrawlerOnCollideWithPlayer,
			Type:    "CrawlerAI",
			Method:  "OnCollideWithPlayer",
			Events:  []event.EventType{event.EnemyAttackingPlayer},
			Rewrite: enemyAttackingPlayer,
		},
		{
			Name:    JesterOnCollideWithPlayer,
			Type:    "JesterAI",
			Method:  "OnCollideWithPlayer",
			Events:  []event.EventType{event.EnemyAttackingPlayer},
			Rewrite: enemyAttackingPlayer,
		},
		{
			Name:    EnemyHitEnemy,
			Type:    "EnemyAI",
			Method:  "HitEnemy",
			Events:  []event.EventType{event.HittingEnemy},
			Rewrite: hittingEnemy,
		},
		{
			Name:    UsingItem,
			Type:    "GrabbableObject",
			Method:  "ItemActivate",
			Events:  []event.EventType{event.UsingItem},
			Rewrite: usingItem,
		},
		{
			Name:    ResetSave,
			Type:    "GameNetworkManager",
			Method:  "ResetSavedGameValues",
			Events:  []event.EventType{event.ResetSave},
			Rewrite: resetSave,
		},
		{
			Name:    GameOpened,
			Type:    "MenuManager",
			Method:  "Start",
			Rewrite: gameOpened,
		},
		{
			Name:    SaveGameValues,
			Type:    "GameNetworkManager",
			Method:  "SaveGameValues",
			Events:  []event.EventType{event.Saving},
			Rewrite: saving(events.SaveGameValues, managerSlot...),
		},
		{
			Name:    SaveLocalPlayerValues,
			Type:    "GameNetworkManager",
			Method:  "SaveLocalPlayerValues",
			Events:  []event.EventType{event.Saving},
			Rewrite: saving(events.SaveLocalPlayerValues, generalSlot...),
		},
		{
			Name:    SaveItemsInShip,
			Type:    "GameNetworkManager",
			Method:  "SaveItemsInShip",
			Events:  []event.EventType{event.Saving},
			Rewrite: saving(events.SaveShipItems, managerSlot...),
		},
		{
			Name:    SaveUnsellableItems,
			Type:    "GameNetworkManager",
			Method:  "ConvertUnsellableItemsToCredits",
			Events:  []event.EventType{event.Saving},
			Rewrite: saving(events.SaveUnsellableItems, managerSlot...),
		},
		{
			Name:    LoadingGlobalSave,
			Type:    "GameNetworkManager",
			Method:  "Start",
			Events:  []event.EventType{event.LoadingSave},
			Rewrite: loadingSave(events.LoadedLastSelectedSave, generalSlot...),
		},
		{
			Name:    SpawnUnlockable,
			Type:    "StartOfRound",
			Method:  "SpawnUnlockable",
			Events:  []event.EventType{event.LoadingSave},
			Rewrite: loadingSave(events.LoadedSpawnUnlockable, roundSlot...),
		},
		{
			Name:    LoadUnlockables,
			Type:    "StartOfRound",
			Method:  "LoadUnlockables",
			Events:  []event.EventType{event.LoadingSave},
			Rewrite: loadingSave(events.LoadedUnlockables, roundSlot...),
		},
		{
			Name:    LoadShipGrabbableItems,
			Type:    "StartOfRound",
			Method:  "LoadShipGrabbableItems",
			Events:  []event.EventType{event.LoadingSave},
			Rewrite: loadingSave(events.LoadedShipGrabbableItems, roundSlot...),
		},
		{
			Name:    SetTimeAndPlanet,
			Type:    "StartOfRound",
			Method:  "SetTimeAndPlanetToSavedSettings",
			Events:  []event.EventType{event.LoadingSave},
			Rewrite: loadingSave(events.LoadedTimeAndPlanetSettings, roundSlot...),
		},
	}
	for i := range cands {
		for _, name := range ignored {
			if cands[i].Name == name {
				cands[i].Ignore = true
			}
		}
	}
	return cands
}
