package patches

import (
	_ "embed"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/host"
)

//go:embed game.yaml
var gameImage []byte

// GameImage returns the embedded game image description.
func GameImage() []byte {
	return gameImage
}

// LoadGame assembles the embedded game image against natives.
func LoadGame(natives host.Natives) (*host.Image, error) {
	return host.ParseImage(gameImage, natives)
}

// Natives returns the native functions the game image calls.
func Natives(logger *zap.Logger) host.Natives {
	if logger == nil {
		logger = zap.NewNop()
	}
	return host.Natives{}.
		Bind("MeetsCollisionConditions", 1, true, func(args []any) (any, error) {
			p, ok := args[0].(*host.Object)
			if !ok || p == nil || p.Type != "PlayerController" || p.Bool("isPlayerDead") {
				return nil, nil
			}
			return p, nil
		}).
		Bind("DamagePlayer", 2, false, func(args []any) (any, error) {
			p, ok := args[0].(*host.Object)
			if !ok || p == nil {
				return nil, errors.Wrap(host.ErrNilReceiver, "DamagePlayer")
			}
			damage, ok := args[1].(int)
			if !ok {
				return nil, errors.Wrapf(host.ErrTypeMismatch, "DamagePlayer: damage is %T", args[1])
			}
			health := p.Int("health") - damage
			if health <= 0 {
				health = 0
				p.SetField("isPlayerDead", true)
			}
			p.SetField("health", health)
			logger.Debug("player damaged",
				zap.Stringer("player", p),
				zap.Int("damage", damage),
			)
			return nil, nil
		}).
		Bind("DeleteSave", 1, false, func(args []any) (any, error) {
			slot, _ := args[0].(string)
			logger.Info("save deleted", zap.String("slot", slot))
			return nil, nil
		}).
		Bind("WriteSave", 2, false, func(args []any) (any, error) {
			slot, _ := args[0].(string)
			key, _ := args[1].(string)
			logger.Debug("save written", zap.String("slot", slot), zap.String("key", key))
			return nil, nil
		}).
		Bind("LoadSave", 2, false, func(args []any) (any, error) {
			slot, _ := args[0].(string)
			key, _ := args[1].(string)
			logger.Debug("save loaded", zap.String("slot", slot), zap.String("key", key))
			return nil, nil
		})
}
