package animation

import (
	"sync/atomic"
)

// Target identifies one of the mascot's render surfaces.
type Target string

const (
	TargetMain   Target = "main"
	TargetHeader Target = "header"
)

// Targets lists every surface the sequencer drives.
var Targets = []Target{TargetMain, TargetHeader}

// Instance is a loaded animation on one target.
type Instance interface {
	Animation() string
	Destroy()
}

// Player loads animations onto targets.
type Player interface {
	Load(target Target, animation string) (Instance, error)
}

// AssetPlayer validates animations against a Library before handing out
// instances. Rendering is left to whoever consumes animation.changed events.
type AssetPlayer struct {
	lib  *Library
	live atomic.Int64
}

// NewAssetPlayer creates a player. A nil library accepts any animation id.
func NewAssetPlayer(lib *Library) *AssetPlayer {
	return &AssetPlayer{lib: lib}
}

// Load resolves the animation's metadata and returns a live instance.
func (p *AssetPlayer) Load(target Target, animation string) (Instance, error) {
	inst := &assetInstance{player: p, target: target, animation: animation}
	if p.lib != nil {
		meta, err := p.lib.Lookup(animation)
		if err != nil {
			return nil, err
		}
		inst.meta = meta
	}
	p.live.Add(1)
	return inst, nil
}

// Live returns the number of instances not yet destroyed.
func (p *AssetPlayer) Live() int {
	return int(p.live.Load())
}

type assetInstance struct {
	player    *AssetPlayer
	target    Target
	animation string
	meta      Meta
	destroyed atomic.Bool
}

func (i *assetInstance) Animation() string { return i.animation }

func (i *assetInstance) Destroy() {
	if i.destroyed.CompareAndSwap(false, true) {
		i.player.live.Add(-1)
	}
}
