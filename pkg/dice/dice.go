// Package dice resolves story dice rolls into a success or failure branch.
package dice

import (
	"sync"

	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/word-quest/pkg/story"
)

// Roller produces a uniformly distributed integer in [1, faces].
type Roller interface {
	Roll(faces int) int
}

// RandomRoller is a Roller backed by a seeded d20 roller.
type RandomRoller struct {
	mu     sync.Mutex
	roller *d20.Roller
}

func NewRandomRoller(seed int64) *RandomRoller {
	return &RandomRoller{roller: d20.NewRoller(seed)}
}

// Roll draws one die. Faces below 1 always roll 1.
func (r *RandomRoller) Roll(faces int) int {
	if faces < 1 {
		return 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.roller.Dice(1, uint(faces)).Roll()
	if err != nil {
		return 1
	}
	return out.Value
}

// Fixed replays a sequence of results, repeating the last one when exhausted.
type Fixed struct {
	Results []int
	next    int
}

func (f *Fixed) Roll(faces int) int {
	if len(f.Results) == 0 {
		return faces
	}
	i := min(f.next, len(f.Results)-1)
	f.next++
	return f.Results[i]
}

// Outcome is the result of one resolved roll.
type Outcome struct {
	Rolls      []int  `json:"rolls"` // presentation draws followed by the final draw
	Final      int    `json:"final"`
	Target     int    `json:"target"`
	Success    bool   `json:"success"`
	NextNodeID string `json:"nextNodeId"`
}

// Resolve rolls the die flourishes+1 times. Only the last draw decides the
// branch; earlier draws exist for the rolling animation.
func Resolve(cfg *story.DiceRoll, r Roller, flourishes int) Outcome {
	rolls := make([]int, 0, flourishes+1)
	for range max(flourishes, 0) {
		rolls = append(rolls, r.Roll(cfg.DiceType))
	}
	final := r.Roll(cfg.DiceType)
	rolls = append(rolls, final)

	out := Outcome{
		Rolls:   rolls,
		Final:   final,
		Target:  cfg.TargetNumber,
		Success: final >= cfg.TargetNumber,
	}
	if out.Success {
		out.NextNodeID = cfg.SuccessNodeID
	} else {
		out.NextNodeID = cfg.FailureNodeID
	}
	return out
}

// SuccessChance is the probability of success for a fair die.
func SuccessChance(cfg *story.DiceRoll) float64 {
	if cfg.DiceType < 1 {
		return 0
	}
	hits := cfg.DiceType - cfg.TargetNumber + 1
	hits = max(0, min(hits, cfg.DiceType))
	return float64(hits) / float64(cfg.DiceType)
}
