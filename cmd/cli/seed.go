package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"shadowkv/internal/common"
	"shadowkv/internal/xact"
)

var kvPairs = [][2]string{
	{"apple", "artichoke"},
	{"banana", "broccoli"},
	{"cherry", "cabbage"},
	{"durian", "daikon"},
	{"elderberry", "eggplant"},
	{"fig", "fennel"},
	{"grapefruit", "ginger"},
	{"honeydew", "horseradish"},
	{"imbe", "ivygourd"},
	{"jackfruit", "jicama"},
	{"kiwi", "kale"},
	{"lime", "leek"},
	{"mango", "mushroom"},
	{"nectarine", "nopale"},
	{"orange", "okra"},
	{"peach", "peas"},
	{"quince", "quinoa"},
	{"raspberry", "radish"},
	{"strawberry", "spinach"},
	{"tangerine", "tomato"},
	{"ugni", "ube"},
	{"voavanga", "vanilla"},
	{"watermelon", "watercress"},
	{"ximenia", "xanthan"},
	{"yuzu", "yam"},
	{"zarzamora", "zucchini"},
}

// runSeed sets 26 * x attributes and commits them in one transaction along
// with anything already pending. Numbering continues from the previous seed
// in this REPL.
func (r *repl) runSeed(ctx context.Context, x int) {
	start := time.Now()
	startIndex := r.seedIndex

	// Randomize the order of fruits for more realistic workload
	shuffled := make([][2]string, len(kvPairs))
	copy(shuffled, kvPairs)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	count := 0
	for i := 0; i < x; i++ {
		for _, pair := range shuffled {
			name := fmt.Sprintf("%s%d", pair[0], r.seedIndex)
			value := fmt.Sprintf("%s%d", pair[1], r.seedIndex)
			r.sess.SetAttribute(name, value)
			count++
		}
		r.seedIndex++
	}

	if !r.fire(ctx, xact.Event{Kind: xact.Commit}) {
		return
	}
	clear(r.savepoints)

	common.LogDuration(start, "seeded %d attributes (26 * %d, index %d-%d)",
		count, x, startIndex, r.seedIndex-1)
}
