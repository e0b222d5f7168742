// Package datagen produces pseudo-random test data. A Generator seeded with
// the same value always yields the same sequence, which keeps seeded mock
// datasets and generated request payloads reproducible across runs.
package datagen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	r   *rand.Rand
	tag string
	seq int
}

// New returns a Generator seeded with the given value.
func New(seed int64) *Generator {
	return NewStream(seed, "")
}

// NewStream returns a Generator whose output depends on both the seed and a
// stream name. Components that share one configured seed use distinct stream
// names so their generated values cannot collide: the stream alters the
// random sequence and is embedded in SKUs and emails outright.
func NewStream(seed int64, stream string) *Generator {
	s := uint64(seed)
	for _, b := range []byte(stream) {
		s = (s ^ uint64(b)) * 0x100000001b3
	}
	return &Generator{
		r:   rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)),
		tag: strings.ToUpper(stream),
	}
}

var (
	firstNames = []string{
		"Alice", "Bruno", "Chen", "Dana", "Elif", "Farid", "Greta", "Hiro",
		"Ines", "Jonas", "Kira", "Luis", "Mona", "Niko", "Omar", "Priya",
	}
	lastNames = []string{
		"Anders", "Baptiste", "Costa", "Duarte", "Eriksen", "Fischer",
		"Garcia", "Haddad", "Ivanova", "Janssen", "Kowalski", "Larsen",
		"Moreau", "Novak", "Okafor", "Petrov",
	}
	adjectives = []string{
		"compact", "wireless", "ergonomic", "portable", "rugged",
		"foldable", "solar", "smart", "silent", "modular",
	}
	nouns = []string{
		"keyboard", "lamp", "speaker", "backpack", "charger",
		"monitor", "kettle", "tripod", "router", "desk",
	}
	categories = []string{"electronics", "office", "kitchen", "outdoors", "accessories"}
)

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.IntN(n)
}

func (g *Generator) next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.seq
}

// String returns n random lowercase letters.
func (g *Generator) String(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[g.r.IntN(len(letters))]
	}
	return string(b)
}

// IntBetween returns an integer in [min, max].
func (g *Generator) IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.intN(max-min+1)
}

// Price returns a price in [min, max] rounded to whole cents.
func (g *Generator) Price(min, max float64) float64 {
	g.mu.Lock()
	v := min + g.r.Float64()*(max-min)
	g.mu.Unlock()
	return math.Round(v*100) / 100
}

func (g *Generator) FullName() string {
	return Pick(g, firstNames) + " " + Pick(g, lastNames)
}

// Email returns an address unique for this generator and its stream.
func (g *Generator) Email() string {
	local := fmt.Sprintf("%s.%d", g.String(6), g.next())
	if g.tag != "" {
		local = strings.ToLower(g.tag) + "." + local
	}
	return local + "@example.com"
}

func (g *Generator) Phone() string {
	return fmt.Sprintf("+1-555-%04d", g.intN(10000))
}

// SKU returns a stock keeping unit unique for this generator and its stream.
func (g *Generator) SKU() string {
	prefix := strings.ToUpper(g.String(3))
	if g.tag != "" {
		prefix = g.tag + "-" + prefix
	}
	return fmt.Sprintf("SKU-%s-%04d", prefix, g.next())
}

func (g *Generator) ProductName() string {
	return Pick(g, adjectives) + " " + Pick(g, nouns)
}

func (g *Generator) Category() string {
	return Pick(g, categories)
}

// Description returns a short product blurb.
func (g *Generator) Description() string {
	return fmt.Sprintf("A %s %s for everyday use.", Pick(g, adjectives), Pick(g, nouns))
}

// UUID returns a random v4 UUID. These are not derived from the seed.
func (g *Generator) UUID() string {
	return uuid.NewString()
}

// Pick returns a random element of items.
func Pick[T any](g *Generator, items []T) T {
	return items[g.intN(len(items))]
}

// UserPayload returns a request body for creating a user.
func (g *Generator) UserPayload() map[string]any {
	return map[string]any{
		"name":  g.FullName(),
		"email": g.Email(),
		"phone": g.Phone(),
		"role":  "user",
	}
}

// ProductPayload returns a request body for creating a product.
func (g *Generator) ProductPayload() map[string]any {
	return map[string]any{
		"name":        g.ProductName(),
		"description": g.Description(),
		"sku":         g.SKU(),
		"category":    g.Category(),
		"price":       g.Price(5, 500),
		"stock":       g.IntBetween(10, 100),
	}
}

// OrderPayload returns a request body ordering the given products.
func (g *Generator) OrderPayload(userID int, productIDs ...int) map[string]any {
	items := make([]map[string]any, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, map[string]any{
			"product_id": id,
			"quantity":   g.IntBetween(1, 3),
		})
	}
	return map[string]any{
		"user_id": userID,
		"items":   items,
	}
}
