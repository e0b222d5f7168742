package datagen

import (
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameSeedYieldsSameSequence(t *testing.T) {
	a, b := New(42), New(42)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.FullName(), b.FullName())
		assert.Equal(t, a.Email(), b.Email())
		assert.Equal(t, a.SKU(), b.SKU())
		assert.Equal(t, a.IntBetween(1, 100), b.IntBetween(1, 100))
	}
}

func TestStreamsWithSameSeedDiverge(t *testing.T) {
	mock, suite := NewStream(99, "mock"), NewStream(99, "suite")

	mockSKUs := map[string]bool{}
	for i := 0; i < 50; i++ {
		mockSKUs[mock.SKU()] = true
	}
	for i := 0; i < 50; i++ {
		require.False(t, mockSKUs[suite.SKU()], "streams sharing a seed produced the same SKU")
	}
}

func TestStreamIsDeterministic(t *testing.T) {
	a, b := NewStream(42, "suite"), NewStream(42, "suite")
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.SKU(), b.SKU())
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a, b := New(1), New(2)

	same := 0
	for i := 0; i < 20; i++ {
		if a.FullName() == b.FullName() {
			same++
		}
	}
	assert.Less(t, same, 20)
}

func TestSKUsAreUnique(t *testing.T) {
	g := New(7)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		sku := g.SKU()
		require.False(t, seen[sku], "duplicate SKU %s", sku)
		seen[sku] = true
	}
}

func TestSKUsAreUniqueUnderConcurrency(t *testing.T) {
	g := New(7)
	const workers, perWorker = 8, 50

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				sku := g.SKU()
				mu.Lock()
				assert.False(t, seen[sku], "duplicate SKU %s", sku)
				seen[sku] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestIntBetweenStaysInRange(t *testing.T) {
	g := New(3)
	for i := 0; i < 100; i++ {
		v := g.IntBetween(5, 9)
		assert.GreaterOrEqual(t, v, 5)
		assert.LessOrEqual(t, v, 9)
	}
	assert.Equal(t, 5, g.IntBetween(5, 5))
	assert.Equal(t, 5, g.IntBetween(5, 1))
}

func TestPriceIsRoundedToCents(t *testing.T) {
	g := New(3)
	for i := 0; i < 100; i++ {
		p := g.Price(5, 500)
		assert.GreaterOrEqual(t, p, 5.0)
		assert.LessOrEqual(t, p, 500.0)
		cents := p * 100
		assert.InDelta(t, math.Round(cents), cents, 1e-9)
	}
}

func TestStringLengthAndAlphabet(t *testing.T) {
	g := New(11)
	s := g.String(12)
	assert.Len(t, s, 12)
	for _, c := range s {
		assert.True(t, c >= 'a' && c <= 'z', "unexpected character %q", c)
	}
}

func TestUUIDIsParseable(t *testing.T) {
	g := New(1)
	_, err := uuid.Parse(g.UUID())
	assert.NoError(t, err)
}

func TestPickReturnsAnElement(t *testing.T) {
	g := New(5)
	items := []string{"a", "b", "c"}
	for i := 0; i < 20; i++ {
		assert.Contains(t, items, Pick(g, items))
	}
}

func TestUserPayloadShape(t *testing.T) {
	g := New(9)
	payload := g.UserPayload()

	assert.Contains(t, payload, "name")
	assert.Contains(t, payload, "email")
	assert.Equal(t, "user", payload["role"])
	assert.Contains(t, payload["email"], "@example.com")
}

func TestProductPayloadShape(t *testing.T) {
	g := New(9)
	payload := g.ProductPayload()

	assert.Contains(t, payload, "name")
	assert.Contains(t, payload["sku"], "SKU-")
	stock, ok := payload["stock"].(int)
	require.True(t, ok)
	assert.GreaterOrEqual(t, stock, 10)
	assert.LessOrEqual(t, stock, 100)
}

func TestOrderPayloadShape(t *testing.T) {
	g := New(9)
	payload := g.OrderPayload(3, 10, 20)

	assert.Equal(t, 3, payload["user_id"])
	items, ok := payload["items"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, 10, items[0]["product_id"])
	assert.Equal(t, 20, items[1]["product_id"])
	for _, item := range items {
		q := item["quantity"].(int)
		assert.GreaterOrEqual(t, q, 1)
		assert.LessOrEqual(t, q, 3)
	}
}
