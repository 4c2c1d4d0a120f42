package shoppinglist

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateMergesByNameInFirstSeenOrder(t *testing.T) {
	got := Aggregate([]IngredientLine{
		{Name: "Flour", Unit: "g", Amount: 200},
		{Name: "Sugar", Unit: "g", Amount: 50},
		{Name: "Flour", Unit: "g", Amount: 100},
	})

	assert.Equal(t, []Entry{
		{Name: "Flour", Unit: "g", TotalAmount: 300},
		{Name: "Sugar", Unit: "g", TotalAmount: 50},
	}, got)
}

func TestAggregateSingleLine(t *testing.T) {
	got := Aggregate([]IngredientLine{{Name: "Salt", Unit: "g", Amount: 5}})
	assert.Equal(t, []Entry{{Name: "Salt", Unit: "g", TotalAmount: 5}}, got)
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregateZeroAmount(t *testing.T) {
	got := Aggregate([]IngredientLine{
		{Name: "Water", Unit: "ml", Amount: 0},
		{Name: "Water", Unit: "ml", Amount: 250},
	})
	assert.Equal(t, []Entry{{Name: "Water", Unit: "ml", TotalAmount: 250}}, got)
}

func TestAggregateFirstUnitWins(t *testing.T) {
	got := Aggregate([]IngredientLine{
		{Name: "Milk", Unit: "ml", Amount: 200},
		{Name: "Milk", Unit: "cup", Amount: 1},
	})
	assert.Equal(t, []Entry{{Name: "Milk", Unit: "ml", TotalAmount: 201}}, got)
}

func randomLines(r *rand.Rand, n int) []IngredientLine {
	names := []string{"Flour", "Sugar", "Eggs", "Salt", "Butter", "Milk", "Yeast"}
	out := make([]IngredientLine, n)
	for i := range out {
		name := names[r.Intn(len(names))]
		out[i] = IngredientLine{Name: name, Unit: "u-" + name, Amount: 1 + r.Intn(500)}
	}
	return out
}

func TestAggregateProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		lines := randomLines(r, r.Intn(40))
		got := Aggregate(lines)

		wantSums := map[string]int{}
		var order []string
		for _, l := range lines {
			if _, ok := wantSums[l.Name]; !ok {
				order = append(order, l.Name)
			}
			wantSums[l.Name] += l.Amount
		}

		require.Len(t, got, len(wantSums))
		for i, e := range got {
			assert.Equal(t, order[i], e.Name)
			assert.Equal(t, wantSums[e.Name], e.TotalAmount)
		}
	}
}

// Moving lines of one name around, while the first occurrence of every name
// keeps its relative position, must not change output order.
func TestAggregateOrderStableUnderSameNameShuffle(t *testing.T) {
	a := []IngredientLine{
		{Name: "Flour", Unit: "g", Amount: 1},
		{Name: "Eggs", Unit: "pcs", Amount: 2},
		{Name: "Flour", Unit: "g", Amount: 3},
		{Name: "Salt", Unit: "g", Amount: 4},
		{Name: "Eggs", Unit: "pcs", Amount: 5},
	}
	b := []IngredientLine{
		{Name: "Flour", Unit: "g", Amount: 3},
		{Name: "Flour", Unit: "g", Amount: 1},
		{Name: "Eggs", Unit: "pcs", Amount: 5},
		{Name: "Eggs", Unit: "pcs", Amount: 2},
		{Name: "Salt", Unit: "g", Amount: 4},
	}
	assert.Equal(t, Aggregate(a), Aggregate(b))
}

func TestUnitConflicts(t *testing.T) {
	got := UnitConflicts([]IngredientLine{
		{Name: "Milk", Unit: "ml", Amount: 1},
		{Name: "Salt", Unit: "g", Amount: 1},
		{Name: "Milk", Unit: "cup", Amount: 1},
		{Name: "Milk", Unit: "l", Amount: 1},
		{Name: "Salt", Unit: "g", Amount: 1},
	})
	assert.Equal(t, []string{"Milk"}, got)
	assert.Empty(t, UnitConflicts(nil))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate([]IngredientLine{{Name: "Salt", Unit: "g", Amount: 0}}))

	err := Validate([]IngredientLine{
		{Name: "Salt", Unit: "g", Amount: 1},
		{Name: "  ", Unit: "g", Amount: 1},
	})
	var le *LineError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 1, le.Index)
	assert.ErrorIs(t, err, ErrEmptyName)

	err = Validate([]IngredientLine{{Name: "Salt", Unit: "g", Amount: -2}})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}
