package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/forge/internal/ir"
)

func TestNewStorage_RegistersRecipeAndLimitItems(t *testing.T) {
	recipes := []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))}
	limits := []ir.Limit{ir.NewLimit(ir.Of("C", 1), 3)}

	s, err := NewStorage(ir.Of("A", 2), limits, recipes)
	require.NoError(t, err)

	for _, item := range []ir.Item{"A", "B", "C"} {
		assert.True(t, s.Registered(item), "item %s should be registered", item)
	}
	assert.False(t, s.Registered("D"))

	qty, err := s.Quantity("B")
	require.NoError(t, err)
	assert.Equal(t, int64(0), qty)

	qty, err = s.Quantity("A")
	require.NoError(t, err)
	assert.Equal(t, int64(2), qty)
}

func TestNewStorage_CopiesInitial(t *testing.T) {
	initial := ir.Of("A", 2)
	s, err := NewStorage(initial, nil, nil)
	require.NoError(t, err)

	initial["A"] = 99
	qty, err := s.Quantity("A")
	require.NoError(t, err)
	assert.Equal(t, int64(2), qty)
}

func TestNewStorage_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		initial ir.Multiset
		limits  []ir.Limit
		recipes []ir.Recipe
		code    RuntimeErrorCode
	}{
		{
			name:    "negative initial",
			initial: ir.Of("A", -1),
			code:    ErrCodeNegativeQuantity,
		},
		{
			name:    "empty initial item",
			initial: ir.Of("", 1),
			code:    ErrCodeEmptyItem,
		},
		{
			name:    "negative recipe input",
			recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", -1), ir.Of("B", 1))},
			code:    ErrCodeNegativeQuantity,
		},
		{
			name:    "empty recipe item",
			recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("", 1))},
			code:    ErrCodeEmptyItem,
		},
		{
			name:   "empty limit item",
			limits: []ir.Limit{ir.NewLimit(ir.Of("", 1), 1)},
			code:   ErrCodeEmptyItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStorage(tt.initial, tt.limits, tt.recipes)
			require.Error(t, err)

			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.code, re.Code)
		})
	}
}

func TestStorage_QuantityUnregistered(t *testing.T) {
	s, err := NewStorage(ir.Of("A", 1), nil, nil)
	require.NoError(t, err)

	_, err = s.Quantity("Z")
	require.Error(t, err)
	assert.True(t, IsUnregisteredItemError(err))

	var ue *UnregisteredItemError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ir.Item("Z"), ue.Item)
	assert.Equal(t, -1, ue.Recipe)
}

func TestStorage_Contains(t *testing.T) {
	s, err := NewStorage(ir.Of("A", 2, "B", 1), nil, nil)
	require.NoError(t, err)

	assert.True(t, s.Contains(ir.Of("A", 2)))
	assert.True(t, s.Contains(ir.Of("A", 1, "B", 1)))
	assert.True(t, s.Contains(ir.Multiset{}))
	assert.False(t, s.Contains(ir.Of("A", 3)))
	assert.False(t, s.Contains(ir.Of("Q", 1)), "absent items count as zero")
	assert.True(t, s.Contains(ir.Of("Q", 0)))
}

func TestStorage_TryApply_Commits(t *testing.T) {
	r := ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 2))
	s, err := NewStorage(ir.Of("A", 1), nil, []ir.Recipe{r})
	require.NoError(t, err)

	fired, err := s.TryApply(r)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.True(t, ir.Of("A", 0, "B", 2).Equal(s.Snapshot()))

	fired, err = s.TryApply(r)
	require.NoError(t, err)
	assert.False(t, fired, "no A left")
	assert.True(t, ir.Of("B", 2).Equal(s.Snapshot()))
}

// TestStorage_TryApply_Atomic verifies a failed exchange leaves no trace,
// whether it fails on stock or on a limit.
func TestStorage_TryApply_Atomic(t *testing.T) {
	t.Run("insufficient stock", func(t *testing.T) {
		r := ir.NewRecipe(ir.Of("A", 1, "B", 1), ir.Of("C", 1))
		s, err := NewStorage(ir.Of("A", 5), nil, []ir.Recipe{r})
		require.NoError(t, err)
		before := s.Snapshot()

		fired, err := s.TryApply(r)
		require.NoError(t, err)
		assert.False(t, fired)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("limit violated", func(t *testing.T) {
		r := ir.NewRecipe(ir.Of("A", 1), ir.Of("C", 2))
		limits := []ir.Limit{ir.NewLimit(ir.Of("C", 1), 1)}
		s, err := NewStorage(ir.Of("A", 5), limits, []ir.Recipe{r})
		require.NoError(t, err)
		before := s.Snapshot()

		fired, err := s.TryApply(r)
		require.NoError(t, err)
		assert.False(t, fired)
		assert.Equal(t, before, s.Snapshot())
	})
}

// TestStorage_TryApply_LimitOnCandidate verifies limits are evaluated on the
// state after the exchange, so consuming an item can make room.
func TestStorage_TryApply_LimitOnCandidate(t *testing.T) {
	r := ir.NewRecipe(ir.Of("X", 1), ir.Of("Y", 1))
	limits := []ir.Limit{ir.NewLimit(ir.Of("X", 1, "Y", 1), 3)}
	s, err := NewStorage(ir.Of("X", 3), limits, []ir.Recipe{r})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		fired, err := s.TryApply(r)
		require.NoError(t, err)
		assert.True(t, fired)
	}
	assert.True(t, ir.Of("Y", 3).Equal(s.Snapshot()))
}

func TestStorage_TryApply_NegativeCoefficients(t *testing.T) {
	// Y - X <= 0: Y may never exceed X.
	r := ir.NewRecipe(ir.Multiset{}, ir.Of("Y", 1))
	limits := []ir.Limit{ir.NewLimit(ir.Of("Y", 1, "X", -1), 0)}
	s, err := NewStorage(ir.Of("X", 2), limits, []ir.Recipe{r})
	require.NoError(t, err)

	fired, _ := s.TryApply(r)
	assert.True(t, fired)
	fired, _ = s.TryApply(r)
	assert.True(t, fired)
	fired, _ = s.TryApply(r)
	assert.False(t, fired)

	qty, err := s.Quantity("Y")
	require.NoError(t, err)
	assert.Equal(t, int64(2), qty)
}

func TestStorage_TryApply_Unregistered(t *testing.T) {
	s, err := NewStorage(ir.Of("A", 1), nil, nil)
	require.NoError(t, err)

	fired, err := s.TryApply(ir.NewRecipe(ir.Of("A", 1), ir.Of("Z", 1)))
	require.Error(t, err)
	assert.False(t, fired)
	assert.True(t, IsUnregisteredItemError(err))

	qty, err := s.Quantity("A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), qty, "storage unchanged after unregistered failure")
}

func TestStorage_SnapshotAndLimitsAreCopies(t *testing.T) {
	limits := []ir.Limit{ir.NewLimit(ir.Of("A", 1), 4)}
	s, err := NewStorage(ir.Of("A", 1), limits, nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap["A"] = 100
	got := s.Limits()
	got[0].Coefficients["A"] = 100
	limits[0].Bound = 0

	qty, _ := s.Quantity("A")
	assert.Equal(t, int64(1), qty)
	assert.Equal(t, int64(1), s.Limits()[0].Coefficients["A"])
	assert.Equal(t, int64(4), s.Limits()[0].Bound)
}

func TestStorage_InitialMayViolateLimit(t *testing.T) {
	limits := []ir.Limit{ir.NewLimit(ir.Of("A", 1), 1)}
	r := ir.NewRecipe(ir.Of("A", 1), ir.Multiset{})
	s, err := NewStorage(ir.Of("A", 3), limits, []ir.Recipe{r})
	require.NoError(t, err)

	// 3 -> 2 still violates A <= 1, so the drain cannot fire.
	fired, err := s.TryApply(r)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.False(t, s.SatisfiesLimits(s.Snapshot()))
}
