package curve

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-curves/internal/model"
)

func TestWassersteinKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Curve
		want float64
	}{
		{
			name: "unit shift",
			a:    model.Curve{{Quantity: 0, Price: 1}, {Quantity: 1, Price: 1}},
			b:    model.Curve{{Quantity: 1, Price: 1}, {Quantity: 2, Price: 1}},
			want: 1,
		},
		{
			name: "weights follow price",
			a:    model.Curve{{Quantity: 0, Price: 3}, {Quantity: 4, Price: 1}},
			b:    model.Curve{{Quantity: 0, Price: 1}, {Quantity: 4, Price: 3}},
			want: 2,
		},
		{
			name: "negative prices are offset",
			a:    model.Curve{{Quantity: 0, Price: -2}, {Quantity: 1, Price: 0}},
			b:    model.Curve{{Quantity: 0, Price: 0}, {Quantity: 1, Price: -2}},
			want: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Wasserstein(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestWassersteinSymmetricAndZeroOnSelf(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	randomCurve := func() model.Curve {
		n := 2 + rng.Intn(30)
		c := make(model.Curve, n)
		q := 0.0
		for i := range c {
			q += rng.Float64() * 50
			c[i] = model.CurvePoint{Quantity: q, Price: rng.Float64()*400 - 100}
		}
		return c
	}

	for i := 0; i < 50; i++ {
		a, b := randomCurve(), randomCurve()
		ab, err := Wasserstein(a, b)
		require.NoError(t, err)
		ba, err := Wasserstein(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.GreaterOrEqual(t, ab, 0.0)

		aa, err := Wasserstein(a, a)
		require.NoError(t, err)
		assert.Equal(t, 0.0, aa)
	}
}

func TestWassersteinOnBuiltCurves(t *testing.T) {
	supply, demand, err := Build(fixture(), 1)
	require.NoError(t, err)
	d, err := Wasserstein(supply, demand)
	require.NoError(t, err)
	assert.Greater(t, d, 0.0)
}

func TestWassersteinErrors(t *testing.T) {
	_, err := Wasserstein(nil, goldenSupply)
	assert.True(t, errors.Is(err, model.ErrEmptyCurve))

	zero := model.Curve{{Quantity: 1, Price: 0}, {Quantity: 2, Price: 0}}
	_, err = Wasserstein(zero, goldenSupply)
	assert.ErrorIs(t, err, model.ErrZeroMass)
}

func TestSubsampleReproducible(t *testing.T) {
	c := make(model.Curve, 200)
	for i := range c {
		c[i] = model.CurvePoint{Quantity: float64(i), Price: float64(i % 7)}
	}

	a := Subsample(c, 0.3, rand.New(rand.NewSource(123)))
	b := Subsample(c, 0.3, rand.New(rand.NewSource(123)))
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
	assert.Less(t, len(a), len(c))
	for i := 1; i < len(a); i++ {
		assert.Greater(t, a[i].Quantity, a[i-1].Quantity)
	}

	assert.Empty(t, Subsample(c, 0, rand.New(rand.NewSource(1))))
	assert.Len(t, Subsample(c, 1, rand.New(rand.NewSource(1))), len(c))
}
