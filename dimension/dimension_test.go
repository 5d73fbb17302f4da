package dimension

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetArithmetic(t *testing.T) {
	acc := Length.Div(Time.Pow(2))
	assert.Equal(t, New(0, 1, -2), acc)
	assert.Equal(t, "[0 1 -2 0 0 0 0]", acc.String())
	assert.Equal(t, New(1, -3), Density)
	assert.True(t, Length.Div(Length).IsDimensionless())
	assert.True(t, Volume.Mul(Density).Equal(Mass))
}

func TestNewTooManyExponents(t *testing.T) {
	assert.Panics(t, func() { New(1, 2, 3, 4, 5, 6, 7, 8) })
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(Mass, Mass, "same"))
	err := Check(Mass, Length, "rho vs U")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMismatch))
	assert.Contains(t, err.Error(), "rho vs U")
}

func TestScalar(t *testing.T) {
	rho := NewScalar("rho", Density, 1000)
	rho2 := NewScalar("rho2", Density, 500)

	sum, err := rho.Add(rho2)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, sum.Value)
	assert.Equal(t, Density, sum.Dims)

	diff, err := rho.Sub(rho2)
	require.NoError(t, err)
	assert.Equal(t, 500.0, diff.Value)

	_, err = rho.Add(NewScalar("L", Length, 1))
	assert.ErrorIs(t, err, ErrMismatch)

	m := rho.Mul(NewScalar("V", Volume, 2))
	assert.Equal(t, Mass, m.Dims)
	assert.Equal(t, 2000.0, m.Value)

	q := m.Div(NewScalar("V", Volume, 2))
	assert.Equal(t, Density, q.Dims)
	assert.Equal(t, 1000.0, q.Value)
}
