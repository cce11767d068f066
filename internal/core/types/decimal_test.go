package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustMoney(t *testing.T) {
	assert.True(t, MustMoney("10.50").Equal(decimal.NewFromFloat(10.5)))
	assert.Panics(t, func() { MustMoney("ten") })
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("1999.99")
	require.NoError(t, err)
	assert.Equal(t, "1999.99", m.String())

	_, err = NewMoneyFromString("")
	assert.Error(t, err)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "15.00", Percent(MustMoney("150"), decimal.NewFromInt(10)).StringFixed(2))
	assert.Equal(t, "3.33", Percent(MustMoney("33.33"), decimal.NewFromInt(10)).StringFixed(2))
	assert.Equal(t, "0.01", Percent(MustMoney("0.05"), decimal.NewFromInt(25)).StringFixed(2))
}

func TestMinMoney(t *testing.T) {
	assert.True(t, MinMoney(MustMoney("5"), MustMoney("7")).Equal(MustMoney("5")))
	assert.True(t, MinMoney(MustMoney("9"), MustMoney("7")).Equal(MustMoney("7")))
	assert.True(t, RoundMoney(MustMoney("2.345")).Equal(MustMoney("2.35")))
}
