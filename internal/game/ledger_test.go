package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerUnknownPlayerHasZeroBalance(t *testing.T) {
	l := NewLedger()
	assert.True(t, l.Balance("ghost").IsZero())
	assert.Equal(t, []PlayerID{"ghost"}, l.Players())
}

func TestLedgerDebitCredit(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", d("100"))

	require.NoError(t, l.Debit("alice", d("40.25")))
	assert.True(t, l.Balance("alice").Equal(d("59.75")))

	l.Credit("alice", d("0.25"))
	assert.True(t, l.Balance("alice").Equal(d("60")))
}

func TestLedgerRejectsOverdraw(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", d("10"))

	err := l.Debit("alice", d("10.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, l.Balance("alice").Equal(d("10")), "failed debit must not touch the balance")

	require.NoError(t, l.Debit("alice", d("10")))
	assert.True(t, l.Balance("alice").IsZero())
}

func TestLedgerNegativeCreditPanics(t *testing.T) {
	l := NewLedger()
	assert.Panics(t, func() { l.Credit("alice", d("-1")) })
}

func TestLedgerTotal(t *testing.T) {
	l := NewLedger()
	l.Credit("bob", d("5"))
	l.Credit("alice", d("7.5"))
	require.NoError(t, l.Debit("bob", d("2")))

	assert.True(t, l.Total().Equal(d("10.5")))
	assert.Equal(t, []PlayerID{"alice", "bob"}, l.Players())
}

func TestLedgerNeverNegative(t *testing.T) {
	l := NewLedger()
	amounts := []string{"3", "7", "1.5", "20", "0.5", "4", "9.99"}
	for i, a := range amounts {
		if i%2 == 0 {
			l.Credit("p", d(a))
		} else {
			_ = l.Debit("p", d(a))
		}
		assert.False(t, l.Balance("p").IsNegative(), "step %d", i)
	}
}

func TestLedgerOpeningBalance(t *testing.T) {
	l := NewLedgerWithOpening(d("25"))
	assert.True(t, l.Balance("new").Equal(d("25")))

	require.NoError(t, l.Debit("new", d("10")))
	assert.True(t, l.Balance("new").Equal(d("15")), "opening granted once")
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"10", true},
		{"0.01", true},
		{"0.00000001", true},
		{"999999999999999", true},
		{"1e3", true},
		{"0", false},
		{"-5", false},
		{"0.000000001", false},
		{"1e-4000000", false},
		{"1000000000000000", false},
		{"1e4000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidAmount(d(tt.amount))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAmount)
			}
		})
	}
}
