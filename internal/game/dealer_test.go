package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoDealer(t *testing.T) {
	d := AutoDealer{}
	assert.Equal(t, DealerHit, d.Next(HandTotal{Value: 16}))
	assert.Equal(t, DealerStand, d.Next(HandTotal{Value: 17}))
	// Stands on soft 17 as well.
	assert.Equal(t, DealerStand, d.Next(HandTotal{Value: 17, Soft: true}))
	assert.Equal(t, DealerStand, d.Next(HandTotal{Value: 21}))
}

func TestManualDealerWithRecovery(t *testing.T) {
	d := ManualDealer{MinAct: 17, AutoRecover: true}
	// Below the action floor the engine draws back up on the bank's behalf.
	assert.Equal(t, DealerHit, d.Next(HandTotal{Value: 12}))
	assert.Equal(t, DealerHit, d.Next(HandTotal{Value: 16}))
	// 17-20 is the bank's call.
	assert.Equal(t, DealerAsk, d.Next(HandTotal{Value: 17}))
	assert.Equal(t, DealerAsk, d.Next(HandTotal{Value: 20}))
	assert.Equal(t, DealerStand, d.Next(HandTotal{Value: 21}))
	assert.Equal(t, DealerStand, d.Next(HandTotal{Value: 22}))
}

func TestManualDealerFreehand(t *testing.T) {
	d := ManualDealer{MinAct: 1}
	// Every pre-21 total is the bank's call, sub-17 included.
	assert.Equal(t, DealerAsk, d.Next(HandTotal{Value: 5}))
	assert.Equal(t, DealerAsk, d.Next(HandTotal{Value: 16}))
	assert.Equal(t, DealerAsk, d.Next(HandTotal{Value: 20}))
	assert.Equal(t, DealerStand, d.Next(HandTotal{Value: 21}))
}
