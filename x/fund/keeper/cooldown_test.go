package keeper

import (
	"testing"

	"cosmossdk.io/math"
)

func TestGetLockedBalance_TranchesUnlockOverTime(t *testing.T) {
	f, ctx := setupKeeper(t)
	now := ctx.BlockTime().Unix()

	f.keeper.applyLock(ctx, testUser, math.NewInt(100), now+100)
	f.keeper.applyLock(ctx, testUser, math.NewInt(200), now+200)
	f.keeper.applyLock(ctx, testUser, math.NewInt(300), now+300)

	tests := []struct {
		name    string
		advance int64
		want    int64
	}{
		{"all locked", 0, 600},
		{"first unlocked", 101, 500},
		{"two unlocked", 201, 300},
		{"all unlocked", 301, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.keeper.GetLockedBalance(advanceTime(ctx, tt.advance), testUser)
			if !got.Equal(math.NewInt(tt.want)) {
				t.Errorf("locked = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestGetLockedBalance_PersistsCompaction(t *testing.T) {
	f, ctx := setupKeeper(t)
	now := ctx.BlockTime().Unix()

	f.keeper.applyLock(ctx, testUser, math.NewInt(100), now+100)
	f.keeper.applyLock(ctx, testUser, math.NewInt(200), now+200)

	later := advanceTime(ctx, 150)
	if got := f.keeper.GetLockedBalance(later, testUser); !got.Equal(math.NewInt(200)) {
		t.Fatalf("locked = %s, want 200", got)
	}

	// The expired tranche was compacted away on read.
	queue := f.keeper.GetCooldownQueue(later, testUser)
	if queue.Offset != 1 {
		t.Errorf("offset after compaction = %d, want 1", queue.Offset)
	}

	// Once everything unlocks the queue record is removed entirely.
	done := advanceTime(ctx, 500)
	if got := f.keeper.GetLockedBalance(done, testUser); !got.IsZero() {
		t.Fatalf("locked = %s, want 0", got)
	}
	if queue := f.keeper.GetCooldownQueue(done, testUser); queue.Len() != 0 || queue.Offset != 0 {
		t.Errorf("queue not cleared: len=%d offset=%d", queue.Len(), queue.Offset)
	}
}

func TestApplyLock_IgnoresNonPositiveAmounts(t *testing.T) {
	f, ctx := setupKeeper(t)
	now := ctx.BlockTime().Unix()

	f.keeper.applyLock(ctx, testUser, math.ZeroInt(), now+100)
	f.keeper.applyLock(ctx, testUser, math.NewInt(-5), now+100)

	if queue := f.keeper.GetCooldownQueue(ctx, testUser); queue.Len() != 0 {
		t.Errorf("queue len = %d, want 0", queue.Len())
	}
}
