package history

import (
	"context"
	"errors"
	"testing"
)

type codedErr int

func (c codedErr) Error() string { return "sqlite error" }
func (c codedErr) Code() int     { return int(c) }

func TestRetryOnBusyRetriesLockedErrors(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("constraint failed")
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected single attempt with original error, got %v after %d", err, calls)
	}
}

func TestIsSQLiteBusyExtendedCode(t *testing.T) {
	// SQLITE_BUSY_SNAPSHOT is 517; the primary code lives in the low byte.
	if !isSQLiteBusy(codedErr(517)) {
		t.Fatal("expected extended busy code to count as busy")
	}
	if isSQLiteBusy(codedErr(19)) {
		t.Fatal("constraint code should not count as busy")
	}
	if isSQLiteBusy(nil) {
		t.Fatal("nil is not busy")
	}
}
