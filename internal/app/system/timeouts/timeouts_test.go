package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigure_KeepsZeroFields(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 3 * time.Second})
	got := Current()
	if got.Short != 3*time.Second {
		t.Errorf("Short: got %v, want 3s", got.Short)
	}
	if got.Ping != DefaultPing || got.Medium != DefaultMedium {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("got %v, want deadline exceeded", ctx.Err())
	}
}
