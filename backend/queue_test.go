package backend

import (
	"math"
	"testing"
	"time"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		retries int
		want    time.Duration
	}{
		{"no failures", DefaultRetryPolicy(), 0, 0},
		{"first failure", DefaultRetryPolicy(), 1, time.Second},
		{"doubles", DefaultRetryPolicy(), 4, 8 * time.Second},
		{"capped by max delay", DefaultRetryPolicy(), 20, 5 * time.Minute},
		{"no base delay", RetryPolicy{MaxRetries: 3}, 5, 0},
		{"uncapped policy stops at ceiling", RetryPolicy{BaseDelay: time.Second}, 40, MaxBackoff},
		{"uncapped policy many retries", RetryPolicy{BaseDelay: time.Second}, 1 << 20, MaxBackoff},
		{"base above ceiling", RetryPolicy{BaseDelay: 48 * time.Hour}, 3, MaxBackoff},
		{"huge max delay", RetryPolicy{BaseDelay: time.Second, MaxDelay: math.MaxInt64}, 100, time.Second << 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Backoff(tt.retries)
			if got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.retries, got, tt.want)
			}
			if got < 0 {
				t.Errorf("Backoff(%d) went negative: %v", tt.retries, got)
			}
		})
	}
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2}
	if policy.Exhausted(1) {
		t.Error("one failure should not exhaust a policy allowing two")
	}
	if !policy.Exhausted(2) {
		t.Error("two failures should exhaust the policy")
	}
	if (RetryPolicy{}).Exhausted(1000) {
		t.Error("MaxRetries of zero never dead-letters")
	}
}
