package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	t.Parallel()

	p := DefaultRetryPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{20, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Backoff(tt.attempt))
		})
	}

	uncapped := p
	uncapped.MaximumInterval = 0
	assert.Equal(t, 16*time.Second, uncapped.Backoff(5))
}

func TestRetryPolicy_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultRetryPolicy().Validate())

	tests := []struct {
		name   string
		mutate func(*RetryPolicy)
	}{
		{"no attempts", func(p *RetryPolicy) { p.MaximumAttempts = 0 }},
		{"negative interval", func(p *RetryPolicy) { p.InitialInterval = -time.Second }},
		{"shrinking backoff", func(p *RetryPolicy) { p.BackoffCoefficient = 0.5 }},
		{"no attempt timeout", func(p *RetryPolicy) { p.StartToCloseTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultRetryPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestKindOfAndIsRetryable(t *testing.T) {
	t.Parallel()

	upstream := NewUpstreamError(503, "down")
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
		exhausted bool
	}{
		{"nil", nil, "", false, false},
		{"invalid input", NewInvalidInputError("short"), KindInvalidInput, false, false},
		{"not found", NewNotFoundError("MSCU1234567"), KindNotFound, false, false},
		{"upstream", upstream, KindUpstream, true, false},
		{"wrapped upstream", fmt.Errorf("fetch: %w", upstream), KindUpstream, true, false},
		{"network", NewNetworkError(errors.New("refused"), false), KindNetwork, true, false},
		{"exhausted upstream", NewRetriesExhaustedError(3, upstream), KindUpstream, false, true},
		{"exhausted untyped", NewRetriesExhaustedError(3, errors.New("boom")), KindRetriesExhausted, false, true},
		{"wrapped exhausted", fmt.Errorf("lookup: %w", NewRetriesExhaustedError(3, upstream)), KindUpstream, false, true},
		{"untyped", errors.New("boom"), KindUnknown, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.exhausted, IsExhausted(tt.err))
		})
	}
}

func TestParseIntent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Intent
		wantErr bool
	}{
		{"status", IntentStatus, false},
		{"last_free_day", IntentLastFreeDay, false},
		{" HOLDS ", IntentHolds, false},
		{"All", IntentAll, false},
		{"", "", true},
		{"last free day", "", true},
		{"eta", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseIntent(tt.in)
			if tt.wantErr {
				assert.Equal(t, KindInvalidInput, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		intent Intent
		data   string
		check  func(t *testing.T, v ProjectedView)
	}{
		{IntentStatus, `{"status":"In Yard","available":true}`, func(t *testing.T, v ProjectedView) {
			require.NotNil(t, v.Status)
			assert.Equal(t, "In Yard", v.Status.Status)
			assert.True(t, v.Status.Available)
		}},
		{IntentLocation, `{"location":"Y1","block":"B2"}`, func(t *testing.T, v ProjectedView) {
			require.NotNil(t, v.Location)
			assert.Equal(t, "B2", v.Location.Block)
		}},
		{IntentAvailability, `{"available_for_pickup":true}`, func(t *testing.T, v ProjectedView) {
			require.NotNil(t, v.Availability)
			assert.True(t, v.Availability.AvailableForPickup)
		}},
		{IntentHolds, `{"has_holds":true,"hold_types":["Customs Hold"]}`, func(t *testing.T, v ProjectedView) {
			require.NotNil(t, v.Holds)
			assert.Equal(t, []string{"Customs Hold"}, v.Holds.HoldTypes)
		}},
		{IntentLastFreeDay, `{"free_days":"5"}`, func(t *testing.T, v ProjectedView) {
			require.NotNil(t, v.LastFreeDay)
			assert.Equal(t, "5", v.LastFreeDay.FreeDays)
		}},
		{IntentAll, `{"status":{"status":"In Yard"},"holds":{"has_holds":false}}`, func(t *testing.T, v ProjectedView) {
			require.NotNil(t, v.All)
			assert.Equal(t, "In Yard", v.All.Status.Status)
			assert.False(t, v.All.Holds.HasHolds)
		}},
		{Intent("eta"), `{"raw_data":{"State":"x"},"last_updated":"t"}`, func(t *testing.T, v ProjectedView) {
			require.NotNil(t, v.Raw)
			assert.Equal(t, "x", v.Raw.RawData["State"])
			assert.Equal(t, "t", v.Raw.LastUpdated)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			t.Parallel()
			v, err := DecodeView(tt.intent, []byte(tt.data))
			require.NoError(t, err)
			tt.check(t, v)
		})
	}

	_, err := DecodeView(IntentStatus, []byte(`[1]`))
	assert.Error(t, err)
}
