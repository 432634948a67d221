package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnct-tools/container-query/internal/domain"
)

func TestKeyword_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		question string
		wantID   string
		want     domain.Intent
	}{
		{"What is the status of container ABCU1234567?", "ABCU1234567", domain.IntentStatus},
		{"Where is TCLU9876543?", "TCLU9876543", domain.IntentLocation},
		{"Is ABCU1234567 available?", "ABCU1234567", domain.IntentAvailability},
		{"Any holds on TCLU9876543?", "TCLU9876543", domain.IntentHolds},
		{"What's the last free day for ABCU1234567?", "ABCU1234567", domain.IntentLastFreeDay},
		{"ABCU1234567", "ABCU1234567", domain.IntentAll},
		{"abcu 1234567 demurrage?", "ABCU1234567", domain.IntentLastFreeDay},
		{"has customs released mscu7654321", "MSCU7654321", domain.IntentHolds},
		{"Can I pick up MSCU7654321 tomorrow", "MSCU7654321", domain.IntentAvailability},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			t.Parallel()
			ex, err := NewKeyword().Extract(context.Background(), tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ex.ContainerID)
			assert.Equal(t, tt.want, ex.Intent)
			assert.True(t, ex.Complete())
		})
	}
}

func TestKeyword_NoContainerID(t *testing.T) {
	t.Parallel()
	for _, q := range []string{"", "where is my box?", "ABC1234567", "ABCU123456"} {
		ex, err := NewKeyword().Extract(context.Background(), q)
		require.NoError(t, err)
		assert.False(t, ex.Complete(), q)
		assert.Empty(t, ex.ContainerID, q)
	}
}

func TestParseToolArguments(t *testing.T) {
	t.Parallel()

	ex, err := ParseToolArguments([]byte(`{"container_id":" tclu9876543 ","intent":"location"}`))
	require.NoError(t, err)
	assert.Equal(t, Extraction{ContainerID: "TCLU9876543", Intent: domain.IntentLocation}, ex)

	bad := []string{
		`{"container_id":"TCLU9876543"}`,
		`{"container_id":"TCLU9876543","intent":"eta"}`,
		`{"container_id":"","intent":"all"}`,
		`{"container_id":42,"intent":"all"}`,
		`not json`,
	}
	for _, raw := range bad {
		_, err := ParseToolArguments([]byte(raw))
		var argErr *ArgumentsError
		assert.ErrorAs(t, err, &argErr, raw)
	}
}
