package workflow

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
	"github.com/pnct-tools/container-query/internal/lookup"
	"github.com/pnct-tools/container-query/internal/upstream"
)

type LookupWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env     *testsuite.TestWorkflowEnvironment
	hits    int32
	handler http.HandlerFunc
	server  *httptest.Server
}

func TestLookupWorkflowSuite(t *testing.T) {
	suite.Run(t, new(LookupWorkflowSuite))
}

func (s *LookupWorkflowSuite) SetupTest() {
	atomic.StoreInt32(&s.hits, 0)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.hits, 1)
		s.handler(w, r)
	}))

	client := upstream.NewClient(&config.UpstreamConfig{
		BaseURL: s.server.URL,
		SiteID:  "PNCT_NJ",
		Timeout: time.Second,
	}, zerolog.Nop())
	act := lookup.NewActivity(client, nil, lookup.DefaultMinIDLength, zerolog.Nop())

	s.env = s.NewTestWorkflowEnvironment()
	Register(s.env, domain.DefaultRetryPolicy(), act, zerolog.Nop())
}

func (s *LookupWorkflowSuite) TearDownTest() {
	s.env.AssertExpectations(s.T())
	s.server.Close()
}

func (s *LookupWorkflowSuite) TestSuccessReturnsActivityResult() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"State":"In Yard","Available":2,"CarrierReleaseStatus":"RELEASED","CustomReleaseStatus":"RELEASED","UsdaStatus":"RELEASED"}`))
	}

	s.env.ExecuteWorkflow(WorkflowName, domain.LookupRequest{ContainerID: "MSCU1234567", Intent: domain.IntentAvailability})

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var result domain.LookupResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal("MSCU1234567", result.ContainerID)
	s.Equal(domain.IntentAvailability, result.Intent)
	s.Require().NotNil(result.Data.Availability)
	s.True(result.Data.Availability.AvailableForPickup)
	s.NotEmpty(result.ScrapedAt)
	s.EqualValues(1, atomic.LoadInt32(&s.hits))
}

func (s *LookupWorkflowSuite) TestThreeServiceUnavailableExhaustsRetries() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&s.hits) <= 3 {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"State":"In Yard"}`))
	}

	s.env.ExecuteWorkflow(WorkflowName, domain.LookupRequest{ContainerID: "MSCU1234567", Intent: domain.IntentStatus})

	s.Require().True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	s.EqualValues(3, atomic.LoadInt32(&s.hits))

	var appErr *temporal.ApplicationError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(string(domain.KindRetriesExhausted), appErr.Type())

	decoded := DecodeError(err)
	var spent *domain.RetriesExhaustedError
	s.Require().ErrorAs(decoded, &spent)
	s.Equal(3, spent.Attempts)

	var upstreamErr *domain.UpstreamError
	s.Require().ErrorAs(decoded, &upstreamErr)
	s.Equal(http.StatusServiceUnavailable, upstreamErr.StatusCode)
	s.Equal(domain.KindUpstream, domain.KindOf(decoded))
}

func (s *LookupWorkflowSuite) TestNotFoundIsNotRetried() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}

	s.env.ExecuteWorkflow(WorkflowName, domain.LookupRequest{ContainerID: "MSCU1234567", Intent: domain.IntentAll})

	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	s.EqualValues(1, atomic.LoadInt32(&s.hits))

	decoded := DecodeError(err)
	var notFound *domain.NotFoundError
	s.Require().ErrorAs(decoded, &notFound)
	s.Equal("MSCU1234567", notFound.ContainerID)
	s.False(domain.IsExhausted(decoded))
}

func (s *LookupWorkflowSuite) TestInvalidInputNeverCallsUpstream() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"State":"In Yard"}`))
	}

	s.env.ExecuteWorkflow(WorkflowName, domain.LookupRequest{ContainerID: "AB", Intent: domain.IntentAll})

	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	s.Zero(atomic.LoadInt32(&s.hits))
	s.Equal(domain.KindInvalidInput, domain.KindOf(DecodeError(err)))
}

func (s *LookupWorkflowSuite) TestRecoversOnSecondAttempt() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&s.hits) == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"State":"In Yard","Location":"Row 7"}]`))
	}

	s.env.ExecuteWorkflow(WorkflowName, domain.LookupRequest{ContainerID: "MSCU1234567", Intent: domain.IntentStatus})

	s.Require().NoError(s.env.GetWorkflowError())
	var result domain.LookupResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Require().NotNil(result.Data.Status)
	s.Equal("Row 7", result.Data.Status.Location)
	s.EqualValues(2, atomic.LoadInt32(&s.hits))
}

func TestConvertRetryPolicy(t *testing.T) {
	p := ConvertRetryPolicy(domain.DefaultRetryPolicy())

	assert.Equal(t, time.Second, p.InitialInterval)
	assert.InDelta(t, 2.0, p.BackoffCoefficient, 0)
	assert.Equal(t, 10*time.Second, p.MaximumInterval)
	assert.EqualValues(t, 3, p.MaximumAttempts)
	assert.ElementsMatch(t, []string{"InvalidInput", "NotFound", "Unknown"}, p.NonRetryableErrorTypes)
}

func TestErrorCodec(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantType     string
		nonRetryable bool
		check        func(t *testing.T, decoded error)
	}{
		{
			name:         "invalid input",
			err:          domain.NewInvalidInputError("container ID is required"),
			wantType:     "InvalidInput",
			nonRetryable: true,
			check: func(t *testing.T, decoded error) {
				assert.EqualError(t, decoded, "container ID is required")
			},
		},
		{
			name:         "not found",
			err:          domain.NewNotFoundError("MSCU1234567"),
			wantType:     "NotFound",
			nonRetryable: true,
			check: func(t *testing.T, decoded error) {
				assert.EqualError(t, decoded, "container MSCU1234567 not found")
			},
		},
		{
			name:     "upstream",
			err:      domain.NewUpstreamError(503, "maintenance"),
			wantType: "UpstreamError",
			check: func(t *testing.T, decoded error) {
				var u *domain.UpstreamError
				require.ErrorAs(t, decoded, &u)
				assert.Equal(t, 503, u.StatusCode)
				assert.Equal(t, "maintenance", u.Body)
			},
		},
		{
			name:     "network timeout",
			err:      domain.NewNetworkError(assert.AnError, true),
			wantType: "NetworkError",
			check: func(t *testing.T, decoded error) {
				var n *domain.NetworkError
				require.ErrorAs(t, decoded, &n)
				assert.True(t, n.Timeout)
				assert.Equal(t, assert.AnError.Error(), n.Err.Error())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeError(tt.err)

			var appErr *temporal.ApplicationError
			require.ErrorAs(t, encoded, &appErr)
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.Equal(t, tt.nonRetryable, appErr.NonRetryable())

			decoded := DecodeError(encoded)
			assert.Equal(t, domain.KindOf(tt.err), domain.KindOf(decoded))
			tt.check(t, decoded)
		})
	}
}

func TestDecodeError_PassesThroughForeignErrors(t *testing.T) {
	assert.NoError(t, DecodeError(nil))
	assert.Equal(t, assert.AnError, DecodeError(assert.AnError))

	foreign := temporal.NewApplicationError("boom", "SomethingElse")
	assert.Equal(t, foreign, DecodeError(foreign))
}
