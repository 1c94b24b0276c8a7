package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Breaker Test Suite
// =============================================================================

type BreakerSuite struct {
	suite.Suite
	now time.Time
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
}

func (s *BreakerSuite) breaker(opts ...Option) *Breaker {
	opts = append([]Option{WithClock(func() time.Time { return s.now })}, opts...)
	return New("kafka-notifications", opts...)
}

// =============================================================================
// Opening
// =============================================================================

func (s *BreakerSuite) TestDefaults() {
	b := s.breaker()
	s.Equal("kafka-notifications", b.Name())
	s.Equal(StateClosed, b.State())
	s.True(b.Allow())

	for range 4 {
		s.False(b.RecordFailure().Opened)
	}
	s.True(b.RecordFailure().Opened, "fifth consecutive failure opens")
}

func (s *BreakerSuite) TestOpensOnlyOnConsecutiveFailures() {
	b := s.breaker(WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	s.Equal(StateClosed, b.State())

	change := b.RecordFailure()
	s.True(change.Opened)
	s.Equal(StateOpen, b.State())

	s.Run("failures while open report no transition", func() {
		s.Equal(StateChange{}, b.RecordFailure())
		s.Equal(StateOpen, b.State())
	})
}

// =============================================================================
// Probing and closing
// =============================================================================

func (s *BreakerSuite) TestOneProbePerCooldown() {
	b := s.breaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	b.RecordFailure()

	s.False(b.Allow(), "cooldown starts when the circuit opens")

	s.now = s.now.Add(59 * time.Second)
	s.False(b.Allow())

	s.now = s.now.Add(time.Second)
	s.True(b.Allow())
	s.False(b.Allow(), "second probe in the same window")

	s.now = s.now.Add(time.Minute)
	s.True(b.Allow())
}

func (s *BreakerSuite) TestClosesAfterConsecutiveProbeSuccesses() {
	b := s.breaker(WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(0))
	b.RecordFailure()

	s.False(b.RecordSuccess().Closed)
	s.Equal(StateOpen, b.State())

	s.Run("a failed probe restarts the count", func() {
		b.RecordFailure()
		s.False(b.RecordSuccess().Closed)
		s.Equal(StateOpen, b.State())
	})

	s.True(b.RecordSuccess().Closed)
	s.Equal(StateClosed, b.State())
	s.True(b.Allow())
}

func (s *BreakerSuite) TestSuccessWhileClosedIsQuiet() {
	b := s.breaker()
	s.Equal(StateChange{}, b.RecordSuccess())
}

func (s *BreakerSuite) TestInvalidOptionsKeepDefaults() {
	b := s.breaker(WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(-time.Second), WithClock(nil))
	s.Equal(5, b.failureThreshold)
	s.Equal(1, b.successThreshold)
	s.Equal(30*time.Second, b.cooldown)
	s.NotNil(b.now)
}
