package health

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonitor_RegistersHealthy(t *testing.T) {
	m := NewMonitor("QUBE", "SECURE", "LNT")

	assert.Equal(t, []string{"LNT", "QUBE", "SECURE"}, m.ListComponents())
	s, ok := m.Get("SECURE")
	require.True(t, ok)
	assert.True(t, s.IsHealthy())
	assert.True(t, m.AggregateHealth("ecoquest").IsHealthy())
}

func TestMonitor_RecordTransitions(t *testing.T) {
	m := NewMonitor("QUBE")

	m.RecordDegraded("QUBE", "Upstream data invalid for QUBE meter")
	s, _ := m.Get("QUBE")
	assert.True(t, s.IsDegraded())

	for i := 0; i < UnhealthyAfter-1; i++ {
		m.RecordFailure("QUBE", "Qube request timed out")
		s, _ = m.Get("QUBE")
		assert.True(t, s.IsDegraded(), "failure %d", i+1)
	}
	m.RecordFailure("QUBE", "Qube request timed out")
	s, _ = m.Get("QUBE")
	assert.True(t, s.IsUnhealthy())
	require.NotNil(t, s.Stats)
	assert.Equal(t, int64(UnhealthyAfter+1), s.Stats.Failures)
	assert.Equal(t, UnhealthyAfter, s.Stats.ConsecutiveFailures)

	m.RecordSuccess("QUBE")
	s, _ = m.Get("QUBE")
	assert.True(t, s.IsHealthy())
	assert.Equal(t, 0, s.Stats.ConsecutiveFailures)
	assert.Equal(t, int64(1), s.Stats.Successes)
	assert.False(t, s.Stats.LastSuccess.IsZero())
}

func TestMonitor_UnknownNameIsTracked(t *testing.T) {
	m := NewMonitor()
	m.RecordSuccess("LNT")

	_, ok := m.Get("LNT")
	assert.True(t, ok)
	assert.Len(t, m.GetAll(), 1)
}

func TestMonitor_Observer(t *testing.T) {
	m := NewMonitor("SECURE")

	var got []int
	m.SetObserver(func(name string, s Status) {
		assert.Equal(t, "SECURE", name)
		got = append(got, s.Level())
	})

	m.RecordSuccess("SECURE")
	m.RecordDegraded("SECURE", "bad data")
	for i := 0; i < UnhealthyAfter; i++ {
		m.RecordFailure("SECURE", "down")
	}

	assert.Equal(t, []int{2, 1, 1, 1, 0}, got)
}

func TestMonitor_SanitisesMessages(t *testing.T) {
	m := NewMonitor("QUBE")
	m.RecordFailure("QUBE", "Get https://qube.example.com/qubeRealTimeData?meterId=X&apiKey=qube_demo_key_2024: dial tcp 10.1.2.3:443: refused")

	s, _ := m.Get("QUBE")
	assert.NotContains(t, s.Message, "qube_demo_key_2024")
	assert.NotContains(t, s.Message, "10.1.2.3")
	assert.Contains(t, s.Message, "[URL]")
}

func TestMonitor_Concurrent(t *testing.T) {
	m := NewMonitor("QUBE", "SECURE", "LNT")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := []string{"QUBE", "SECURE", "LNT"}[i%3]
			if i%2 == 0 {
				m.RecordSuccess(name)
			} else {
				m.RecordFailure(name, fmt.Sprintf("failure %d", i))
			}
			_ = m.AggregateHealth("ecoquest")
		}(i)
	}
	wg.Wait()

	total := int64(0)
	for _, s := range m.GetAll() {
		total += s.Stats.Successes + s.Stats.Failures
	}
	assert.Equal(t, int64(50), total)
}

func TestMonitor_StatusAgreesWithStats(t *testing.T) {
	for round := 0; round < 20; round++ {
		m := NewMonitor("LNT")
		var mu sync.Mutex
		var last Status
		m.SetObserver(func(_ string, s Status) {
			mu.Lock()
			last = s
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%4 == 0 {
					m.RecordSuccess("LNT")
				} else {
					m.RecordFailure("LNT", "timeout")
				}
			}(i)
		}
		wg.Wait()

		s, _ := m.Get("LNT")
		require.NotNil(t, s.Stats)
		switch n := s.Stats.ConsecutiveFailures; {
		case n == 0:
			assert.True(t, s.IsHealthy(), "no pending failures but %s", s.Status)
		case n >= UnhealthyAfter:
			assert.True(t, s.IsUnhealthy(), "%d failures but %s", n, s.Status)
		default:
			assert.True(t, s.IsDegraded(), "%d failures but %s", n, s.Status)
		}
		assert.Equal(t, int64(40), s.Stats.Successes+s.Stats.Failures)

		mu.Lock()
		assert.Equal(t, s.Status, last.Status, "observer saw the stored status last")
		assert.Equal(t, *s.Stats, *last.Stats)
		mu.Unlock()
	}
}
