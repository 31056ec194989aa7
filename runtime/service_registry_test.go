package runtime

import (
	"errors"
	"testing"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
)

type mockService struct {
	status  error
	stopped *[]string
	name    string
}

func (m *mockService) Start() {}

func (m *mockService) Stop() error {
	*m.stopped = append(*m.stopped, m.name)
	return nil
}

func (m *mockService) Status() error { return m.status }

type secondMockService struct {
	mockService
}

func TestRegisterService_RejectsDuplicates(t *testing.T) {
	registry := NewServiceRegistry()
	var order []string
	require.NoError(t, registry.RegisterService(&mockService{stopped: &order}))
	err := registry.RegisterService(&mockService{stopped: &order})
	require.ErrorContains(t, "service already exists", err)
}

func TestStopAll_ReverseOrder(t *testing.T) {
	registry := NewServiceRegistry()
	var order []string
	first := &mockService{name: "first", stopped: &order}
	second := &secondMockService{mockService{name: "second", stopped: &order}}
	require.NoError(t, registry.RegisterService(first))
	require.NoError(t, registry.RegisterService(second))

	registry.StopAll()
	assert.DeepEqual(t, []string{"second", "first"}, order)
}

func TestStatuses(t *testing.T) {
	registry := NewServiceRegistry()
	var order []string
	unhealthy := errors.New("degraded")
	require.NoError(t, registry.RegisterService(&mockService{stopped: &order, status: unhealthy}))

	statuses := registry.Statuses()
	assert.Equal(t, 1, len(statuses))
	for _, err := range statuses {
		assert.Equal(t, unhealthy, err)
	}
}
