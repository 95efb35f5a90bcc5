package contract

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of DataSource for testing.
type MockDataSource struct {
	mock.Mock
}

var _ DataSource = &MockDataSource{} // Compile-time check

// GetCalibrationLog implements the DataSource interface.
func (m *MockDataSource) GetCalibrationLog(ctx context.Context, start, end time.Time) ([]byte, error) {
	ret := m.Called(ctx, start, end)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetFailureLog implements the DataSource interface.
func (m *MockDataSource) GetFailureLog(ctx context.Context, start, end time.Time) ([]byte, error) {
	ret := m.Called(ctx, start, end)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}
