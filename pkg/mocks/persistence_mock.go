package mocks

import (
	"context"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPlaybookRepository is a mock implementation of persistence.PlaybookRepository interface.
type MockPlaybookRepository struct {
	mock.Mock
}

func (m *MockPlaybookRepository) EnabledByUser(ctx context.Context, userID string) ([]*models.Playbook, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Playbook), args.Error(1)
}

func (m *MockPlaybookRepository) ListByUser(ctx context.Context, userID string) ([]*models.Playbook, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Playbook), args.Error(1)
}

func (m *MockPlaybookRepository) EnabledByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Playbook, error) {
	args := m.Called(ctx, triggerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Playbook), args.Error(1)
}

func (m *MockPlaybookRepository) GetByID(ctx context.Context, id string) (*models.Playbook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Playbook), args.Error(1)
}

func (m *MockPlaybookRepository) Save(ctx context.Context, playbook *models.Playbook) error {
	args := m.Called(ctx, playbook)

	return args.Error(0)
}

func (m *MockPlaybookRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Record(ctx context.Context, execution *models.PlaybookExecution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.PlaybookExecution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.PlaybookExecution), args.Error(1)
}

func (m *MockExecutionRepository) ListByPlaybook(ctx context.Context, playbookID string, limit int) ([]*models.PlaybookExecution, error) {
	args := m.Called(ctx, playbookID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.PlaybookExecution), args.Error(1)
}

func (m *MockExecutionRepository) FindApproval(ctx context.Context, pendingExecutionID string) (*models.PlaybookExecution, error) {
	args := m.Called(ctx, pendingExecutionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.PlaybookExecution), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Playbooks  *MockPlaybookRepository
	Executions *MockExecutionRepository
}

// NewMockPersistence wires fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Playbooks:  &MockPlaybookRepository{},
		Executions: &MockExecutionRepository{},
	}
}

//nolint:ireturn
func (m *MockPersistence) PlaybookRepository() persistence.PlaybookRepository {
	return m.Playbooks
}

//nolint:ireturn
func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository {
	return m.Executions
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
