package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/order"
)

// UniqueTasks escalates data problems as ERP follow-up tasks, deduplicated
// by exact description so repeated runs never pile up identical tasks.
type UniqueTasks struct {
	tasks       order.Tasks
	assigneeRef string
	log         *zap.Logger
}

// NewUniqueTasks creates the task escalation service. Every task is assigned
// to the configured employee.
func NewUniqueTasks(tasks order.Tasks, assigneeRef string, log *zap.Logger) *UniqueTasks {
	return &UniqueTasks{tasks: tasks, assigneeRef: assigneeRef, log: log}
}

// EscalateUnique creates a task with the given description unless one with
// exactly that description already exists.
func (s *UniqueTasks) EscalateUnique(ctx context.Context, description string) error {
	exists, err := s.tasks.ExistsByDescription(ctx, description)
	if err != nil {
		return fmt.Errorf("task lookup: %w", err)
	}
	if exists {
		s.log.Debug("task already exists", zap.String("description", description))
		return nil
	}
	if err := s.tasks.Create(ctx, order.Task{Description: description, AssigneeRef: s.assigneeRef}); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	s.log.Info("task created", zap.String("description", description))
	return nil
}
