package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
)

// StartFlowTask executes a flow start, creating one run per recipient.
type StartFlowTask struct {
	baseTask
	payload events.StartFlowPayload
	deps    Deps
	logger  *slog.Logger
}

// NewStartFlowTask builds the task from its payload.
func NewStartFlowTask(id uuid.UUID, payload []byte, deps Deps) (*StartFlowTask, error) {
	if deps.Stores == nil {
		return nil, ErrNilStores
	}
	var p events.StartFlowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.OrgID == domain.NilOrgID || p.StartID == domain.NilFlowStartID {
		return nil, fmt.Errorf("%w: org and start are required", ErrInvalidPayload)
	}

	return &StartFlowTask{
		baseTask: baseTask{id: id, taskType: TaskTypeStartFlow, payload: payload, status: TaskStatusPending},
		payload:  p,
		deps:     deps,
		logger:   deps.Logger.With("task_type", TaskTypeStartFlow, "start_id", p.StartID),
	}, nil
}

// Execute moves the start from pending to starting, creates the runs and
// marks it complete, or failed if the runs can't be created. Starts which
// are no longer pending are left alone.
func (t *StartFlowTask) Execute(ctx context.Context) error {
	starts := t.deps.Stores.FlowStarts

	start, err := starts.GetByID(ctx, t.payload.OrgID, t.payload.StartID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load flow start: %w", err)
	}
	if start.Status != domain.FlowStartStatusPending {
		t.logger.Info("flow start already handled", "status", start.Status)
		t.status = TaskStatusCompleted
		return nil
	}

	if err := starts.UpdateStatus(ctx, start.ID, domain.FlowStartStatusStarting); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to mark flow start as starting: %w", err)
	}

	var created int
	err = t.deps.Tx.RunInTx(ctx, func(ctx context.Context) (err error) {
		created, err = t.createRuns(ctx, start)
		return err
	})
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("flow start failed", "error", err)
		if serr := starts.UpdateStatus(ctx, start.ID, domain.FlowStartStatusFailed); serr != nil {
			t.logger.Error("failed to mark flow start as failed", "error", serr)
		}
		return err
	}

	if err := starts.UpdateStatus(ctx, start.ID, domain.FlowStartStatusComplete); err != nil {
		// the runs exist, so the task itself succeeded
		t.logger.Error("failed to mark flow start as complete", "error", err, "run_count", created)
	}
	t.status = TaskStatusCompleted
	t.logger.Info("flow start completed", "run_count", created)
	return nil
}

// createRuns starts the flow for the start's contacts and the members of
// its groups, skipping blocked or stopped contacts, and contacts who have
// already been in the flow unless participants are restarted.
func (t *StartFlowTask) createRuns(ctx context.Context, start *domain.FlowStart) (int, error) {
	stores := t.deps.Stores

	seen := map[domain.ContactID]bool{}
	var ids []domain.ContactID
	for _, c := range start.Contacts {
		if !seen[c.ID] {
			seen[c.ID] = true
			ids = append(ids, c.ID)
		}
	}
	if len(start.Groups) > 0 {
		groupIDs := make([]domain.ContactGroupID, 0, len(start.Groups))
		for _, g := range start.Groups {
			groupIDs = append(groupIDs, g.ID)
		}
		members, err := stores.Contacts.ListIDsInGroups(ctx, groupIDs)
		if err != nil {
			return 0, fmt.Errorf("failed to list group members: %w", err)
		}
		for _, id := range members {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	contacts, err := stores.Contacts.GetByIDs(ctx, start.OrgID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load contacts: %w", err)
	}

	created := 0
	for _, contact := range contacts {
		if contact.IsBlocked || contact.IsStopped {
			continue
		}
		if !start.RestartParticipants {
			participated, err := stores.FlowRuns.HasParticipated(ctx, start.Flow.ID, contact.ID)
			if err != nil {
				return created, fmt.Errorf("failed to check participation: %w", err)
			}
			if participated {
				continue
			}
		}

		run := &domain.FlowRun{
			OrgID:    start.OrgID,
			Flow:     start.Flow,
			Contact:  contact,
			StartID:  start.ID,
			IsActive: true,
			Fields:   start.Extra,
		}
		if err := stores.FlowRuns.Create(ctx, run); err != nil {
			return created, fmt.Errorf("failed to create run: %w", err)
		}
		created++
	}
	return created, nil
}
