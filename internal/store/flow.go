package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
)

// FlowStore defines persistence of flows.
type FlowStore interface {
	// List returns active user flows (not hidden message flows) with labels
	// and run counts. Honours Before, Limit and UUID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Flow, error)

	// GetByUUID returns the active flow with the given UUID.
	// Returns ErrFlowNotFound if there is none.
	GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Flow, error)

	// GetByName returns the active user flow with the given name, ignoring case.
	GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.Flow, error)

	// CreateSingleMessage creates a hidden flow which sends message.
	CreateSingleMessage(ctx context.Context, org *domain.Org, user *domain.User, message string) (*domain.Flow, error)

	// UpdateSingleMessage replaces the message sent by a single message flow.
	UpdateSingleMessage(ctx context.Context, flow *domain.Flow, message string) error

	// Rename changes the flow's name.
	Rename(ctx context.Context, flow *domain.Flow, name string) error
}

// FlowRunStore defines persistence of runs.
type FlowRunStore interface {
	// List returns runs with steps, step messages and step broadcasts.
	// Honours Before, Limit and ID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.FlowRun, error)

	// Create saves a new run, setting its ID.
	Create(ctx context.Context, run *domain.FlowRun) error

	// HasParticipated reports whether contact has ever had a run in flow.
	HasParticipated(ctx context.Context, flowID domain.FlowID, contactID domain.ContactID) (bool, error)
}

// FlowStartStore defines persistence of flow starts.
type FlowStartStore interface {
	// List returns starts with their flow, groups and contacts. Honours
	// Before, Limit and ID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.FlowStart, error)

	// GetByID returns the start with the given id.
	// Returns ErrFlowStartNotFound if there is none.
	GetByID(ctx context.Context, orgID domain.OrgID, id domain.FlowStartID) (*domain.FlowStart, error)

	// Create saves a new start with its groups and contacts, setting its ID.
	Create(ctx context.Context, start *domain.FlowStart) error

	// UpdateStatus sets the status of a start.
	UpdateStatus(ctx context.Context, id domain.FlowStartID, status domain.FlowStartStatus) error
}
