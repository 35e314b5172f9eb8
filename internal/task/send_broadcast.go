package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
)

var (
	ErrNilStores      = errors.New("stores cannot be nil")
	ErrInvalidPayload = errors.New("invalid task payload")
)

// SendBroadcastTask materializes the outgoing messages of a broadcast, one
// queued message per recipient contact.
type SendBroadcastTask struct {
	baseTask
	payload events.SendBroadcastPayload
	deps    Deps
	logger  *slog.Logger
}

// NewSendBroadcastTask builds the task from its payload.
func NewSendBroadcastTask(id uuid.UUID, payload []byte, deps Deps) (*SendBroadcastTask, error) {
	if deps.Stores == nil {
		return nil, ErrNilStores
	}
	var p events.SendBroadcastPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.OrgID == domain.NilOrgID || p.BroadcastID == domain.NilBroadcastID {
		return nil, fmt.Errorf("%w: org and broadcast are required", ErrInvalidPayload)
	}

	return &SendBroadcastTask{
		baseTask: baseTask{id: id, taskType: TaskTypeSendBroadcast, payload: payload, status: TaskStatusPending},
		payload:  p,
		deps:     deps,
		logger:   deps.Logger.With("task_type", TaskTypeSendBroadcast, "broadcast_id", p.BroadcastID),
	}, nil
}

// Execute creates the messages in a single transaction. Recipients are the
// broadcast's URNs, then its contacts on their preferred URN, then members
// of its groups. Each contact gets at most one message.
func (t *SendBroadcastTask) Execute(ctx context.Context) error {
	stores := t.deps.Stores

	var created int
	err := t.deps.Tx.RunInTx(ctx, func(ctx context.Context) error {
		org, err := stores.Orgs.GetByID(ctx, t.payload.OrgID)
		if err != nil {
			return fmt.Errorf("failed to load org: %w", err)
		}
		broadcast, err := stores.Broadcasts.GetByID(ctx, org.ID, t.payload.BroadcastID)
		if err != nil {
			return fmt.Errorf("failed to load broadcast: %w", err)
		}

		// explicit URNs win over a contact's preferred URN
		chosen := map[domain.ContactID]*domain.ContactURN{}
		var order []domain.ContactID
		add := func(id domain.ContactID, urn *domain.ContactURN) {
			if _, seen := chosen[id]; seen || id == domain.NilContactID {
				return
			}
			chosen[id] = urn
			order = append(order, id)
		}
		for _, u := range broadcast.URNs {
			add(u.ContactID, u)
		}
		for _, c := range broadcast.Contacts {
			add(c.ID, nil)
		}
		if len(broadcast.Groups) > 0 {
			groupIDs := make([]domain.ContactGroupID, 0, len(broadcast.Groups))
			for _, g := range broadcast.Groups {
				groupIDs = append(groupIDs, g.ID)
			}
			members, err := stores.Contacts.ListIDsInGroups(ctx, groupIDs)
			if err != nil {
				return fmt.Errorf("failed to list group members: %w", err)
			}
			for _, id := range members {
				add(id, nil)
			}
		}
		if len(order) == 0 {
			return nil
		}

		contacts, err := stores.Contacts.GetByIDs(ctx, org.ID, order)
		if err != nil {
			return fmt.Errorf("failed to load recipients: %w", err)
		}
		byID := make(map[domain.ContactID]*domain.Contact, len(contacts))
		for _, c := range contacts {
			byID[c.ID] = c
		}

		msgs := make([]*domain.Msg, 0, len(order))
		for _, id := range order {
			contact := byID[id]
			if contact == nil || contact.IsBlocked || contact.IsStopped {
				continue
			}
			urn := chosen[id]
			if urn == nil {
				if len(contact.URNs) == 0 {
					t.logger.Debug("skipping contact without urns", "contact_id", id)
					continue
				}
				urn = contact.URNs[0]
			}
			msgs = append(msgs, &domain.Msg{
				OrgID:       org.ID,
				BroadcastID: broadcast.ID,
				Contact:     contact,
				ContactURN:  urn,
				Channel:     broadcast.Channel,
				Direction:   domain.MsgDirectionOut,
				MsgType:     domain.MsgTypeInbox,
				Status:      domain.MsgStatusQueued,
				Visibility:  domain.MsgVisibilityVisible,
				Text:        broadcast.TranslatedText(contact, "", org),
			})
		}
		if err := stores.Msgs.CreateOutgoing(ctx, msgs); err != nil {
			return fmt.Errorf("failed to create messages: %w", err)
		}
		created = len(msgs)
		return nil
	})
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("broadcast send failed", "error", err)
		return err
	}

	t.status = TaskStatusCompleted
	t.logger.Info("broadcast sent", "msg_count", created)
	return nil
}
