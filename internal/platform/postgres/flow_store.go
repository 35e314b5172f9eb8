package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// singleMessageFlowName names the hidden flows behind message campaign events.
const singleMessageFlowName = "Single Message"

var flowColumns = []string{
	"fl.id", "fl.uuid", "fl.org_id", "fl.name", "fl.flow_type", "fl.is_active", "fl.is_archived",
	"fl.expires_after_minutes", "fl.base_language", "fl.definition", "fl.created_by", "fl.created_on", "fl.modified_on",
	"COALESCE(rc.completed, 0)", "COALESCE(rc.interrupted, 0)", "COALESCE(rc.expired, 0)",
}

// runCounts tallies the exited runs of each flow.
const runCounts = `LEFT JOIN LATERAL (
	SELECT
		COUNT(*) FILTER (WHERE exit_type = 'C') AS completed,
		COUNT(*) FILTER (WHERE exit_type = 'I') AS interrupted,
		COUNT(*) FILTER (WHERE exit_type = 'E') AS expired
	FROM flow_runs WHERE flow_id = fl.id
) rc ON TRUE`

func scanFlow(row pgx.Row) (*domain.Flow, error) {
	var (
		f          domain.Flow
		definition []byte
	)
	err := row.Scan(&f.ID, &f.UUID, &f.OrgID, &f.Name, &f.FlowType, &f.IsActive, &f.IsArchived,
		&f.ExpiresAfterMinutes, &f.BaseLanguage, &definition, &f.CreatedBy, &f.CreatedOn, &f.ModifiedOn,
		&f.Runs.Completed, &f.Runs.Interrupted, &f.Runs.Expired)
	if err != nil {
		return nil, err
	}
	if len(definition) > 0 {
		f.Definition = json.RawMessage(definition)
	}
	return &f, nil
}

// PostgresFlowStore implements store.FlowStore.
type PostgresFlowStore struct{ base }

// NewPostgresFlowStore returns a store of flows queried through pool.
func NewPostgresFlowStore(pool Pool, logger *slog.Logger) *PostgresFlowStore {
	return &PostgresFlowStore{newBase(pool, logger, "flow_store")}
}

var _ store.FlowStore = (*PostgresFlowStore)(nil)

func (s *PostgresFlowStore) selectFlows(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select(flowColumns...).
		From("flows fl").
		JoinClause(runCounts).
		Where(sq.Eq{"fl.org_id": orgID, "fl.is_active": true})
}

// List returns user flows with their labels.
func (s *PostgresFlowStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Flow, error) {
	query := s.selectFlows(orgID).Where(sq.NotEq{"fl.flow_type": domain.FlowTypeMessage})
	if opts.UUID != uuid.Nil {
		query = query.Where(sq.Eq{"fl.uuid": opts.UUID})
	}

	flows, err := selectAll(ctx, s.q(ctx), paged(query, "fl.id", opts), scanFlow)
	if err != nil || len(flows) == 0 {
		return flows, err
	}

	byID := make(map[domain.FlowID]*domain.Flow, len(flows))
	for _, f := range flows {
		byID[f.ID] = f
	}
	labels := psql.Select("lf.flow_id", "l.uuid", "l.name").
		From("flow_label_flows lf").
		Join("flow_labels l ON l.id = lf.label_id").
		Where(sq.Eq{"lf.flow_id": idsOf(flows, func(f *domain.Flow) domain.FlowID { return f.ID })}).
		OrderBy("l.name")
	_, err = selectAll(ctx, s.q(ctx), labels, func(row pgx.Row) (struct{}, error) {
		var (
			flowID domain.FlowID
			l      domain.FlowLabel
		)
		if err := row.Scan(&flowID, &l.UUID, &l.Name); err != nil {
			return struct{}{}, err
		}
		byID[flowID].Labels = append(byID[flowID].Labels, &l)
		return struct{}{}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading flow labels: %w", err)
	}
	return flows, nil
}

func (s *PostgresFlowStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Flow, error) {
	query := s.selectFlows(orgID).Where(sq.Eq{"fl.uuid": id})
	return selectOne(ctx, s.q(ctx), query, scanFlow, store.ErrFlowNotFound)
}

// GetByName returns the oldest user flow named name, ignoring case.
func (s *PostgresFlowStore) GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.Flow, error) {
	query := s.selectFlows(orgID).
		Where(sq.NotEq{"fl.flow_type": domain.FlowTypeMessage}).
		Where(sameName("fl.name", name)).
		OrderBy("fl.id").
		Limit(1)
	return selectOne(ctx, s.q(ctx), query, scanFlow, store.ErrFlowNotFound)
}

func (s *PostgresFlowStore) CreateSingleMessage(ctx context.Context, org *domain.Org, user *domain.User, message string) (*domain.Flow, error) {
	flow := &domain.Flow{
		UUID:         uuid.New(),
		OrgID:        org.ID,
		Name:         singleMessageFlowName,
		FlowType:     domain.FlowTypeMessage,
		IsActive:     true,
		BaseLanguage: org.PrimaryLanguage,
		Definition:   domain.SingleMessageDefinition(org.PrimaryLanguage, message),
		CreatedBy:    user.ID,
	}
	insert := psql.Insert("flows").
		Columns("uuid", "org_id", "name", "flow_type", "is_active", "base_language", "definition", "created_by").
		Values(flow.UUID, flow.OrgID, flow.Name, flow.FlowType, true, flow.BaseLanguage, []byte(flow.Definition), flow.CreatedBy).
		Suffix("RETURNING id, expires_after_minutes, created_on, modified_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &flow.ID, &flow.ExpiresAfterMinutes, &flow.CreatedOn, &flow.ModifiedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create single message flow", "org_id", org.ID, "error", err)
		return nil, fmt.Errorf("creating flow: %w", err)
	}
	return flow, nil
}

// UpdateSingleMessage rewrites the definition in the flow's base language.
func (s *PostgresFlowStore) UpdateSingleMessage(ctx context.Context, flow *domain.Flow, message string) error {
	definition := domain.SingleMessageDefinition(flow.BaseLanguage, message)
	update := psql.Update("flows").
		Set("definition", []byte(definition)).
		Set("modified_on", sq.Expr("NOW()")).
		Where(sq.Eq{"id": flow.ID})
	if err := execQuery(ctx, s.q(ctx), update, store.ErrFlowNotFound); err != nil {
		return err
	}
	flow.Definition = definition
	return nil
}

func (s *PostgresFlowStore) Rename(ctx context.Context, flow *domain.Flow, name string) error {
	update := psql.Update("flows").Set("name", name).Where(sq.Eq{"id": flow.ID})
	if err := execQuery(ctx, s.q(ctx), update, store.ErrFlowNotFound); err != nil {
		return err
	}
	flow.Name = name
	return nil
}

// flowRefColumns are the flow columns embedded in runs and starts.
var flowRefColumns = []string{"fl.id", "fl.uuid", "fl.org_id", "fl.name", "fl.flow_type", "fl.base_language"}

func flowRefDest(f *domain.Flow) []any {
	return []any{&f.ID, &f.UUID, &f.OrgID, &f.Name, &f.FlowType, &f.BaseLanguage}
}

// PostgresFlowRunStore implements store.FlowRunStore.
type PostgresFlowRunStore struct{ base }

// NewPostgresFlowRunStore returns a store of flow runs queried through pool.
func NewPostgresFlowRunStore(pool Pool, logger *slog.Logger) *PostgresFlowRunStore {
	return &PostgresFlowRunStore{newBase(pool, logger, "flow_run_store")}
}

var _ store.FlowRunStore = (*PostgresFlowRunStore)(nil)

func (s *PostgresFlowRunStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.FlowRun, error) {
	columns := append([]string{
		"r.id", "r.org_id", "COALESCE(r.start_id, 0)", "r.responded", "r.is_active", "r.fields",
		"r.created_on", "r.modified_on", "r.exited_on", "r.exit_type",
	}, flowRefColumns...)
	query := psql.Select(append(columns, contactRefColumns...)...).
		From("flow_runs r").
		Join("flows fl ON fl.id = r.flow_id").
		Join("contacts c ON c.id = r.contact_id").
		Where(sq.Eq{"r.org_id": orgID})

	runs, err := selectAll(ctx, s.q(ctx), paged(query, "r.id", opts), scanRun)
	if err != nil || len(runs) == 0 {
		return runs, err
	}
	if err := s.loadSteps(ctx, runs); err != nil {
		return nil, fmt.Errorf("loading run steps: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.FlowRun, error) {
	var (
		r        domain.FlowRun
		flow     domain.Flow
		contact  domain.Contact
		fields   []byte
		exitType *domain.ExitType
	)
	dest := []any{&r.ID, &r.OrgID, &r.StartID, &r.Responded, &r.IsActive, &fields,
		&r.CreatedOn, &r.ModifiedOn, &r.ExitedOn, &exitType}
	dest = append(dest, flowRefDest(&flow)...)
	if err := row.Scan(append(dest, contactRefDest(&contact)...)...); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &r.Fields); err != nil {
			return nil, fmt.Errorf("decoding run fields: %w", err)
		}
	}
	if exitType != nil {
		r.ExitType = *exitType
	}
	r.Flow = &flow
	r.Contact = &contact
	return &r, nil
}

// loadSteps attaches steps to runs, each step with its messages and
// broadcasts.
func (s *PostgresFlowRunStore) loadSteps(ctx context.Context, runs []*domain.FlowRun) error {
	byRun := make(map[domain.FlowRunID]*domain.FlowRun, len(runs))
	for _, r := range runs {
		byRun[r.ID] = r
	}

	query := psql.Select("id", "run_id", "step_type", "step_uuid", "arrived_on", "left_on",
		"rule_value", "rule_decimal_value::text", "rule_category").
		From("flow_steps").
		Where(sq.Eq{"run_id": idsOf(runs, func(r *domain.FlowRun) domain.FlowRunID { return r.ID })}).
		OrderBy("arrived_on", "id")
	steps, err := selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (*domain.FlowStep, error) {
		var st domain.FlowStep
		err := row.Scan(&st.ID, &st.RunID, &st.StepType, &st.StepUUID, &st.ArrivedOn, &st.LeftOn,
			&st.RuleValue, &st.RuleDecimalValue, &st.RuleCategory)
		return &st, err
	})
	if err != nil || len(steps) == 0 {
		return err
	}

	byStep := make(map[domain.FlowStepID]*domain.FlowStep, len(steps))
	for _, st := range steps {
		byStep[st.ID] = st
		byRun[st.RunID].Steps = append(byRun[st.RunID].Steps, st)
	}
	stepIDs := idsOf(steps, func(st *domain.FlowStep) domain.FlowStepID { return st.ID })

	type stepMsg struct {
		stepID domain.FlowStepID
		msg    *domain.Msg
	}
	type stepBroadcast struct {
		stepID    domain.FlowStepID
		broadcast *domain.Broadcast
	}
	var (
		msgs       []stepMsg
		broadcasts []stepBroadcast
	)
	err = prefetch(ctx,
		func(ctx context.Context) (err error) {
			query := psql.Select("sm.step_id", "m.id", "m.org_id", "m.direction", "m.text", "m.created_on").
				From("flow_step_messages sm").
				Join("msgs m ON m.id = sm.msg_id").
				Where(sq.Eq{"sm.step_id": stepIDs}).
				OrderBy("m.id")
			msgs, err = selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (stepMsg, error) {
				var (
					sm stepMsg
					m  domain.Msg
				)
				err := row.Scan(&sm.stepID, &m.ID, &m.OrgID, &m.Direction, &m.Text, &m.CreatedOn)
				sm.msg = &m
				return sm, err
			})
			return err
		},
		func(ctx context.Context) (err error) {
			query := psql.Select("sb.step_id", "b.id", "b.org_id", "b.text", "b.translations", "b.base_language", "b.purged").
				From("flow_step_broadcasts sb").
				Join("broadcasts b ON b.id = sb.broadcast_id").
				Where(sq.Eq{"sb.step_id": stepIDs}).
				OrderBy("b.id")
			broadcasts, err = selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (stepBroadcast, error) {
				var (
					sb           stepBroadcast
					b            domain.Broadcast
					translations []byte
				)
				if err := row.Scan(&sb.stepID, &b.ID, &b.OrgID, &b.Text, &translations, &b.BaseLanguage, &b.Purged); err != nil {
					return sb, err
				}
				if len(translations) > 0 {
					if err := json.Unmarshal(translations, &b.Translations); err != nil {
						return sb, fmt.Errorf("decoding translations: %w", err)
					}
				}
				sb.broadcast = &b
				return sb, nil
			})
			return err
		},
	)
	if err != nil {
		return err
	}

	for _, sm := range msgs {
		byStep[sm.stepID].Messages = append(byStep[sm.stepID].Messages, sm.msg)
	}
	for _, sb := range broadcasts {
		byStep[sb.stepID].Broadcasts = append(byStep[sb.stepID].Broadcasts, sb.broadcast)
	}
	return nil
}

func (s *PostgresFlowRunStore) Create(ctx context.Context, run *domain.FlowRun) error {
	var fields []byte
	if run.Fields != nil {
		var err error
		if fields, err = json.Marshal(run.Fields); err != nil {
			return fmt.Errorf("encoding run fields: %w", err)
		}
	}
	var startID *domain.FlowStartID
	if run.StartID != domain.NilFlowStartID {
		startID = &run.StartID
	}
	var exitType *domain.ExitType
	if run.ExitType != "" {
		exitType = &run.ExitType
	}

	insert := psql.Insert("flow_runs").
		Columns("org_id", "flow_id", "contact_id", "start_id", "responded", "is_active", "fields", "exited_on", "exit_type").
		Values(run.OrgID, run.Flow.ID, run.Contact.ID, startID, run.Responded, run.IsActive, fields, run.ExitedOn, exitType).
		Suffix("RETURNING id, created_on, modified_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &run.ID, &run.CreatedOn, &run.ModifiedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create run", "flow_id", run.Flow.ID, "error", err)
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

func (s *PostgresFlowRunStore) HasParticipated(ctx context.Context, flowID domain.FlowID, contactID domain.ContactID) (bool, error) {
	query := psql.Select("1").From("flow_runs").Where(sq.Eq{"flow_id": flowID, "contact_id": contactID})
	return exists(ctx, s.q(ctx), query)
}

// PostgresFlowStartStore implements store.FlowStartStore.
type PostgresFlowStartStore struct{ base }

// NewPostgresFlowStartStore returns a store of flow starts queried through pool.
func NewPostgresFlowStartStore(pool Pool, logger *slog.Logger) *PostgresFlowStartStore {
	return &PostgresFlowStartStore{newBase(pool, logger, "flow_start_store")}
}

var _ store.FlowStartStore = (*PostgresFlowStartStore)(nil)

func (s *PostgresFlowStartStore) selectStarts(orgID domain.OrgID) sq.SelectBuilder {
	columns := append([]string{
		"st.id", "st.uuid", "st.org_id", "st.status", "st.restart_participants", "st.extra",
		"st.created_by", "st.created_on", "st.modified_on",
	}, flowRefColumns...)
	return psql.Select(columns...).
		From("flow_starts st").
		Join("flows fl ON fl.id = st.flow_id").
		Where(sq.Eq{"st.org_id": orgID})
}

func scanStart(row pgx.Row) (*domain.FlowStart, error) {
	var (
		st    domain.FlowStart
		flow  domain.Flow
		extra []byte
	)
	dest := []any{&st.ID, &st.UUID, &st.OrgID, &st.Status, &st.RestartParticipants, &extra,
		&st.CreatedBy, &st.CreatedOn, &st.ModifiedOn}
	if err := row.Scan(append(dest, flowRefDest(&flow)...)...); err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &st.Extra); err != nil {
			return nil, fmt.Errorf("decoding start extra: %w", err)
		}
	}
	st.Flow = &flow
	return &st, nil
}

func (s *PostgresFlowStartStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.FlowStart, error) {
	return s.load(ctx, paged(s.selectStarts(orgID), "st.id", opts))
}

func (s *PostgresFlowStartStore) GetByID(ctx context.Context, orgID domain.OrgID, id domain.FlowStartID) (*domain.FlowStart, error) {
	starts, err := s.load(ctx, s.selectStarts(orgID).Where(sq.Eq{"st.id": id}))
	if err != nil {
		return nil, err
	}
	if len(starts) == 0 {
		return nil, store.ErrFlowStartNotFound
	}
	return starts[0], nil
}

// load runs query and attaches each start's groups and contacts.
func (s *PostgresFlowStartStore) load(ctx context.Context, query sq.SelectBuilder) ([]*domain.FlowStart, error) {
	starts, err := selectAll(ctx, s.q(ctx), query, scanStart)
	if err != nil || len(starts) == 0 {
		return starts, err
	}

	byID := make(map[domain.FlowStartID]*domain.FlowStart, len(starts))
	for _, st := range starts {
		byID[st.ID] = st
	}
	ids := idsOf(starts, func(st *domain.FlowStart) domain.FlowStartID { return st.ID })

	err = prefetch(ctx,
		func(ctx context.Context) error {
			query := psql.Select(append([]string{"sg.start_id"}, groupColumns...)...).
				From("flow_start_groups sg").
				Join("contact_groups g ON g.id = sg.group_id").
				Where(sq.Eq{"sg.start_id": ids}).
				OrderBy("g.id")
			type startGroup struct {
				startID domain.FlowStartID
				group   *domain.ContactGroup
			}
			groups, err := selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (startGroup, error) {
				var (
					sg startGroup
					g  domain.ContactGroup
				)
				err := row.Scan(&sg.startID, &g.ID, &g.UUID, &g.OrgID, &g.Name, &g.Query, &g.IsActive, &g.CreatedOn, &g.Count)
				sg.group = &g
				return sg, err
			})
			if err != nil {
				return err
			}
			for _, sg := range groups {
				byID[sg.startID].Groups = append(byID[sg.startID].Groups, sg.group)
			}
			return nil
		},
		func(ctx context.Context) error {
			query := psql.Select(append([]string{"sc.start_id"}, contactRefColumns...)...).
				From("flow_start_contacts sc").
				Join("contacts c ON c.id = sc.contact_id").
				Where(sq.Eq{"sc.start_id": ids}).
				OrderBy("c.id")
			type startContact struct {
				startID domain.FlowStartID
				contact *domain.Contact
			}
			contacts, err := selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (startContact, error) {
				var (
					sc startContact
					c  domain.Contact
				)
				err := row.Scan(append([]any{&sc.startID}, contactRefDest(&c)...)...)
				sc.contact = &c
				return sc, err
			})
			if err != nil {
				return err
			}
			for _, sc := range contacts {
				byID[sc.startID].Contacts = append(byID[sc.startID].Contacts, sc.contact)
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("loading start recipients: %w", err)
	}
	return starts, nil
}

// Create saves start with its groups and contacts. A blank status is
// saved as pending.
func (s *PostgresFlowStartStore) Create(ctx context.Context, start *domain.FlowStart) error {
	if start.UUID == uuid.Nil {
		start.UUID = uuid.New()
	}
	if start.Status == "" {
		start.Status = domain.FlowStartStatusPending
	}
	var extra []byte
	if start.Extra != nil {
		var err error
		if extra, err = json.Marshal(start.Extra); err != nil {
			return fmt.Errorf("encoding start extra: %w", err)
		}
	}

	insert := psql.Insert("flow_starts").
		Columns("uuid", "org_id", "flow_id", "status", "restart_participants", "extra", "created_by").
		Values(start.UUID, start.OrgID, start.Flow.ID, start.Status, start.RestartParticipants, extra, start.CreatedBy).
		Suffix("RETURNING id, created_on, modified_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &start.ID, &start.CreatedOn, &start.ModifiedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create flow start", "flow_id", start.Flow.ID, "error", err)
		return fmt.Errorf("creating flow start: %w", err)
	}

	if len(start.Groups) > 0 {
		insert := psql.Insert("flow_start_groups").Columns("start_id", "group_id")
		for _, g := range start.Groups {
			insert = insert.Values(start.ID, g.ID)
		}
		if err := execQuery(ctx, s.q(ctx), insert.Suffix("ON CONFLICT DO NOTHING"), nil); err != nil {
			return fmt.Errorf("adding start groups: %w", err)
		}
	}
	if len(start.Contacts) > 0 {
		insert := psql.Insert("flow_start_contacts").Columns("start_id", "contact_id")
		for _, c := range start.Contacts {
			insert = insert.Values(start.ID, c.ID)
		}
		if err := execQuery(ctx, s.q(ctx), insert.Suffix("ON CONFLICT DO NOTHING"), nil); err != nil {
			return fmt.Errorf("adding start contacts: %w", err)
		}
	}
	return nil
}

func (s *PostgresFlowStartStore) UpdateStatus(ctx context.Context, id domain.FlowStartID, status domain.FlowStartStatus) error {
	update := psql.Update("flow_starts").
		Set("status", status).
		Set("modified_on", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})
	return execQuery(ctx, s.q(ctx), update, store.ErrFlowStartNotFound)
}
