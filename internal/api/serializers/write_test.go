package serializers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupWriteSerializer(t *testing.T) {
	ctx := context.Background()

	t.Run("illegal characters", func(t *testing.T) {
		f := newFixture(t)
		s := NewGroupWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"name": "A$B"}`)))
		assert.Equal(t, ValidationErrors{"name": {msgIllegalName}}, errs)
	})

	t.Run("blank and too long", func(t *testing.T) {
		f := newFixture(t)

		errs := requireErrors(t, NewGroupWriteSerializer(f.deps, f.rc, nil).Validate(ctx, []byte(`{"name": "  "}`)))
		assert.Equal(t, ValidationErrors{"name": {msgBlank}}, errs)

		long := fmt.Sprintf(`{"name": "%s"}`, strings.Repeat("x", 65))
		errs = requireErrors(t, NewGroupWriteSerializer(f.deps, f.rc, nil).Validate(ctx, []byte(long)))
		assert.Equal(t, ValidationErrors{"name": {"Ensure this field has no more than 64 characters."}}, errs)
	})

	t.Run("create is idempotent by name", func(t *testing.T) {
		f := newFixture(t)

		first := NewGroupWriteSerializer(f.deps, f.rc, nil)
		require.NoError(t, first.Validate(ctx, []byte(`{"name": "VIPs"}`)))
		g1, err := first.Save(ctx)
		require.NoError(t, err)

		second := NewGroupWriteSerializer(f.deps, f.rc, nil)
		require.NoError(t, second.Validate(ctx, []byte(`{"name": "VIPs"}`)))
		g2, err := second.Save(ctx)
		require.NoError(t, err)

		assert.Equal(t, g1.ID, g2.ID)
		assert.Equal(t, g1.UUID, g2.UUID)
	})

	t.Run("rename must be unique", func(t *testing.T) {
		f := newFixture(t)
		f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Customers"})
		testers := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Testers"})

		s := NewGroupWriteSerializer(f.deps, f.rc, testers)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"name": "customers"}`)))
		assert.Equal(t, ValidationErrors{"name": {msgNotUnique}}, errs)

		s = NewGroupWriteSerializer(f.deps, f.rc, testers)
		require.NoError(t, s.Validate(ctx, []byte(`{"name": "Beta Testers"}`)))
		renamed, err := s.Save(ctx)
		require.NoError(t, err)
		assert.Equal(t, testers.ID, renamed.ID)

		stored, err := f.deps.Stores.Groups.GetByUUID(ctx, f.org.ID, testers.UUID)
		require.NoError(t, err)
		assert.Equal(t, "Beta Testers", stored.Name)
	})
}

func TestLabelWriteSerializer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	errs := requireErrors(t, NewLabelWriteSerializer(f.deps, f.rc, nil).Validate(ctx, []byte(`{"name": "Spam!"}`)))
	assert.Equal(t, ValidationErrors{"name": {msgIllegalName}}, errs)

	s := NewLabelWriteSerializer(f.deps, f.rc, nil)
	require.NoError(t, s.Validate(ctx, []byte(`{"name": "Important"}`)))
	label, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Important", label.Name)

	other := f.db.AddLabel(domain.Label{OrgID: f.org.ID, Name: "Spam"})
	errs = requireErrors(t, NewLabelWriteSerializer(f.deps, f.rc, other).Validate(ctx, []byte(`{"name": "Important"}`)))
	assert.Equal(t, ValidationErrors{"name": {msgNotUnique}}, errs)
}

func TestCampaignWriteSerializer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reporters := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Reporters"})
	doctors := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Doctors"})

	s := NewCampaignWriteSerializer(f.deps, f.rc, nil)
	require.NoError(t, s.Validate(ctx, []byte(fmt.Sprintf(`{"name": "Reminders", "group": "%s"}`, reporters.UUID))))
	campaign, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Reminders", campaign.Name)
	assert.Equal(t, reporters.ID, campaign.Group.ID)

	t.Run("duplicate name", func(t *testing.T) {
		s := NewCampaignWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"name": "reminders", "group": "Doctors"}`)))
		assert.Equal(t, ValidationErrors{"name": {msgNotUnique}}, errs)
	})

	t.Run("unknown group", func(t *testing.T) {
		s := NewCampaignWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"name": "Other", "group": "Nurses"}`)))
		assert.Equal(t, ValidationErrors{"group": {"No such object: Nurses"}}, errs)
	})

	t.Run("update keeps own name", func(t *testing.T) {
		s := NewCampaignWriteSerializer(f.deps, f.rc, campaign)
		require.NoError(t, s.Validate(ctx, []byte(`{"name": "Reminders", "group": "Doctors"}`)))
		updated, err := s.Save(ctx)
		require.NoError(t, err)
		assert.Equal(t, doctors.ID, updated.Group.ID)
	})
}

type campaignEventFixture struct {
	*fixture
	campaign *domain.Campaign
	field    *domain.ContactField
	flow     *domain.Flow
}

func newCampaignEventFixture(t *testing.T) *campaignEventFixture {
	f := newFixture(t)
	group := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Reporters"})
	return &campaignEventFixture{
		fixture:  f,
		campaign: f.db.AddCampaign(domain.Campaign{OrgID: f.org.ID, Name: "Reminders", Group: group}),
		field:    f.db.AddField(domain.ContactField{OrgID: f.org.ID, Key: "registration", Label: "Registration", ValueType: domain.ValueTypeDatetime}),
		flow:     f.db.AddFlow(domain.Flow{OrgID: f.org.ID, Name: "Survey", BaseLanguage: "eng"}),
	}
}

func (f *campaignEventFixture) body(extra string) []byte {
	return []byte(fmt.Sprintf(
		`{"campaign": "%s", "relative_to": "registration", "offset": 15, "unit": "weeks", "delivery_hour": -1%s}`,
		f.campaign.UUID, extra))
}

func TestCampaignEventWriteSerializerValidation(t *testing.T) {
	ctx := context.Background()
	f := newCampaignEventFixture(t)

	tests := []struct {
		name  string
		extra string
		want  ValidationErrors
	}{
		{
			name: "neither message nor flow",
			want: ValidationErrors{NonFieldErrors: {msgFlowOrMessage}},
		},
		{
			name:  "both message and flow",
			extra: fmt.Sprintf(`, "message": "Hi", "flow": "%s"`, f.flow.UUID),
			want:  ValidationErrors{NonFieldErrors: {msgFlowOrMessage}},
		},
		{
			name:  "unknown flow",
			extra: `, "flow": "Nope"`,
			want:  ValidationErrors{"flow": {"No such object: Nope"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewCampaignEventWriteSerializer(f.deps, f.rc, nil)
			errs := requireErrors(t, s.Validate(ctx, f.body(tc.extra)))
			assert.Equal(t, tc.want, errs)
		})
	}

	t.Run("field errors", func(t *testing.T) {
		body := fmt.Sprintf(`{"campaign": "%s", "relative_to": "nope", "offset": "x", "unit": "fortnights", "delivery_hour": 24, "message": "Hi"}`, f.campaign.UUID)
		s := NewCampaignEventWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(body)))
		assert.Equal(t, ValidationErrors{
			"relative_to":   {"No such object: nope"},
			"offset":        {msgNotInteger},
			"unit":          {`"fortnights" is not a valid choice.`},
			"delivery_hour": {"Ensure this value is less than or equal to 23."},
		}, errs)
	})

	t.Run("campaign can't change", func(t *testing.T) {
		other := f.db.AddCampaign(domain.Campaign{OrgID: f.org.ID, Name: "Other", Group: f.campaign.Group})
		existing := f.db.AddCampaignEvent(domain.CampaignEvent{
			Campaign: other, EventType: domain.CampaignEventTypeFlow, Flow: f.flow, RelativeTo: f.field, Unit: domain.UnitDays,
		})

		s := NewCampaignEventWriteSerializer(f.deps, f.rc, existing)
		errs := requireErrors(t, s.Validate(ctx, f.body(`, "message": "Hi"`)))
		assert.Equal(t, ValidationErrors{"campaign": {msgCampaignChange}}, errs)
	})
}

func TestCampaignEventWriteSerializerCreateMessage(t *testing.T) {
	ctx := context.Background()
	f := newCampaignEventFixture(t)

	body := fmt.Sprintf(`{"campaign": "%s", "relative_to": "registration", "offset": 1, "unit": "D", "delivery_hour": -1, "message": "Time to check in"}`, f.campaign.UUID)
	s := NewCampaignEventWriteSerializer(f.deps, f.rc, nil)
	require.NoError(t, s.Validate(ctx, []byte(body)))
	event, err := s.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignEventTypeMessage, event.EventType)
	assert.Equal(t, domain.UnitDays, event.Unit)
	assert.Equal(t, -1, event.DeliveryHour)
	assert.Equal(t, "Time to check in", event.Message)
	require.NotNil(t, event.Flow)
	assert.Equal(t, domain.FlowTypeMessage, event.Flow.FlowType)
	assert.Equal(t, fmt.Sprintf("Reminders (%d)", event.ID), event.Flow.Name)

	stored, err := f.deps.Stores.CampaignEvents.GetByUUID(ctx, f.org.ID, event.UUID)
	require.NoError(t, err)
	assert.Equal(t, event.Flow.ID, stored.Flow.ID)
	assert.Equal(t, event.Flow.Name, stored.Flow.Name)

	resp := CampaignEventRead(f.rc, stored)
	assert.Equal(t, "days", *resp.Unit)
	assert.Nil(t, resp.Flow)
}

func TestCampaignEventWriteSerializerSwitchType(t *testing.T) {
	ctx := context.Background()
	f := newCampaignEventFixture(t)

	s := NewCampaignEventWriteSerializer(f.deps, f.rc, nil)
	require.NoError(t, s.Validate(ctx, f.body(`, "message": "Hello"`)))
	event, err := s.Save(ctx)
	require.NoError(t, err)
	messageFlow := event.Flow

	t.Run("message to flow", func(t *testing.T) {
		s := NewCampaignEventWriteSerializer(f.deps, f.rc, event)
		require.NoError(t, s.Validate(ctx, f.body(fmt.Sprintf(`, "flow": "%s"`, f.flow.UUID))))
		updated, err := s.Save(ctx)
		require.NoError(t, err)

		assert.Equal(t, domain.CampaignEventTypeFlow, updated.EventType)
		assert.Equal(t, "", updated.Message)
		assert.Equal(t, f.flow.ID, updated.Flow.ID)
		assert.Equal(t, 15, updated.Offset)
		assert.Equal(t, domain.UnitWeeks, updated.Unit)
	})

	t.Run("flow to message", func(t *testing.T) {
		s := NewCampaignEventWriteSerializer(f.deps, f.rc, event)
		require.NoError(t, s.Validate(ctx, f.body(`, "message": "Welcome back"`)))
		updated, err := s.Save(ctx)
		require.NoError(t, err)

		assert.Equal(t, domain.CampaignEventTypeMessage, updated.EventType)
		assert.Equal(t, "Welcome back", updated.Message)
		assert.NotEqual(t, messageFlow.ID, updated.Flow.ID)
		assert.Equal(t, domain.FlowTypeMessage, updated.Flow.FlowType)
	})

	t.Run("message edit updates flow", func(t *testing.T) {
		current := event.Flow.ID
		s := NewCampaignEventWriteSerializer(f.deps, f.rc, event)
		require.NoError(t, s.Validate(ctx, f.body(`, "message": "See you soon"`)))
		updated, err := s.Save(ctx)
		require.NoError(t, err)

		assert.Equal(t, current, updated.Flow.ID)
		assert.Contains(t, string(updated.Flow.Definition), "See you soon")
	})
}

func TestContactWriteSerializerCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	nick := f.db.AddField(domain.ContactField{OrgID: f.org.ID, Key: "nickname", Label: "Nickname", ValueType: domain.ValueTypeText})
	f.rc.ContactFields = []*domain.ContactField{nick}
	vips := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "VIPs"})

	body := fmt.Sprintf(`{
		"name": "Bob",
		"language": "fra",
		"urns": ["tel:+250 788-123-123", "twitter:@Bobby"],
		"groups": ["%s"],
		"fields": {"nickname": "Bobby"}
	}`, vips.UUID)

	s := NewContactWriteSerializer(f.deps, f.rc, nil)
	require.NoError(t, s.Validate(ctx, []byte(body)))
	contact, err := s.Save(ctx)
	require.NoError(t, err)

	stored, err := f.deps.Stores.Contacts.GetByUUID(ctx, f.org.ID, contact.UUID)
	require.NoError(t, err)

	resp := ContactRead(f.rc, stored)
	assert.Equal(t, "Bob", *resp.Name)
	assert.Equal(t, "fra", *resp.Language)
	assert.Equal(t, []string{"tel:+250788123123", "twitter:bobby"}, resp.URNs)
	assert.Equal(t, []Ref{{UUID: vips.UUID.String(), Name: "VIPs"}}, resp.Groups)
	assert.Equal(t, "Bobby", *resp.Fields["nickname"])

	t.Run("urn taken", func(t *testing.T) {
		s := NewContactWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"urns": ["tel:+250788123123"]}`)))
		assert.Equal(t, ValidationErrors{"urns": {"URN belongs to another contact: tel:+250788123123"}}, errs)
	})

	t.Run("unknown field", func(t *testing.T) {
		s := NewContactWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"fields": {"shoe_size": "9"}}`)))
		assert.Equal(t, ValidationErrors{"fields": {"Invalid contact field key: shoe_size"}}, errs)
	})

	t.Run("boolean and number field values", func(t *testing.T) {
		vip := f.db.AddField(domain.ContactField{OrgID: f.org.ID, Key: "vip", Label: "VIP", ValueType: domain.ValueTypeText})
		f.rc.ContactFields = []*domain.ContactField{nick, vip}
		s := NewContactWriteSerializer(f.deps, f.rc, stored)
		require.NoError(t, s.Validate(ctx, []byte(`{"fields": {"vip": true, "nickname": 7}}`)))
		updated, err := s.Save(ctx)
		require.NoError(t, err)

		reloaded, err := f.deps.Stores.Contacts.GetByUUID(ctx, f.org.ID, updated.UUID)
		require.NoError(t, err)
		fields := ContactRead(f.rc, reloaded).Fields
		assert.Equal(t, "true", *fields["vip"])
		assert.Equal(t, "7", *fields["nickname"])
	})

	t.Run("nested field value", func(t *testing.T) {
		s := NewContactWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"fields": {"nickname": {"first": "Bob"}}}`)))
		assert.Equal(t, ValidationErrors{"fields": {msgNotString}}, errs)
	})

	t.Run("dynamic group", func(t *testing.T) {
		adults := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Adults", Query: "age > 18"})
		s := NewContactWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"groups": ["Adults"]}`)))
		assert.Equal(t, ValidationErrors{"groups": {fmt.Sprintf(msgDynamicGroup, adults.UUID)}}, errs)
	})

	t.Run("language length", func(t *testing.T) {
		s := NewContactWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"language": "english"}`)))
		assert.Equal(t, ValidationErrors{"language": {"Ensure this field has no more than 3 characters."}}, errs)
	})
}

func TestContactWriteSerializerLookupByURN(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.rc.LookupValues = map[string]string{LookupURN: "tel:+250788000001"}

	t.Run("urns not allowed", func(t *testing.T) {
		s := NewContactWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"urns": ["tel:+250788000002"]}`)))
		assert.Equal(t, ValidationErrors{"urns": {msgURNWithLookup}}, errs)
	})

	t.Run("created with lookup urn", func(t *testing.T) {
		s := NewContactWriteSerializer(f.deps, f.rc, nil)
		require.NoError(t, s.Validate(ctx, []byte(`{"name": "Jean"}`)))
		contact, err := s.Save(ctx)
		require.NoError(t, err)

		assert.Equal(t, "Jean", contact.Name)
		assert.Equal(t, []domain.URN{"tel:+250788000001"}, contact.URNIdentities())
	})
}

func TestContactWriteSerializerUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	vips := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "VIPs"})
	bob := f.db.AddContact(domain.Contact{OrgID: f.org.ID, Name: "Bob", Language: "eng"}, []domain.URN{"tel:+250788123123"})

	t.Run("only given attributes change", func(t *testing.T) {
		s := NewContactWriteSerializer(f.deps, f.rc, bob)
		require.NoError(t, s.Validate(ctx, []byte(`{"name": "Robert"}`)))
		updated, err := s.Save(ctx)
		require.NoError(t, err)

		assert.Equal(t, "Robert", updated.Name)
		assert.Equal(t, "eng", updated.Language)
		assert.Equal(t, []domain.URN{"tel:+250788123123"}, updated.URNIdentities())
	})

	t.Run("anonymous org can't change urns", func(t *testing.T) {
		anon := &Context{Org: &domain.Org{ID: f.org.ID, IsAnon: true}, User: f.user}
		s := NewContactWriteSerializer(f.deps, anon, bob)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"urns": ["tel:+250788999999"]}`)))
		assert.Equal(t, ValidationErrors{"urns": {msgAnonURNs}}, errs)
	})

	t.Run("blocked contact can't join groups", func(t *testing.T) {
		blocked := f.db.AddContact(domain.Contact{OrgID: f.org.ID, Name: "Spammer"}, nil)
		f.db.SetContactStatus(blocked.ID, true, false, true)
		blocked.IsBlocked = true

		s := NewContactWriteSerializer(f.deps, f.rc, blocked)
		errs := requireErrors(t, s.Validate(ctx, []byte(fmt.Sprintf(`{"groups": ["%s"]}`, vips.UUID))))
		assert.Equal(t, ValidationErrors{"groups": {msgBlockedOrStopped}}, errs)
	})
}

func TestBroadcastWriteSerializer(t *testing.T) {
	ctx := context.Background()

	t.Run("no recipients", func(t *testing.T) {
		f := newFixture(t)
		s := NewBroadcastWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"text": "Hello"}`)))
		assert.Equal(t, ValidationErrors{NonFieldErrors: {msgNoRecipients}}, errs)
	})

	t.Run("suspended org", func(t *testing.T) {
		f := newFixture(t)
		f.org.IsSuspended = true
		s := NewBroadcastWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"text": "Hello", "urns": ["tel:+250788123123"]}`)))
		assert.Equal(t, ValidationErrors{NonFieldErrors: {msgOrgSuspended}}, errs)
	})

	t.Run("text too long", func(t *testing.T) {
		f := newFixture(t)
		body := fmt.Sprintf(`{"text": "%s", "urns": ["tel:+250788123123"]}`, strings.Repeat("x", 481))
		s := NewBroadcastWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(body)))
		assert.Equal(t, ValidationErrors{"text": {"Ensure this field has no more than 480 characters."}}, errs)
	})

	t.Run("saved and requested", func(t *testing.T) {
		f := newFixture(t)
		bob := f.db.AddContact(domain.Contact{OrgID: f.org.ID, Name: "Bob"}, []domain.URN{"tel:+250788123123"})
		reporters := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Reporters"})

		body := fmt.Sprintf(`{"text": "Hello", "urns": ["twitter:franck"], "contacts": ["%s"], "groups": ["Reporters"]}`, bob.UUID)
		s := NewBroadcastWriteSerializer(f.deps, f.rc)
		require.NoError(t, s.Validate(ctx, []byte(body)))
		broadcast, err := s.Save(ctx)
		require.NoError(t, err)

		assert.NotZero(t, broadcast.ID)
		assert.Equal(t, "eng", broadcast.BaseLanguage)
		require.Len(t, broadcast.URNs, 1)
		assert.Equal(t, domain.URN("twitter:franck"), broadcast.URNs[0].Identity)
		assert.Equal(t, reporters.ID, broadcast.Groups[0].ID)

		franck, err := f.deps.Stores.Contacts.GetByURN(ctx, f.org.ID, "twitter:franck")
		require.NoError(t, err)
		assert.Equal(t, franck.ID, broadcast.URNs[0].ContactID)

		emitted := f.emitter.emitted()
		require.Len(t, emitted, 1)
		assert.Equal(t, events.TypeSendBroadcast, emitted[0].Type)

		var payload events.SendBroadcastPayload
		require.NoError(t, emitted[0].UnmarshalPayload(&payload))
		assert.Equal(t, events.SendBroadcastPayload{OrgID: f.org.ID, BroadcastID: broadcast.ID}, payload)
	})
}

func TestFlowStartWriteSerializer(t *testing.T) {
	ctx := context.Background()

	t.Run("no targets", func(t *testing.T) {
		f := newFixture(t)
		flow := f.db.AddFlow(domain.Flow{OrgID: f.org.ID, Name: "Survey"})
		s := NewFlowStartWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(fmt.Sprintf(`{"flow": "%s"}`, flow.UUID))))
		assert.Equal(t, ValidationErrors{NonFieldErrors: {msgNoStartTargets}}, errs)
	})

	t.Run("flow required", func(t *testing.T) {
		f := newFixture(t)
		s := NewFlowStartWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"urns": ["tel:+250788123123"]}`)))
		assert.Equal(t, ValidationErrors{"flow": {msgRequired}}, errs)
	})

	t.Run("saved with normalized extra", func(t *testing.T) {
		f := newFixture(t)
		flow := f.db.AddFlow(domain.Flow{OrgID: f.org.ID, Name: "Survey"})

		body := `{
			"flow": "Survey",
			"urns": ["tel:+250788123123"],
			"extra": {"First Name": "Bob", "scores": [1, 2], "note": null}
		}`
		s := NewFlowStartWriteSerializer(f.deps, f.rc)
		require.NoError(t, s.Validate(ctx, []byte(body)))
		start, err := s.Save(ctx)
		require.NoError(t, err)

		assert.Equal(t, flow.ID, start.Flow.ID)
		assert.True(t, start.RestartParticipants)
		assert.Equal(t, domain.FlowStartStatusPending, start.Status)
		require.Len(t, start.Contacts, 1)

		extra, err := json.Marshal(start.Extra)
		require.NoError(t, err)
		assert.JSONEq(t, `{"first_name": "Bob", "scores": {"0": 1, "1": 2}, "note": ""}`, string(extra))

		emitted := f.emitter.emitted()
		require.Len(t, emitted, 1)
		assert.Equal(t, events.TypeStartFlow, emitted[0].Type)

		var payload events.StartFlowPayload
		require.NoError(t, emitted[0].UnmarshalPayload(&payload))
		assert.Equal(t, start.ID, payload.StartID)
	})

	t.Run("restart participants can be disabled", func(t *testing.T) {
		f := newFixture(t)
		f.db.AddFlow(domain.Flow{OrgID: f.org.ID, Name: "Survey"})
		reporters := f.db.AddGroup(domain.ContactGroup{OrgID: f.org.ID, Name: "Reporters"})

		body := fmt.Sprintf(`{"flow": "Survey", "groups": ["%s"], "restart_participants": false}`, reporters.UUID)
		s := NewFlowStartWriteSerializer(f.deps, f.rc)
		require.NoError(t, s.Validate(ctx, []byte(body)))
		start, err := s.Save(ctx)
		require.NoError(t, err)

		assert.False(t, start.RestartParticipants)
		assert.Nil(t, start.Extra)
	})
}

func TestResthookSubscriberWriteSerializer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.AddResthook(domain.Resthook{OrgID: f.org.ID, Slug: "new-mother"})

	t.Run("unknown slug", func(t *testing.T) {
		s := NewResthookSubscriberWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"resthook": "new-father", "target_url": "https://example.com/hook"}`)))
		assert.Equal(t, ValidationErrors{"resthook": {"No resthook with slug: new-father"}}, errs)
	})

	t.Run("invalid url", func(t *testing.T) {
		s := NewResthookSubscriberWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"resthook": "new-mother", "target_url": "not a url"}`)))
		assert.Equal(t, ValidationErrors{"target_url": {msgInvalidURL}}, errs)
	})

	s := NewResthookSubscriberWriteSerializer(f.deps, f.rc)
	require.NoError(t, s.Validate(ctx, []byte(`{"resthook": "new-mother", "target_url": "https://example.com/hook"}`)))
	sub, err := s.Save(ctx)
	require.NoError(t, err)
	assert.NotZero(t, sub.ID)
	assert.Equal(t, f.user.ID, sub.CreatedBy)

	t.Run("already subscribed", func(t *testing.T) {
		s := NewResthookSubscriberWriteSerializer(f.deps, f.rc)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"resthook": "new-mother", "target_url": "https://example.com/hook"}`)))
		assert.Equal(t, ValidationErrors{NonFieldErrors: {msgAlreadySubscribed}}, errs)
	})
}
