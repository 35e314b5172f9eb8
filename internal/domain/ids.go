package domain

// Database identifiers. Each entity gets its own type so that a contact id
// can't be passed where a group id is expected. Public identity is the UUID;
// ids are used for joins, paging cursors and entities without a UUID.

type OrgID int64

const NilOrgID = OrgID(0)

type UserID int64

const NilUserID = UserID(0)

type ContactID int64

const NilContactID = ContactID(0)

type ContactURNID int64

const NilContactURNID = ContactURNID(0)

type ContactGroupID int64

const NilContactGroupID = ContactGroupID(0)

type ContactFieldID int64

const NilContactFieldID = ContactFieldID(0)

type BroadcastID int64

const NilBroadcastID = BroadcastID(0)

type MsgID int64

const NilMsgID = MsgID(0)

type LabelID int64

const NilLabelID = LabelID(0)

type ChannelID int64

const NilChannelID = ChannelID(0)

type ChannelEventID int64

const NilChannelEventID = ChannelEventID(0)

type CampaignID int64

const NilCampaignID = CampaignID(0)

type CampaignEventID int64

const NilCampaignEventID = CampaignEventID(0)

type FlowID int64

const NilFlowID = FlowID(0)

type FlowRunID int64

const NilFlowRunID = FlowRunID(0)

type FlowStepID int64

const NilFlowStepID = FlowStepID(0)

type FlowStartID int64

const NilFlowStartID = FlowStartID(0)

type ResthookID int64

const NilResthookID = ResthookID(0)

type ResthookSubscriberID int64

const NilResthookSubscriberID = ResthookSubscriberID(0)

type WebHookEventID int64

const NilWebHookEventID = WebHookEventID(0)

type AdminBoundaryID int64

const NilAdminBoundaryID = AdminBoundaryID(0)
