package domain

// ConstantConfig describes one value of an enumerated model attribute: the
// code stored in the database, a human readable label and the code exposed
// through the API.
type ConstantConfig[C ~string] struct {
	Code    C
	Label   string
	APICode string
}

// MsgStatus is the delivery state of a message.
type MsgStatus string

const (
	MsgStatusInitializing MsgStatus = "I"
	MsgStatusPending      MsgStatus = "P"
	MsgStatusQueued       MsgStatus = "Q"
	MsgStatusWired        MsgStatus = "W"
	MsgStatusSent         MsgStatus = "S"
	MsgStatusDelivered    MsgStatus = "D"
	MsgStatusHandled      MsgStatus = "H"
	MsgStatusErrored      MsgStatus = "E"
	MsgStatusFailed       MsgStatus = "F"
	MsgStatusResent       MsgStatus = "R"
)

var MsgStatusConfig = []ConstantConfig[MsgStatus]{
	{MsgStatusInitializing, "Initializing", "initializing"},
	{MsgStatusPending, "Pending", "pending"},
	{MsgStatusQueued, "Queued", "queued"},
	{MsgStatusWired, "Wired", "wired"},
	{MsgStatusSent, "Sent", "sent"},
	{MsgStatusDelivered, "Delivered", "delivered"},
	{MsgStatusHandled, "Handled", "handled"},
	{MsgStatusErrored, "Error Sending", "errored"},
	{MsgStatusFailed, "Failed Sending", "failed"},
	{MsgStatusResent, "Resent message", "resent"},
}

// MsgVisibility controls where a message appears in the inbox.
type MsgVisibility string

const (
	MsgVisibilityVisible  MsgVisibility = "V"
	MsgVisibilityArchived MsgVisibility = "A"
	MsgVisibilityDeleted  MsgVisibility = "D"
)

var MsgVisibilityConfig = []ConstantConfig[MsgVisibility]{
	{MsgVisibilityVisible, "Visible", "visible"},
	{MsgVisibilityArchived, "Archived", "archived"},
	{MsgVisibilityDeleted, "Deleted", "deleted"},
}

// MsgDirection is whether a message was received or sent.
type MsgDirection string

const (
	MsgDirectionIn  MsgDirection = "I"
	MsgDirectionOut MsgDirection = "O"
)

var MsgDirectionConfig = []ConstantConfig[MsgDirection]{
	{MsgDirectionIn, "Incoming", "in"},
	{MsgDirectionOut, "Outgoing", "out"},
}

// MsgType is the kind of a message.
type MsgType string

const (
	MsgTypeInbox MsgType = "I"
	MsgTypeFlow  MsgType = "F"
	MsgTypeIVR   MsgType = "V"
)

var MsgTypeConfig = []ConstantConfig[MsgType]{
	{MsgTypeInbox, "Inbox Message", "inbox"},
	{MsgTypeFlow, "Flow Message", "flow"},
	{MsgTypeIVR, "IVR Message", "ivr"},
}

// CampaignEventUnit is the unit of a campaign event offset.
type CampaignEventUnit string

const (
	UnitMinutes CampaignEventUnit = "M"
	UnitHours   CampaignEventUnit = "H"
	UnitDays    CampaignEventUnit = "D"
	UnitWeeks   CampaignEventUnit = "W"
)

var CampaignEventUnitConfig = []ConstantConfig[CampaignEventUnit]{
	{UnitMinutes, "Minutes", "minutes"},
	{UnitHours, "Hours", "hours"},
	{UnitDays, "Days", "days"},
	{UnitWeeks, "Weeks", "weeks"},
}

// ChannelEventType is the kind of a channel event.
type ChannelEventType string

const (
	ChannelEventUnknown         ChannelEventType = "unknown"
	ChannelEventCallOut         ChannelEventType = "mt_call"
	ChannelEventCallOutMissed   ChannelEventType = "mt_miss"
	ChannelEventCallIn          ChannelEventType = "mo_call"
	ChannelEventCallInMissed    ChannelEventType = "mo_miss"
	ChannelEventNewConversation ChannelEventType = "new_conversation"
)

var ChannelEventTypeConfig = []ConstantConfig[ChannelEventType]{
	{ChannelEventUnknown, "Unknown Call Type", "unknown"},
	{ChannelEventCallOut, "Outgoing Call", "call-out"},
	{ChannelEventCallOutMissed, "Missed Outgoing Call", "call-out-missed"},
	{ChannelEventCallIn, "Incoming Call", "call-in"},
	{ChannelEventCallInMissed, "Missed Incoming Call", "call-in-missed"},
	{ChannelEventNewConversation, "New Conversation", "new_conversation"},
}

// ValueType is the declared type of a contact field.
type ValueType string

const (
	ValueTypeText     ValueType = "T"
	ValueTypeNumber   ValueType = "N"
	ValueTypeDatetime ValueType = "D"
	ValueTypeState    ValueType = "S"
	ValueTypeDistrict ValueType = "I"
	ValueTypeWard     ValueType = "W"
)

var ValueTypeConfig = []ConstantConfig[ValueType]{
	{ValueTypeText, "Text", "text"},
	{ValueTypeNumber, "Numeric", "numeric"},
	{ValueTypeDatetime, "Date & Time", "datetime"},
	{ValueTypeState, "State", "state"},
	{ValueTypeDistrict, "District", "district"},
	{ValueTypeWard, "Ward", "ward"},
}

// IsLocation reports whether values of this type reference an admin boundary.
func (t ValueType) IsLocation() bool {
	return t == ValueTypeState || t == ValueTypeDistrict || t == ValueTypeWard
}

// FlowStartStatus is the progress of a flow start.
type FlowStartStatus string

const (
	FlowStartStatusPending  FlowStartStatus = "P"
	FlowStartStatusStarting FlowStartStatus = "S"
	FlowStartStatusComplete FlowStartStatus = "C"
	FlowStartStatusFailed   FlowStartStatus = "F"
)

var FlowStartStatusConfig = []ConstantConfig[FlowStartStatus]{
	{FlowStartStatusPending, "Pending", "pending"},
	{FlowStartStatusStarting, "Starting", "starting"},
	{FlowStartStatusComplete, "Complete", "complete"},
	{FlowStartStatusFailed, "Failed", "failed"},
}

// ExitType is how a run ended.
type ExitType string

const (
	ExitTypeCompleted   ExitType = "C"
	ExitTypeInterrupted ExitType = "I"
	ExitTypeExpired     ExitType = "E"
)

var ExitTypeConfig = []ConstantConfig[ExitType]{
	{ExitTypeCompleted, "Completed", "completed"},
	{ExitTypeInterrupted, "Interrupted", "interrupted"},
	{ExitTypeExpired, "Expired", "expired"},
}

// StepType is the kind of node a run step visited.
type StepType string

const (
	StepTypeRuleSet   StepType = "R"
	StepTypeActionSet StepType = "A"
)

var StepTypeConfig = []ConstantConfig[StepType]{
	{StepTypeRuleSet, "RuleSet", "ruleset"},
	{StepTypeActionSet, "ActionSet", "actionset"},
}

// CampaignEventType is whether an event starts a flow or sends a message.
type CampaignEventType string

const (
	CampaignEventTypeFlow    CampaignEventType = "F"
	CampaignEventTypeMessage CampaignEventType = "M"
)

// FlowType is the kind of a flow.
type FlowType string

const (
	FlowTypeNormal  FlowType = "F"
	FlowTypeMessage FlowType = "M"
	FlowTypeVoice   FlowType = "V"
)

// ChannelType is the kind of a channel.
type ChannelType string

// ChannelTypeAndroid is the only channel type reporting device status.
const ChannelTypeAndroid ChannelType = "A"
