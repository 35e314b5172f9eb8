package serializers

import "github.com/phrazzld/temba-api/internal/domain"

// ExtractConstants maps the database codes of an enumeration to API codes.
func ExtractConstants[C ~string](config []domain.ConstantConfig[C]) map[C]string {
	m := make(map[C]string, len(config))
	for _, c := range config {
		m[c.Code] = c.APICode
	}
	return m
}

// ExtractConstantsReverse maps the API codes of an enumeration to database
// codes.
func ExtractConstantsReverse[C ~string](config []domain.ConstantConfig[C]) map[string]C {
	m := make(map[string]C, len(config))
	for _, c := range config {
		m[c.APICode] = c.Code
	}
	return m
}

var (
	msgStatuses       = ExtractConstants(domain.MsgStatusConfig)
	msgVisibilities   = ExtractConstants(domain.MsgVisibilityConfig)
	msgDirections     = ExtractConstants(domain.MsgDirectionConfig)
	msgTypes          = ExtractConstants(domain.MsgTypeConfig)
	eventUnits        = ExtractConstants(domain.CampaignEventUnitConfig)
	channelEventTypes = ExtractConstants(domain.ChannelEventTypeConfig)
	valueTypes        = ExtractConstants(domain.ValueTypeConfig)
	flowStartStatuses = ExtractConstants(domain.FlowStartStatusConfig)
	exitTypes         = ExtractConstants(domain.ExitTypeConfig)
	stepTypes         = ExtractConstants(domain.StepTypeConfig)

	// unitChoices also accepts the database codes, e.g. "D" for days.
	unitChoices = func() map[string]domain.CampaignEventUnit {
		m := ExtractConstantsReverse(domain.CampaignEventUnitConfig)
		for _, c := range domain.CampaignEventUnitConfig {
			m[string(c.Code)] = c.Code
		}
		return m
	}()
)

// apiCode looks up code in m, returning nil when it is unknown.
func apiCode[C ~string](m map[C]string, code C) *string {
	s, ok := m[code]
	if !ok {
		return nil
	}
	return &s
}
