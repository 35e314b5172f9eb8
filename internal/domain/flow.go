package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxRunFieldValues caps the number of values kept by NormalizeFields.
	MaxRunFieldValues = 256

	// MaxRunFieldValueLen caps the length of string values kept by NormalizeFields.
	MaxRunFieldValueLen = 640

	// MaxRunFieldKeyLen caps the length of keys kept by NormalizeFields.
	MaxRunFieldKeyLen = 255
)

// FlowLabel is a folder flows are organized into.
type FlowLabel struct {
	UUID uuid.UUID `json:"uuid"`
	Name string    `json:"name"`
}

// RunCounts are the number of exited runs of a flow by exit type.
type RunCounts struct {
	Completed   int `json:"completed"`
	Interrupted int `json:"interrupted"`
	Expired     int `json:"expired"`
}

// Flow is a conversation definition.
type Flow struct {
	ID                  FlowID          `json:"id"`
	UUID                uuid.UUID       `json:"uuid"`
	OrgID               OrgID           `json:"org_id"`
	Name                string          `json:"name"`
	FlowType            FlowType        `json:"flow_type"`
	IsActive            bool            `json:"is_active"`
	IsArchived          bool            `json:"is_archived"`
	ExpiresAfterMinutes int             `json:"expires_after_minutes"`
	BaseLanguage        string          `json:"base_language"`
	Definition          json.RawMessage `json:"definition,omitempty"`
	Labels              []*FlowLabel    `json:"labels,omitempty"`
	Runs                RunCounts       `json:"runs"`
	CreatedBy           UserID          `json:"created_by"`
	CreatedOn           time.Time       `json:"created_on"`
	ModifiedOn          time.Time       `json:"modified_on"`
}

type singleMessageAction struct {
	Type string            `json:"type"`
	Msg  map[string]string `json:"msg"`
}

type singleMessageActionSet struct {
	UUID    string                `json:"uuid"`
	Actions []singleMessageAction `json:"actions"`
}

type singleMessageDefinition struct {
	BaseLanguage string                   `json:"base_language"`
	EntryUUID    string                   `json:"entry"`
	ActionSets   []singleMessageActionSet `json:"action_sets"`
	RuleSets     []any                    `json:"rule_sets"`
}

// SingleMessageDefinition builds the definition of a flow which sends one
// message and exits.
func SingleMessageDefinition(baseLanguage, message string) json.RawMessage {
	if baseLanguage == "" {
		baseLanguage = "base"
	}
	entry := uuid.NewString()
	def := singleMessageDefinition{
		BaseLanguage: baseLanguage,
		EntryUUID:    entry,
		ActionSets: []singleMessageActionSet{{
			UUID:    entry,
			Actions: []singleMessageAction{{Type: "reply", Msg: map[string]string{baseLanguage: message}}},
		}},
		RuleSets: []any{},
	}
	// marshaling a struct of strings and slices can't fail
	b, _ := json.Marshal(def)
	return b
}

// FlowStep is one node traversal of a run.
type FlowStep struct {
	ID               FlowStepID   `json:"id"`
	RunID            FlowRunID    `json:"run_id"`
	StepType         StepType     `json:"step_type"`
	StepUUID         string       `json:"step_uuid"`
	ArrivedOn        time.Time    `json:"arrived_on"`
	LeftOn           *time.Time   `json:"left_on,omitempty"`
	RuleValue        *string      `json:"rule_value,omitempty"`
	RuleDecimalValue *string      `json:"rule_decimal_value,omitempty"`
	RuleCategory     *string      `json:"rule_category,omitempty"`
	Messages         []*Msg       `json:"messages,omitempty"`
	Broadcasts       []*Broadcast `json:"broadcasts,omitempty"`
}

// FlowRun is one contact's pass through a flow.
type FlowRun struct {
	ID         FlowRunID   `json:"id"`
	OrgID      OrgID       `json:"org_id"`
	Flow       *Flow       `json:"flow"`
	Contact    *Contact    `json:"contact"`
	StartID    FlowStartID `json:"start_id"`
	Responded  bool        `json:"responded"`
	IsActive   bool        `json:"is_active"`
	Fields     any         `json:"fields,omitempty"`
	Steps      []*FlowStep `json:"steps,omitempty"`
	CreatedOn  time.Time   `json:"created_on"`
	ModifiedOn time.Time   `json:"modified_on"`
	ExitedOn   *time.Time  `json:"exited_on,omitempty"`
	ExitType   ExitType    `json:"exit_type,omitempty"`
}

// StepText returns the text of the first message of step, reconstructing it
// from a purged broadcast when the message rows are gone.
func (r *FlowRun) StepText(step *FlowStep, org *Org) string {
	if len(step.Messages) > 0 {
		return step.Messages[0].Text
	}
	baseLanguage := ""
	if r.Flow != nil {
		baseLanguage = r.Flow.BaseLanguage
	}
	for _, b := range step.Broadcasts {
		if b.Purged {
			return b.TranslatedText(r.Contact, baseLanguage, org)
		}
	}
	return ""
}

// FlowStart is a request to start a flow for a set of contacts and groups.
type FlowStart struct {
	ID                  FlowStartID     `json:"id"`
	UUID                uuid.UUID       `json:"uuid"`
	OrgID               OrgID           `json:"org_id"`
	Flow                *Flow           `json:"flow"`
	Status              FlowStartStatus `json:"status"`
	Groups              []*ContactGroup `json:"groups,omitempty"`
	Contacts            []*Contact      `json:"contacts,omitempty"`
	RestartParticipants bool            `json:"restart_participants"`
	Extra               any             `json:"extra,omitempty"`
	CreatedBy           UserID          `json:"created_by"`
	CreatedOn           time.Time       `json:"created_on"`
	ModifiedOn          time.Time       `json:"modified_on"`
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// LabelToSlug lowercases label and replaces each run of characters other
// than a-z and 0-9 with an underscore.
func LabelToSlug(label string) string {
	return slugRegex.ReplaceAllString(strings.ToLower(label), "_")
}

// NormalizeFields turns an arbitrary decoded JSON value into one made only
// of strings, numbers, booleans and string keyed maps. Strings are
// truncated, nulls become empty strings, map keys are slugified and lists
// become maps keyed by index. At most MaxRunFieldValues values are kept.
func NormalizeFields(fields any) any {
	v, _ := normalizeFields(fields, MaxRunFieldValues, -1)
	return v
}

func normalizeFields(fields any, maxValues, count int) (any, int) {
	switch f := fields.(type) {
	case string:
		return Truncate(f, MaxRunFieldValueLen), count + 1
	case bool, float64, float32, int, int32, int64, json.Number:
		return f, count + 1
	case nil:
		return "", count + 1
	case map[string]any:
		count++
		out := make(map[string]any, len(f))
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			var v any
			v, count = normalizeFields(f[k], maxValues, count)
			out[Truncate(LabelToSlug(k), MaxRunFieldKeyLen)] = v
			if count >= maxValues {
				break
			}
		}
		return out, count
	case []any:
		count++
		out := make(map[string]any, len(f))
		for i, item := range f {
			var v any
			v, count = normalizeFields(item, maxValues, count)
			out[strconv.Itoa(i)] = v
			if count >= maxValues {
				break
			}
		}
		return out, count
	default:
		return fmt.Sprint(f), count + 1
	}
}
