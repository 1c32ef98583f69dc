package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Action types understood by the dispatcher.
const (
	ActionSlackNotification = "slack_notification"
	ActionEmail             = "email"
	ActionWebhook           = "webhook"
)

// Log statuses for AutomationLog.
const (
	LogStatusSuccess = "success"
	LogStatusError   = "error"
	LogStatusSkipped = "skipped"
)

// AutomationRule is a trigger-scoped, ordered unit of automation logic.
// Rules with no configured conditions carry an empty "all" group and match
// every event of their trigger.
type AutomationRule struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	TriggerName    string         `gorm:"index;not null" json:"trigger_name"`
	Name           string         `gorm:"not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Conditions     ConditionGroup `gorm:"type:jsonb" json:"conditions"`
	ExecutionOrder int            `gorm:"index;default:0" json:"execution_order"`
	// No gorm default: a false value must survive the insert, the service
	// layer applies the enabled-by-default behavior.
	Enabled bool `json:"enabled"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Actions []AutomationAction `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE" json:"actions,omitempty"`
}

// ActionConfiguration is the per-type payload of an action. The type
// discriminator on AutomationAction decides which fields apply: channel and
// message for chat, recipient/subject/body for email, URL and payload
// templates for webhooks. Template placeholders ({{casting.status}}) are
// filled from the event parameters at dispatch time.
type ActionConfiguration struct {
	Channel   string            `json:"channel,omitempty"`
	Message   string            `json:"message,omitempty"`
	Recipient string            `json:"recipient,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body,omitempty"`
	URL       string            `json:"url,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
}

func (c ActionConfiguration) Value() (driver.Value, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (c *ActionConfiguration) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = ActionConfiguration{}
		return nil
	case []byte:
		if len(v) == 0 {
			*c = ActionConfiguration{}
			return nil
		}
		return json.Unmarshal(v, c)
	case string:
		if v == "" {
			*c = ActionConfiguration{}
			return nil
		}
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported configuration column type %T", src)
	}
}

// AutomationAction is one notification side effect attached to a rule.
// Actions are owned exclusively by their rule.
type AutomationAction struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	RuleID         uint                `gorm:"index;not null" json:"rule_id"`
	Name           string              `gorm:"not null" json:"name"`
	Type           string              `gorm:"not null" json:"type"` // slack_notification, email, webhook
	Configuration  ActionConfiguration `gorm:"type:jsonb" json:"configuration"`
	ExecutionOrder int                 `gorm:"index;default:0" json:"execution_order"`
	Enabled        bool                `json:"enabled"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// JSONMap is a free-form structured payload stored as a JSON column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *JSONMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		if len(v) == 0 {
			*m = JSONMap{}
			return nil
		}
		return json.Unmarshal(v, m)
	case string:
		if v == "" {
			*m = JSONMap{}
			return nil
		}
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported details column type %T", src)
	}
}

// AutomationLog is one immutable record of a rule evaluation or an action
// attempt. RuleID is nil for entries not tied to a single rule. Logs are
// never mutated after write; deleting a rule keeps its logs for audit.
type AutomationLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TriggerName string    `gorm:"index;not null" json:"trigger_name"`
	RuleID      *uint     `gorm:"index" json:"rule_id"`
	Status      string    `gorm:"index;not null" json:"status"` // success, error, skipped
	IsTest      bool      `gorm:"default:false" json:"is_test"`
	ExecutedBy  string    `json:"executed_by"`
	Details     JSONMap   `gorm:"type:jsonb" json:"details"`
	ExecutedAt  time.Time `gorm:"index" json:"executed_at"`
}
