package services

// Trigger is a named class of business event the automation engine reacts to.
// The parameter shape each trigger carries is owned by the business process
// that fires it; the engine only addresses parameters via dot paths.
type Trigger struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Trigger names fired by the casting domain.
const (
	TriggerCastingCreated     = "casting_created"
	TriggerCastingApproved    = "casting_approved"
	TriggerCastingRejected    = "casting_rejected"
	TriggerCastingCompleted   = "casting_completed"
	TriggerCreatorSignedUp    = "creator_signed_up"
	TriggerInvitationSent     = "invitation_sent"
	TriggerInvitationAccepted = "invitation_accepted"
	TriggerInvitationDeclined = "invitation_declined"
)

// TriggerCatalog is the static, in-process registry of known triggers.
// Listing preserves declaration order.
type TriggerCatalog struct {
	triggers []Trigger
	byName   map[string]Trigger
}

// NewTriggerCatalog returns the catalog of events castflow business
// processes fire.
func NewTriggerCatalog() *TriggerCatalog {
	return newCatalog(
		Trigger{Name: TriggerCastingCreated, Description: "A casting was created for a client"},
		Trigger{Name: TriggerCastingApproved, Description: "A casting moved to approved"},
		Trigger{Name: TriggerCastingRejected, Description: "A casting moved to rejected"},
		Trigger{Name: TriggerCastingCompleted, Description: "A casting was completed"},
		Trigger{Name: TriggerCreatorSignedUp, Description: "A new creator registered"},
		Trigger{Name: TriggerInvitationSent, Description: "A creator was invited to a casting"},
		Trigger{Name: TriggerInvitationAccepted, Description: "A creator accepted a casting invitation"},
		Trigger{Name: TriggerInvitationDeclined, Description: "A creator declined a casting invitation"},
	)
}

func newCatalog(triggers ...Trigger) *TriggerCatalog {
	byName := make(map[string]Trigger, len(triggers))
	for _, t := range triggers {
		byName[t.Name] = t
	}
	return &TriggerCatalog{triggers: triggers, byName: byName}
}

// List returns all triggers in declaration order.
func (c *TriggerCatalog) List() []Trigger {
	out := make([]Trigger, len(c.triggers))
	copy(out, c.triggers)
	return out
}

// Lookup returns the trigger by name.
func (c *TriggerCatalog) Lookup(name string) (Trigger, bool) {
	t, ok := c.byName[name]
	return t, ok
}
