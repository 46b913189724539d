package domain

import (
	"strings"
	"time"
)

// Client is the persisted CRM client record. Tags map the storage document (bson) to the public
// JSON shape; the only renamed field is the storage identifier (_id -> id).
type Client struct {
	ID                   string              `json:"id" bson:"_id,omitempty"`
	FirstName            string              `json:"first_name" bson:"first_name"`
	LastName             string              `json:"last_name" bson:"last_name"`
	Email                *string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone                *string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Company              *string             `json:"company,omitempty" bson:"company,omitempty"`
	Address              *Address            `json:"address,omitempty" bson:"address,omitempty"`
	Tags                 []string            `json:"tags" bson:"tags"`
	Notes                *string             `json:"notes,omitempty" bson:"notes,omitempty"`
	NewsletterSubscribed bool                `json:"newsletter_subscribed" bson:"newsletter_subscribed"`
	ContactPreferences   *ContactPreferences `json:"contact_preferences,omitempty" bson:"contact_preferences,omitempty"`
	LeadStatus           LeadStatus          `json:"lead_status" bson:"lead_status"`
	// UpdatedAt is nil until the first partial update.
	UpdatedAt *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// Address is a free-form postal address; no field is required.
type Address struct {
	Street     *string `json:"street,omitempty" bson:"street,omitempty"`
	City       *string `json:"city,omitempty" bson:"city,omitempty"`
	Province   *string `json:"province,omitempty" bson:"province,omitempty"`
	PostalCode *string `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Country    *string `json:"country,omitempty" bson:"country,omitempty"`
}

// ContactPreferences records how and when the client wants to be reached.
type ContactPreferences struct {
	PreferredChannel Channel   `json:"preferred_channel" bson:"preferred_channel"`
	AllowMarketing   bool      `json:"allow_marketing" bson:"allow_marketing"`
	BestTime         *BestTime `json:"best_time,omitempty" bson:"best_time,omitempty"`
}

type LeadStatus string

const (
	LeadStatusLead     LeadStatus = "lead"
	LeadStatusCustomer LeadStatus = "customer"
	LeadStatusProspect LeadStatus = "prospect"
	LeadStatusInactive LeadStatus = "inactive"
)

var leadStatuses = []LeadStatus{LeadStatusLead, LeadStatusCustomer, LeadStatusProspect, LeadStatusInactive}

// Valid reports whether s is one of the enumerated lead statuses.
func (s LeadStatus) Valid() bool {
	for _, v := range leadStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelPhone    Channel = "phone"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelNone     Channel = "none"
)

var channels = []Channel{ChannelEmail, ChannelPhone, ChannelSMS, ChannelWhatsApp, ChannelNone}

func (c Channel) Valid() bool {
	for _, v := range channels {
		if c == v {
			return true
		}
	}
	return false
}

type BestTime string

const (
	BestTimeMorning   BestTime = "morning"
	BestTimeAfternoon BestTime = "afternoon"
	BestTimeEvening   BestTime = "evening"
)

var bestTimes = []BestTime{BestTimeMorning, BestTimeAfternoon, BestTimeEvening}

func (b BestTime) Valid() bool {
	for _, v := range bestTimes {
		if b == v {
			return true
		}
	}
	return false
}

// NewClient returns a Client with the record defaults applied: empty tags, newsletter
// subscription on, lead status "lead".
func NewClient(firstName, lastName string) *Client {
	return &Client{
		FirstName:            firstName,
		LastName:             lastName,
		Tags:                 []string{},
		NewsletterSubscribed: true,
		LeadStatus:           LeadStatusLead,
	}
}

// Validate validates the client for persistence and returns a *ValidationError listing every failing field.
func (c *Client) Validate() error {
	var errs fieldErrors
	if strings.TrimSpace(c.FirstName) == "" {
		errs.add("first_name", "field required")
	}
	if strings.TrimSpace(c.LastName) == "" {
		errs.add("last_name", "field required")
	}
	if c.Email != nil && !ValidEmail(*c.Email) {
		errs.add("email", "value is not a valid email address")
	}
	if !c.LeadStatus.Valid() {
		errs.add("lead_status", enumMessage(leadStatuses))
	}
	if c.ContactPreferences != nil {
		c.ContactPreferences.validate("contact_preferences", &errs)
	}
	return errs.err()
}

func (p *ContactPreferences) validate(prefix string, errs *fieldErrors) {
	if !p.PreferredChannel.Valid() {
		errs.add(prefix+".preferred_channel", enumMessage(channels))
	}
	if p.BestTime != nil && !p.BestTime.Valid() {
		errs.add(prefix+".best_time", enumMessage(bestTimes))
	}
}

// Normalize fills in defaults that a decoded or stored document may lack.
func (c *Client) Normalize() {
	if c.Tags == nil {
		c.Tags = []string{}
	}
}

func enumMessage[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + string(v) + "'"
	}
	return "value must be one of " + strings.Join(parts, ", ")
}
