package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// Patch is a partial update. Only keys present in the request are Set; an explicit null is Set
// with a nil Value and is written as null, an omitted key leaves the stored field untouched.
type Patch struct {
	FirstName            Optional[string]             `json:"first_name"`
	LastName             Optional[string]             `json:"last_name"`
	Email                Optional[string]             `json:"email"`
	Phone                Optional[string]             `json:"phone"`
	Company              Optional[string]             `json:"company"`
	Address              Optional[Address]            `json:"address"`
	Tags                 Optional[[]string]           `json:"tags"`
	Notes                Optional[string]             `json:"notes"`
	NewsletterSubscribed Optional[bool]               `json:"newsletter_subscribed"`
	ContactPreferences   Optional[ContactPreferences] `json:"contact_preferences"`
	LeadStatus           Optional[LeadStatus]         `json:"lead_status"`
}

// DecodePatch builds a validated Patch from a JSON update payload.
func DecodePatch(payload []byte) (*Patch, error) {
	var p Patch
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, decodeError(err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate applies the create rules to every supplied value. Nulls are accepted for optional
// fields only; null on a required or defaulted field (names, tags, newsletter_subscribed,
// lead_status) is a field error rather than a stored null, so every record still validates.
func (p *Patch) Validate() error {
	var errs fieldErrors
	requiredString(&errs, "first_name", p.FirstName)
	requiredString(&errs, "last_name", p.LastName)
	if p.Email.Set && p.Email.Value != nil && !ValidEmail(*p.Email.Value) {
		errs.add("email", "value is not a valid email address")
	}
	if p.Tags.Set && p.Tags.Value == nil {
		errs.add("tags", "may not be null")
	}
	if p.NewsletterSubscribed.Set && p.NewsletterSubscribed.Value == nil {
		errs.add("newsletter_subscribed", "may not be null")
	}
	if p.LeadStatus.Set {
		switch {
		case p.LeadStatus.Value == nil:
			errs.add("lead_status", "may not be null")
		case !p.LeadStatus.Value.Valid():
			errs.add("lead_status", enumMessage(leadStatuses))
		}
	}
	if p.ContactPreferences.Set && p.ContactPreferences.Value != nil {
		p.ContactPreferences.Value.validate("contact_preferences", &errs)
	}
	return errs.err()
}

func requiredString(errs *fieldErrors, field string, o Optional[string]) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		errs.add(field, "may not be null")
		return
	}
	if strings.TrimSpace(*o.Value) == "" {
		errs.add(field, "field required")
	}
}

// Fields returns the supplied keys keyed by stored field name. Explicit nulls map to nil.
func (p *Patch) Fields() map[string]any {
	fields := make(map[string]any)
	setField(fields, "first_name", p.FirstName)
	setField(fields, "last_name", p.LastName)
	setField(fields, "email", p.Email)
	setField(fields, "phone", p.Phone)
	setField(fields, "company", p.Company)
	setField(fields, "address", p.Address)
	setField(fields, "tags", p.Tags)
	setField(fields, "notes", p.Notes)
	setField(fields, "newsletter_subscribed", p.NewsletterSubscribed)
	setField(fields, "contact_preferences", p.ContactPreferences)
	setField(fields, "lead_status", p.LeadStatus)
	return fields
}

// FieldNames returns the supplied keys in sorted order.
func (p *Patch) FieldNames() []string {
	fields := p.Fields()
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether no key was supplied.
func (p *Patch) Empty() bool {
	return len(p.Fields()) == 0
}

func setField[T any](fields map[string]any, key string, o Optional[T]) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		fields[key] = nil
		return
	}
	fields[key] = *o.Value
}
