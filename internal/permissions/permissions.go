// Package permissions parses the sub-account permission blob stored on a
// user row. Stored values may be a JSON object, a JSON-encoded string of
// an object, or garbage from older schema versions; each field falls back
// to its default individually so that adding a new field never wipes the
// flags an existing sub-account already had.
package permissions

import "encoding/json"

type OrderApproval struct {
	CanApprove       bool `json:"canApprove"`
	RequiresApproval bool `json:"requiresApproval"`
}

type Permissions struct {
	Products      bool          `json:"products"`
	Orders        bool          `json:"orders"`
	Equipment     bool          `json:"equipment"`
	Settings      bool          `json:"settings"`
	OrderApproval OrderApproval `json:"orderApproval"`
}

// Defaults for a newly created sub-account: every screen visible, the
// approval workflow opt-in (both flags off).
func Defaults() Permissions {
	return Permissions{
		Products:  true,
		Orders:    true,
		Equipment: true,
		Settings:  true,
	}
}

// Parse merges the stored blob over Defaults field by field. Unknown or
// malformed fields are ignored rather than failing the whole object.
func Parse(raw string) Permissions {
	p := Defaults()
	if raw == "" || raw == "null" {
		return p
	}

	data := []byte(raw)

	// Double-encoded blobs show up when the writer serialized the object
	// into a string column twice.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		data = []byte(s)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return p
	}

	mergeBool(fields, "products", &p.Products)
	mergeBool(fields, "orders", &p.Orders)
	mergeBool(fields, "equipment", &p.Equipment)
	mergeBool(fields, "settings", &p.Settings)

	if sub, ok := fields["orderApproval"]; ok {
		var subFields map[string]json.RawMessage
		if err := json.Unmarshal(sub, &subFields); err == nil {
			mergeBool(subFields, "canApprove", &p.OrderApproval.CanApprove)
			mergeBool(subFields, "requiresApproval", &p.OrderApproval.RequiresApproval)
		}
	}

	return p
}

func mergeBool(fields map[string]json.RawMessage, key string, dst *bool) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		*dst = b
	}
}

// Encode serializes permissions for storage.
func Encode(p Permissions) string {
	b, _ := json.Marshal(p)
	return string(b)
}

// Set is the effective permission view for one user. Main accounts pass
// every check regardless of the stored blob.
type Set struct {
	role  string
	perms Permissions
}

func ForUser(systemRole, raw string) Set {
	return Set{role: systemRole, perms: Parse(raw)}
}

func (s Set) isMain() bool { return s.role == "main" }

func (s Set) CanAccessProducts() bool  { return s.isMain() || s.perms.Products }
func (s Set) CanAccessOrders() bool    { return s.isMain() || s.perms.Orders }
func (s Set) CanAccessEquipment() bool { return s.isMain() || s.perms.Equipment }
func (s Set) CanAccessSettings() bool  { return s.isMain() || s.perms.Settings }

func (s Set) CanApprove() bool { return s.isMain() || s.perms.OrderApproval.CanApprove }

// RequiresApproval reports whether this user's orders need a sign-off.
// Main accounts never do.
func (s Set) RequiresApproval() bool {
	return !s.isMain() && s.perms.OrderApproval.RequiresApproval
}
