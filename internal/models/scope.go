// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "fmt"

// Scope identifies the host record that owns a content node. It is a weak,
// polymorphic reference: OwnerType names the kind of record ("blog",
// "course") and OwnerID its identifier within that kind. The zero value is
// the global scope, used by nodes without a parent.
//
// Two scopes are equal only when both halves match, since different owner
// types may reuse the same ID.
type Scope struct {
	OwnerType string `json:"owner_type,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
}

// Global is the scope of nodes that have no parent.
var Global = Scope{}

// ParentScope returns the scope for nodes owned by the given record.
func ParentScope(ownerType, ownerID string) Scope {
	return Scope{OwnerType: ownerType, OwnerID: ownerID}
}

// IsGlobal returns true if the scope has no owner.
func (s Scope) IsGlobal() bool {
	return s.OwnerType == "" && s.OwnerID == ""
}

// String renders the scope as "type=id", or "global".
func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return fmt.Sprintf("%s=%s", s.OwnerType, s.OwnerID)
}
