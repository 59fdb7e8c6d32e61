// Package policy evaluates the ownership rules guarding the application's
// Firestore collections. The ruleset mirrors the deployed security rules:
// every operation requires an authenticated requester that owns the
// document, either through a field on the document itself or through the
// owner of a referenced document.
package policy

import (
	"context"
	"errors"
	"fmt"
)

type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

var ErrUnknownOperation = errors.New("unknown operation")

func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpRead, OpCreate, OpUpdate, OpDelete:
		return Operation(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// Auth is the verified identity of the requester. A nil *Auth means the
// request carries no valid credentials.
type Auth struct {
	UID string
}

// Request is one document access to evaluate.
//
// Resource is the stored document (nil when it does not exist) and
// Incoming is the document carried by the request, following the
// resource / request.resource split of the rules language. Read, update
// and delete are checked against Resource; create against Incoming.
type Request struct {
	Auth       *Auth
	Op         Operation
	Collection string
	DocID      string
	Resource   map[string]any
	Incoming   map[string]any
}

// Lookup resolves related documents during evaluation, mirroring the
// exists() and get() functions of the rules language.
type Lookup interface {
	Exists(ctx context.Context, collection, docID string) (bool, error)
	Get(ctx context.Context, collection, docID string) (map[string]any, error)
}

// Decision is the outcome of evaluating a Request. Reason is a short
// machine-readable explanation recorded in logs and the audit trail.
type Decision struct {
	Allowed bool
	Reason  string
}

const (
	reasonOwner = "owner"

	ReasonUnauthenticated = "unauthenticated"
	ReasonNoRule          = "no rule for collection"
	ReasonNoDocument      = "document does not exist"
	ReasonNoOwnerField    = "document has no owner field"
	ReasonNotOwner        = "requester is not the owner"
	ReasonNoReference     = "document has no reference field"
	ReasonMissingRef      = "referenced document does not exist"
)

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// OwnerRef declares indirect ownership: the document's Field holds the
// ID of a document in Collection, whose OwnerField names the owner.
type OwnerRef struct {
	Field      string
	Collection string
	OwnerField string
}

// Rule is the ownership declaration for one collection. Exactly one of
// OwnerField and Ref is set.
type Rule struct {
	Collection string
	OwnerField string
	Ref        *OwnerRef
}

// Ruleset holds the rules for all guarded collections. Collections
// without a rule are denied, matching Firestore's default.
type Ruleset struct {
	rules map[string]Rule
	order []string
}

func NewRuleset(rules ...Rule) (*Ruleset, error) {
	rs := &Ruleset{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		if r.Collection == "" {
			return nil, errors.New("rule without collection name")
		}
		if _, ok := rs.rules[r.Collection]; ok {
			return nil, fmt.Errorf("duplicate rule for collection %q", r.Collection)
		}
		if (r.OwnerField == "") == (r.Ref == nil) {
			return nil, fmt.Errorf("collection %q: exactly one of owner field and owner ref must be set", r.Collection)
		}
		if r.Ref != nil {
			if r.Ref.Field == "" || r.Ref.Collection == "" || r.Ref.OwnerField == "" {
				return nil, fmt.Errorf("collection %q: incomplete owner ref", r.Collection)
			}
		}
		rs.rules[r.Collection] = r
		rs.order = append(rs.order, r.Collection)
	}
	for _, r := range rs.rules {
		if r.Ref == nil {
			continue
		}
		target, ok := rs.rules[r.Ref.Collection]
		if !ok {
			return nil, fmt.Errorf("collection %q references unguarded collection %q", r.Collection, r.Ref.Collection)
		}
		if target.Ref != nil {
			return nil, fmt.Errorf("collection %q references %q which is itself indirectly owned", r.Collection, r.Ref.Collection)
		}
	}
	return rs, nil
}

// Rules returns the rules in declaration order, for rendering.
func (rs *Ruleset) Rules() []Rule {
	out := make([]Rule, 0, len(rs.order))
	for _, name := range rs.order {
		out = append(out, rs.rules[name])
	}
	return out
}

// Evaluate checks one document access against the ruleset. An error is
// returned only when a lookup fails; a denied request is a Decision,
// not an error.
func (rs *Ruleset) Evaluate(ctx context.Context, lookup Lookup, req Request) (Decision, error) {
	if req.Auth == nil || req.Auth.UID == "" {
		return deny(ReasonUnauthenticated), nil
	}
	rule, ok := rs.rules[req.Collection]
	if !ok {
		return deny(ReasonNoRule), nil
	}

	// create is checked against the incoming document, everything else
	// against the stored one
	doc := req.Resource
	if req.Op == OpCreate {
		doc = req.Incoming
	}
	if doc == nil {
		return deny(ReasonNoDocument), nil
	}

	if rule.Ref == nil {
		owner, ok := stringField(doc, rule.OwnerField)
		if !ok {
			return deny(ReasonNoOwnerField), nil
		}
		if owner != req.Auth.UID {
			return deny(ReasonNotOwner), nil
		}
		return Decision{Allowed: true, Reason: reasonOwner}, nil
	}

	refID, ok := stringField(doc, rule.Ref.Field)
	if !ok {
		return deny(ReasonNoReference), nil
	}
	exists, err := lookup.Exists(ctx, rule.Ref.Collection, refID)
	if err != nil {
		return Decision{}, fmt.Errorf("exists %s/%s: %w", rule.Ref.Collection, refID, err)
	}
	if !exists {
		return deny(ReasonMissingRef), nil
	}
	ref, err := lookup.Get(ctx, rule.Ref.Collection, refID)
	if err != nil {
		return Decision{}, fmt.Errorf("get %s/%s: %w", rule.Ref.Collection, refID, err)
	}
	owner, ok := stringField(ref, rule.Ref.OwnerField)
	if !ok {
		return deny(ReasonNoOwnerField), nil
	}
	if owner != req.Auth.UID {
		return deny(ReasonNotOwner), nil
	}
	return Decision{Allowed: true, Reason: reasonOwner}, nil
}

func stringField(doc map[string]any, field string) (string, bool) {
	v, ok := doc[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
