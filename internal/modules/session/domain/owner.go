package domain

import "encoding/json"

// Owner is an optional opaque tag on a session. The zero value is anonymous.
type Owner struct {
	id  string
	set bool
}

func Anonymous() Owner {
	return Owner{}
}

// NewOwner tags a session with id; an empty id yields an anonymous owner.
func NewOwner(id string) Owner {
	if id == "" {
		return Owner{}
	}
	return Owner{id: id, set: true}
}

// OwnerFromPtr maps nil to anonymous.
func OwnerFromPtr(id *string) Owner {
	if id == nil {
		return Owner{}
	}
	return NewOwner(*id)
}

func (o Owner) ID() (string, bool) {
	return o.id, o.set
}

func (o Owner) IsAnonymous() bool {
	return !o.set
}

func (o Owner) Ptr() *string {
	if !o.set {
		return nil
	}
	id := o.id
	return &id
}

func (o Owner) String() string {
	if !o.set {
		return "(anonymous)"
	}
	return o.id
}

func (o Owner) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.id)
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var id *string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*o = OwnerFromPtr(id)
	return nil
}

type ownerScope int

const (
	scopeAny ownerScope = iota
	scopeAnonymous
	scopeOwner
)

// OwnerFilter selects sessions by owner: any owner, anonymous only, or one owner.
type OwnerFilter struct {
	scope ownerScope
	owner string
}

func AnyOwner() OwnerFilter {
	return OwnerFilter{scope: scopeAny}
}

func AnonymousOnly() OwnerFilter {
	return OwnerFilter{scope: scopeAnonymous}
}

func OwnedBy(owner Owner) OwnerFilter {
	id, ok := owner.ID()
	if !ok {
		return AnonymousOnly()
	}
	return OwnerFilter{scope: scopeOwner, owner: id}
}

func (f OwnerFilter) Matches(o Owner) bool {
	switch f.scope {
	case scopeAnonymous:
		return o.IsAnonymous()
	case scopeOwner:
		id, ok := o.ID()
		return ok && id == f.owner
	default:
		return true
	}
}
