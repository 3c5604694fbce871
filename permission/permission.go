// Package permission implements POSIX-flavored access control for the
// asset store: an owner, an optional group, and a key->bool rights map of
// the form "<right>:<entity>" where right is one of r, w, x, s (setuid) or
// t (sticky, always keyed to the wildcard entity "*").
package permission

import (
	"fmt"
	"strconv"

	"assetstore.evalgo.org/identity"
)

// Right is one of the single-letter access classes the store checks.
type Right byte

const (
	Read    Right = 'r'
	Write   Right = 'w'
	Execute Right = 'x'
	Setuid  Right = 's'
	Sticky  Right = 't'
)

// Permissions is a per-entry owner/group/other mode-bit record, validated
// against an identity.Registry at query time.
type Permissions struct {
	Owner string
	Group string
	Bits  map[string]bool // "<right>:<entity>" -> bool
}

// New returns a Permissions for owner/group with no rights granted.
func New(owner, group string) *Permissions {
	return &Permissions{Owner: owner, Group: group, Bits: map[string]bool{}}
}

func key(r Right, entity string) string {
	return string(r) + ":" + entity
}

// Grant sets a right for an entity (owner name, group name, or "*").
func (p *Permissions) Grant(r Right, entity string) {
	p.Bits[key(r, entity)] = true
}

// Revoke clears a right for an entity. Revoking one right never implicitly
// clears another.
func (p *Permissions) Revoke(r Right, entity string) {
	delete(p.Bits, key(r, entity))
}

// Has reports the raw bit value for entity/right, ignoring registry state.
func (p *Permissions) Has(r Right, entity string) bool {
	return p.Bits[key(r, entity)]
}

// Chmod applies a POSIX-style mode: an octal integer, or its string form of
// up to four digits (special|user|group|other). The special digit sets
// s:* and t:*, mirroring setuid/sticky on the wildcard entity rather than
// the owner, since those two bits are directory- and process-wide, not
// owner-specific.
func (p *Permissions) Chmod(mode interface{}) error {
	var m int64
	switch v := mode.(type) {
	case int:
		m = int64(v)
	case int64:
		m = v
	case string:
		parsed, err := strconv.ParseInt(v, 8, 32)
		if err != nil {
			return fmt.Errorf("permission: invalid mode string %q: %w", v, err)
		}
		m = parsed
	default:
		return fmt.Errorf("permission: unsupported mode type %T", mode)
	}
	if m < 0 || m > 07777 {
		return fmt.Errorf("permission: mode %o out of range", m)
	}

	special := (m >> 9) & 07
	user := (m >> 6) & 07
	group := (m >> 3) & 07
	other := m & 07

	p.applyTriplet(user, p.Owner)
	p.applyTriplet(group, p.Group)
	p.applyTriplet(other, "*")

	if special&04 != 0 { // setuid
		p.Grant(Setuid, "*")
	} else {
		p.Revoke(Setuid, "*")
	}
	if special&01 != 0 { // sticky
		p.Grant(Sticky, "*")
	} else {
		p.Revoke(Sticky, "*")
	}
	return nil
}

func (p *Permissions) applyTriplet(bits int64, entity string) {
	if entity == "" {
		return
	}
	if bits&4 != 0 {
		p.Grant(Read, entity)
	} else {
		p.Revoke(Read, entity)
	}
	if bits&2 != 0 {
		p.Grant(Write, entity)
	} else {
		p.Revoke(Write, entity)
	}
	if bits&1 != 0 {
		p.Grant(Execute, entity)
	} else {
		p.Revoke(Execute, entity)
	}
}

// Chown renames the owner and migrates the three owner-keyed right bits.
func (p *Permissions) Chown(newOwner string) {
	p.migrateEntity(p.Owner, newOwner)
	p.Owner = newOwner
}

// Chgrp renames the group and migrates the three group-keyed right bits.
func (p *Permissions) Chgrp(newGroup string) {
	p.migrateEntity(p.Group, newGroup)
	p.Group = newGroup
}

func (p *Permissions) migrateEntity(oldName, newName string) {
	if oldName == newName {
		return
	}
	for _, r := range []Right{Read, Write, Execute} {
		if p.Has(r, oldName) {
			p.Revoke(r, oldName)
			p.Grant(r, newName)
		}
	}
}

// IsRightGranted answers the permission query: does entity hold right r
// against these Permissions, per reg?
//
// Succeeds iff:
//
//	(a) entity == owner, the owner bit is set, and reg still grants owner
//	    that right directly, or
//	(b) entity inherits (transitively, via reg) from group, and both the
//	    group bit and reg's right for entity are set, or
//	(c) the "*" bit is set and reg grants "*" that right.
func IsRightGranted(reg *identity.Registry, entity string, r Right, p *Permissions) bool {
	if p == nil {
		return false
	}
	if entity == p.Owner && p.Has(r, p.Owner) && reg.HasRight(p.Owner, rightToCredKind(r)) {
		return true
	}
	if p.Group != "" && p.Has(r, p.Group) && reg.Inherits(entity, p.Group) && reg.HasRight(entity, rightToCredKind(r)) {
		return true
	}
	if p.Has(r, "*") && reg.HasRight("*", rightToCredKind(r)) {
		return true
	}
	return false
}

func rightToCredKind(r Right) string {
	switch r {
	case Read:
		return "r"
	case Write:
		return "w"
	case Execute:
		return "x"
	default:
		return string(r)
	}
}

// ShortRepr renders the nine-character rwxrwxrwx form for owner/group/other,
// with a trailing "+" if any right keys exist outside those nine, followed
// by " owner group".
func (p *Permissions) ShortRepr() string {
	mode := p.ModeString()
	return fmt.Sprintf("%s %s %s", mode, p.Owner, p.Group)
}

// ModeString renders the nine rwx characters (+ extension marker) alone.
func (p *Permissions) ModeString() string {
	var b [9]byte
	triplet(p, p.Owner, b[0:3])
	triplet(p, p.Group, b[3:6])
	triplet(p, "*", b[6:9])

	out := string(b[:])
	if p.hasExtendedBits() {
		out += "+"
	}
	return out
}

func triplet(p *Permissions, entity string, dst []byte) {
	chars := [3]byte{'r', 'w', 'x'}
	rights := [3]Right{Read, Write, Execute}
	for i := range dst {
		if entity != "" && p.Has(rights[i], entity) {
			dst[i] = chars[i]
		} else {
			dst[i] = '-'
		}
	}
}

func (p *Permissions) hasExtendedBits() bool {
	known := map[string]bool{
		key(Read, p.Owner): true, key(Write, p.Owner): true, key(Execute, p.Owner): true,
		key(Read, p.Group): true, key(Write, p.Group): true, key(Execute, p.Group): true,
		key(Read, "*"): true, key(Write, "*"): true, key(Execute, "*"): true,
	}
	for k, v := range p.Bits {
		if !v {
			continue
		}
		if !known[k] {
			return true
		}
	}
	return false
}

// IsSticky reports whether the sticky bit (t:*) is set.
func (p *Permissions) IsSticky() bool {
	return p.Has(Sticky, "*")
}

// CanOverwrite implements the sticky-directory ownership check: a child
// entry owned by childOwner may be overwritten by actor only if the
// directory is not sticky, or actor is childOwner.
func (p *Permissions) CanOverwrite(actor, childOwner string) bool {
	if !p.IsSticky() {
		return true
	}
	return actor == childOwner
}
