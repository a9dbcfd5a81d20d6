package domain

import "time"

// initialVersion is the version assigned to a freshly created entity.
// Every subsequent mutation increments the version by exactly one.
const initialVersion = 1

// Entity is the identity/audit/version envelope every persisted entity embeds.
//
// Invariants:
//   - ID never changes after creation.
//   - Version starts at 1 and strictly increases with every mutating
//     operation; it never decreases or resets.
//   - DeletedAt != nil exactly when the entity is logically deleted.
type Entity struct {
	ID        EntityID       `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	CreatedBy *UserID        `json:"created_by,omitempty"`
	UpdatedBy *UserID        `json:"updated_by,omitempty"`
	Version   int64          `json:"version"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewEntity initializes the envelope for a freshly created entity: version 1,
// both timestamps set to now, and the creating actor recorded when provided.
func NewEntity(id EntityID, actor *UserID) Entity {
	now := time.Now().UTC()
	return Entity{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor,
		UpdatedBy: actor,
		Version:   initialVersion,
	}
}

// Initialize stamps the envelope for first persistence: assigns the id,
// resets the version to 1, sets both timestamps to now, records the creating
// actor, and clears any soft-delete marker. Metadata set before creation is
// preserved.
func (e *Entity) Initialize(id EntityID, actor *UserID) {
	now := time.Now().UTC()
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	e.CreatedBy = actor
	e.UpdatedBy = actor
	e.Version = initialVersion
	e.DeletedAt = nil
}

// IsDeleted reports whether the entity is soft-deleted.
func (e *Entity) IsDeleted() bool {
	return e.DeletedAt != nil
}

// SoftDelete marks the entity as logically deleted. The stored row survives;
// read paths exclude it unless deleted records are explicitly requested.
// Calling SoftDelete on an already-deleted entity refreshes the marker and
// still bumps the version.
func (e *Entity) SoftDelete(actor *UserID) {
	now := time.Now().UTC()
	e.DeletedAt = &now
	e.touch(now, actor)
}

// Restore clears the soft-delete marker. Restore is always legal; there is
// no terminal state.
func (e *Entity) Restore(actor *UserID) {
	e.DeletedAt = nil
	e.touch(time.Now().UTC(), actor)
}

// MarkAsUpdated refreshes the update timestamp and bumps the version.
// Repositories call this on every update when timestamp maintenance is
// enabled.
func (e *Entity) MarkAsUpdated(actor *UserID) {
	e.touch(time.Now().UTC(), actor)
}

// SetMetadata stores a metadata value under key, allocating the map on first
// use. Mutating metadata bumps the version like any other mutation.
func (e *Entity) SetMetadata(key string, value any, actor *UserID) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	e.touch(time.Now().UTC(), actor)
}

// MetadataValue returns the metadata value for key, and whether it exists.
// Reads do not bump the version.
func (e *Entity) MetadataValue(key string) (any, bool) {
	v, ok := e.Metadata[key]
	return v, ok
}

// RemoveMetadata deletes a metadata key. Removing an absent key is a no-op
// and does not bump the version.
func (e *Entity) RemoveMetadata(key string, actor *UserID) {
	if _, ok := e.Metadata[key]; !ok {
		return
	}
	delete(e.Metadata, key)
	e.touch(time.Now().UTC(), actor)
}

// Equals compares entities by value identity: same ID at the same version.
func (e *Entity) Equals(other *Entity) bool {
	if other == nil {
		return false
	}
	return e.ID == other.ID && e.Version == other.Version
}

// IsNewerThan reports whether e was updated after other.
func (e *Entity) IsNewerThan(other *Entity) bool {
	if other == nil {
		return true
	}
	return e.UpdatedAt.After(other.UpdatedAt)
}

// Clone returns a value-equal, reference-independent copy of the envelope.
// Pointer fields and the metadata map are duplicated so mutations of the
// clone never leak into the original.
func (e *Entity) Clone() Entity {
	c := *e
	if e.CreatedBy != nil {
		v := *e.CreatedBy
		c.CreatedBy = &v
	}
	if e.UpdatedBy != nil {
		v := *e.UpdatedBy
		c.UpdatedBy = &v
	}
	if e.DeletedAt != nil {
		v := *e.DeletedAt
		c.DeletedAt = &v
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = copyMetadataValue(v)
		}
	}
	return c
}

// copyMetadataValue duplicates nested maps and slices so cloned metadata
// shares no structure with the original. Scalars pass through as-is.
func copyMetadataValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = copyMetadataValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = copyMetadataValue(val)
		}
		return s
	default:
		return v
	}
}

// IncrementVersion bumps the version counter without refreshing the audit
// fields. Used when timestamp stamping is disabled by policy but the
// version must still advance for concurrency control.
func (e *Entity) IncrementVersion() {
	e.Version++
}

// touch applies the shared mutation bookkeeping: refresh UpdatedAt, record
// the acting user, bump the version.
func (e *Entity) touch(now time.Time, actor *UserID) {
	e.UpdatedAt = now
	if actor != nil {
		e.UpdatedBy = actor
	}
	e.Version++
}
