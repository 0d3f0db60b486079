package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CacheEntry is a single key-value record in the local session cache.
// Keys are namespaced strings ("session:{id}", "session:list",
// "session:current", "bank:tree"); values are opaque JSON documents.
type CacheEntry struct {
	ent.Schema
}

func (CacheEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("key").
			NotEmpty().
			Unique().
			Comment("Namespaced cache key"),
		field.Bytes("value").
			Comment("Serialized JSON payload"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now).
			Comment("Last write time, used to age out stale entries"),
	}
}

func (CacheEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("updated_at"),
	}
}
