// Code generated by ent, DO NOT EDIT.

package ent

import (
	"time"

	"github.com/aleksandrbar00/kulai-app/ent/cacheentry"
	"github.com/aleksandrbar00/kulai-app/ent/schema"
)

// The init function reads all schema descriptors with runtime code
// (default values, validators, hooks and policies) and stitches it
// to their package variables.
func init() {
	cacheentryFields := schema.CacheEntry{}.Fields()
	_ = cacheentryFields
	// cacheentryDescKey is the schema descriptor for key field.
	cacheentryDescKey := cacheentryFields[0].Descriptor()
	// cacheentry.KeyValidator is a validator for the "key" field. It is called by the builders before save.
	cacheentry.KeyValidator = cacheentryDescKey.Validators[0].(func(string) error)
	// cacheentryDescUpdatedAt is the schema descriptor for updated_at field.
	cacheentryDescUpdatedAt := cacheentryFields[2].Descriptor()
	// cacheentry.DefaultUpdatedAt holds the default value on creation for the updated_at field.
	cacheentry.DefaultUpdatedAt = cacheentryDescUpdatedAt.Default.(func() time.Time)
	// cacheentry.UpdateDefaultUpdatedAt holds the default value on update for the updated_at field.
	cacheentry.UpdateDefaultUpdatedAt = cacheentryDescUpdatedAt.UpdateDefault.(func() time.Time)
}
