package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

// RecordMetadata holds what the condition builder needs to know about a record type
type RecordMetadata struct {
	ModelType     reflect.Type
	TableName     string // Database table name (respects TableName() and the naming strategy)
	SearchableKey string // Column matched against search index ids
	KeyField      string // Go struct field backing SearchableKey, empty when set by SearchableKey()
}

// SearchableKeyer lets a record type name its searchable key column explicitly.
type SearchableKeyer interface {
	SearchableKey() string
}

// cacheKey identifies a record type parsed under one naming strategy.
type cacheKey struct {
	namer schema.Namer
	typ   reflect.Type
}

var (
	// schemaCaches holds one GORM schema cache per naming strategy, as GORM keeps one per DB.
	schemaCaches sync.Map // schema.Namer -> *sync.Map
	recordCache  sync.Map // cacheKey -> *RecordMetadata
)

// Analyze extracts record metadata from a model value, pointer, or slice of models.
// A nil namer selects GORM's default naming strategy. Results are cached per
// naming strategy when the strategy value is comparable.
func Analyze(model interface{}, namer schema.Namer) (*RecordMetadata, error) {
	if model == nil {
		return nil, fmt.Errorf("model is nil")
	}
	if namer == nil {
		namer = schema.NamingStrategy{}
	}

	cacheable := reflect.ValueOf(namer).Comparable()
	key := cacheKey{namer: namer, typ: modelTypeOf(model)}
	if cacheable {
		if cached, ok := recordCache.Load(key); ok {
			return cached.(*RecordMetadata), nil
		}
	}

	store := &sync.Map{}
	if cacheable {
		actual, _ := schemaCaches.LoadOrStore(namer, store)
		store = actual.(*sync.Map)
	}

	sch, err := schema.Parse(model, store, namer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
	}

	metadata := &RecordMetadata{
		ModelType: sch.ModelType,
		TableName: sch.Table,
	}

	if err := resolveSearchableKey(metadata, sch); err != nil {
		return nil, err
	}

	if cacheable {
		recordCache.Store(key, metadata)
	}
	return metadata, nil
}

// resolveSearchableKey picks the key column in priority order:
// SearchableKey() method, `searchable:"key"` tag, then the primary key.
func resolveSearchableKey(metadata *RecordMetadata, sch *schema.Schema) error {
	// Create a zero value instance and check if it implements SearchableKey()
	instance := reflect.New(sch.ModelType).Interface()
	if keyer, ok := instance.(SearchableKeyer); ok {
		if key := strings.TrimSpace(keyer.SearchableKey()); key != "" {
			metadata.SearchableKey = key
			return nil
		}
	}

	for _, field := range sch.Fields {
		if !hasSearchableKeyTag(field.Tag.Get("searchable")) {
			continue
		}
		if field.DBName == "" {
			return fmt.Errorf("searchable key field %s of %s has no database column", field.Name, sch.Name)
		}
		metadata.SearchableKey = field.DBName
		metadata.KeyField = field.Name
		return nil
	}

	if sch.PrioritizedPrimaryField != nil {
		metadata.SearchableKey = sch.PrioritizedPrimaryField.DBName
		metadata.KeyField = sch.PrioritizedPrimaryField.Name
		return nil
	}

	if len(sch.PrimaryFields) > 1 {
		return fmt.Errorf("model %s has a composite primary key; mark one field with `searchable:\"key\"` or implement SearchableKey()", sch.Name)
	}
	return fmt.Errorf("model %s must have a searchable key (implement SearchableKey(), tag a field `searchable:\"key\"` or declare a primary key)", sch.Name)
}

// hasSearchableKeyTag reports whether a searchable:"..." tag contains the key option
func hasSearchableKeyTag(tag string) bool {
	if tag == "" {
		return false
	}
	parts := strings.Split(tag, ",")
	for _, part := range parts {
		if strings.EqualFold(strings.TrimSpace(part), "key") {
			return true
		}
	}
	return false
}

// modelTypeOf unwraps pointers, slices and arrays to obtain the record type.
func modelTypeOf(model interface{}) reflect.Type {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}
