package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollectionsHaveValidatorsAndIndexes(t *testing.T) {
	expected := []string{"Lessons", "Lesson_locks", "Coaches", "Users", "Courts"}

	defs := collections()
	if len(defs) != len(expected) {
		t.Fatalf("expected %d collections, got %d", len(expected), len(defs))
	}
	for _, name := range expected {
		def, ok := defs[name]
		if !ok {
			t.Errorf("missing collection %s", name)
			continue
		}
		if _, ok := def.Validator["$jsonSchema"]; !ok {
			t.Errorf("%s: validator has no $jsonSchema", name)
		}
		if len(def.Indexes) == 0 {
			t.Errorf("%s: no indexes", name)
		}
	}
}

func TestActiveLessonUniqueness(t *testing.T) {
	idx := LessonsIndexes[0]
	if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
		t.Fatal("coach/start index must be unique")
	}

	filter, ok := idx.Options.PartialFilterExpression.(bson.M)
	if !ok {
		t.Fatalf("partial filter = %T, want bson.M", idx.Options.PartialFilterExpression)
	}
	if filter["is_active"] != true {
		t.Errorf("partial filter = %v, want is_active: true", filter)
	}
}

func TestLessonLocksExpire(t *testing.T) {
	idx := LessonLocksIndexes[0]
	if idx.Options == nil || idx.Options.ExpireAfterSeconds == nil || *idx.Options.ExpireAfterSeconds != 0 {
		t.Error("lock index must expire documents at expires_at")
	}
}
