package sanitize

import "testing"

func TestClean(t *testing.T) {
	nested := map[string]interface{}{"inner": Undefined}

	tests := []struct {
		name     string
		fields   Fields
		wantKeys []string
		dropped  []string
	}{
		{
			name:     "drops undefined keys",
			fields:   Fields{"text": "Water plants", "lastDone": Undefined},
			wantKeys: []string{"text"},
			dropped:  []string{"lastDone"},
		},
		{
			name:     "keeps nil values",
			fields:   Fields{"distributorName": nil, "ticketImg": Undefined},
			wantKeys: []string{"distributorName"},
			dropped:  []string{"ticketImg"},
		},
		{
			name:     "does not recurse",
			fields:   Fields{"meta": nested},
			wantKeys: []string{"meta"},
		},
		{
			name:   "empty input",
			fields: Fields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.fields)

			if len(got) != len(tt.wantKeys) {
				t.Fatalf("Clean() returned %d keys, want %d", len(got), len(tt.wantKeys))
			}
			for _, key := range tt.wantKeys {
				if _, ok := got[key]; !ok {
					t.Errorf("Clean() missing key %q", key)
				}
			}
			for _, key := range tt.dropped {
				if _, ok := got[key]; ok {
					t.Errorf("Clean() kept undefined key %q", key)
				}
			}
		})
	}

	if _, ok := nested["inner"]; !ok {
		t.Error("Clean() must not touch nested maps")
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	in := Fields{"a": 1, "b": Undefined}
	Clean(in)

	if len(in) != 2 {
		t.Errorf("input mutated, len = %d", len(in))
	}
}

func TestOptional(t *testing.T) {
	var missing *string
	if !IsUndefined(Optional(missing)) {
		t.Error("Optional(nil) should be Undefined")
	}

	value := "delivered"
	if got := Optional(&value); got != "delivered" {
		t.Errorf("Optional() = %v, want delivered", got)
	}
}

func TestMerge(t *testing.T) {
	merged := Merge(Fields{"status": "done", "lastDone": Undefined}, Fields{"updatedAt": "now", "x": Undefined})

	if len(merged) != 2 {
		t.Fatalf("Merge() len = %d, want 2", len(merged))
	}
	if merged["updatedAt"] != "now" || merged["status"] != "done" {
		t.Errorf("Merge() = %v", merged)
	}
}
