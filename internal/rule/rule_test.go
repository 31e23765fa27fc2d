package rule

import "testing"

func TestMatchEmptySetMatchesAnything(t *testing.T) {
	r := Rule{Action: Drop}
	if !r.Match(Tuple{Server: "freenode", Plugin: "logger", Event: "onMessage"}) {
		t.Fatal("expected a rule with all-empty sets to match any tuple")
	}
}

func TestResolveLastMatchingRuleWins(t *testing.T) {
	e := NewEngine()
	e.Add(Rule{Plugins: []string{"logger"}, Action: Drop})
	e.Add(Rule{Plugins: []string{"logger"}, Events: []string{"onCommand"}, Action: Accept})

	verdict := e.Resolve(Tuple{Plugin: "logger", Event: "onMessage"})
	if verdict != Drop {
		t.Fatalf("expected Drop, got %s", verdict)
	}

	verdict = e.Resolve(Tuple{Plugin: "logger", Event: "onCommand"})
	if verdict != Accept {
		t.Fatalf("expected Accept, got %s", verdict)
	}
}

func TestResolveDefaultAcceptWithNoMatch(t *testing.T) {
	e := NewEngine()
	e.Add(Rule{Plugins: []string{"other"}, Action: Drop})

	if verdict := e.Resolve(Tuple{Plugin: "logger"}); verdict != Accept {
		t.Fatalf("expected default Accept, got %s", verdict)
	}
}

func TestAddListRoundTrip(t *testing.T) {
	e := NewEngine()
	r := Rule{Servers: []string{"freenode"}, Action: Drop}
	e.Add(r)

	rules := e.Rules()
	if len(rules) != 1 || rules[0].Servers[0] != "freenode" {
		t.Fatalf("expected add(rule) then list to return rule at the last position, got %+v", rules)
	}
}

func TestInsertThenRemoveRestoresSequence(t *testing.T) {
	e := NewEngine()
	e.Add(Rule{Servers: []string{"a"}})
	e.Add(Rule{Servers: []string{"b"}})

	before := append([]Rule{}, e.Rules()...)

	if err := e.Insert(Rule{Servers: []string{"x"}}, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.Remove(1); err != nil {
		t.Fatal(err)
	}

	after := e.Rules()
	if len(after) != len(before) {
		t.Fatalf("expected sequence length restored, got %d want %d", len(after), len(before))
	}
	for i := range before {
		if before[i].Servers[0] != after[i].Servers[0] {
			t.Fatalf("expected sequence restored at %d, got %+v want %+v", i, after[i], before[i])
		}
	}
}

func TestInsertOutOfRange(t *testing.T) {
	e := NewEngine()
	if err := e.Insert(Rule{}, 1); err == nil {
		t.Fatal("expected error inserting past end of empty engine")
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	e := NewEngine()
	if err := e.Remove(0); err == nil {
		t.Fatal("expected error removing from empty engine")
	}
}
