package configuration

import (
	"errors"
	"reflect"
	"testing"

	"tradebot-config/internal/document"

	"github.com/rs/zerolog"
	"pgregory.net/rapid"
)

func TestManager_SnapshotsAreIndependent(t *testing.T) {
	m := NewManager(zerolog.Nop())
	value := map[string]interface{}{"a": 1}

	mustRegister(t, m, "k", value, false)
	value["a"] = 2
	value["b"] = true

	want := map[string]interface{}{"a": 1}
	for name, get := range map[string]func(string, bool) (interface{}, error){
		"startup": m.GetStartup,
		"edited":  m.GetEdited,
	} {
		got, err := get("k", false)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}

	edited, _ := m.GetEdited("k", false)
	edited.(map[string]interface{})["a"] = 3
	startup, _ := m.GetStartup("k", false)
	if startup.(map[string]interface{})["a"] != 1 {
		t.Errorf("Expected editing to leave the startup copy alone, got %v", startup)
	}

	element, ok := m.Element("k")
	if !ok || element.Config.(map[string]interface{})["a"] != 2 {
		t.Error("Expected the element to keep the live value")
	}
}

func TestManager_KeyNotFound(t *testing.T) {
	m := NewManager(zerolog.Nop())

	if _, err := m.GetEdited("missing", false); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
	if _, err := m.GetStartup("missing", true); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestManager_DictProjection(t *testing.T) {
	m := NewManager(zerolog.Nop())
	doc := document.FromMap(map[string]interface{}{
		document.SectionTrader: map[string]interface{}{document.OptionEnabled: true},
	}, nil)

	mustRegister(t, m, "global_config", doc, true)
	mustRegister(t, m, "plain_doc", doc, false)

	inner, err := m.GetStartup("global_config", true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := inner.(map[string]interface{}); !ok {
		t.Errorf("Expected the inner mapping, got %T", inner)
	}

	wrapper, _ := m.GetEdited("global_config", false)
	if _, ok := wrapper.(*document.Document); !ok {
		t.Errorf("Expected the wrapper, got %T", wrapper)
	}
	if wrapper == doc {
		t.Error("Expected a copy, not the live document")
	}

	noDict, _ := m.GetEdited("plain_doc", true)
	if _, ok := noDict.(*document.Document); !ok {
		t.Errorf("Expected dictOnly ignored without dict projection, got %T", noDict)
	}

	mustRegister(t, m, "not_projectable", map[string]interface{}{}, true)
	if _, err := m.GetEdited("not_projectable", true); !errors.Is(err, ErrNoProjection) {
		t.Errorf("Expected ErrNoProjection, got %v", err)
	}
}

func TestManager_ReRegisterReplaces(t *testing.T) {
	m := NewManager(zerolog.Nop())
	mustRegister(t, m, "k", map[string]interface{}{"v": 1}, false)
	mustRegister(t, m, "k", map[string]interface{}{"v": 2}, false)

	got, _ := m.GetStartup("k", false)
	if got.(map[string]interface{})["v"] != 2 {
		t.Errorf("Expected the second registration to win, got %v", got)
	}
	if keys := m.Keys(); len(keys) != 1 || keys[0] != "k" {
		t.Errorf("Unexpected keys %v", keys)
	}
}

func TestManager_Property_CopiesNeverAlias(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := NewManager(zerolog.Nop())
		inner := rapid.SliceOfN(rapid.String(), 0, 5).Draw(t, "inner")
		value := map[string]interface{}{"list": toInterfaces(inner)}

		mustRegister(t, m, "k", value, false)
		if len(inner) > 0 {
			value["list"].([]interface{})[0] = "mutated"
		}
		value["list"] = append(value["list"].([]interface{}), "appended")

		startup, _ := m.GetStartup("k", false)
		edited, _ := m.GetEdited("k", false)
		want := map[string]interface{}{"list": toInterfaces(inner)}
		if !reflect.DeepEqual(startup, want) || !reflect.DeepEqual(edited, want) {
			t.Fatalf("copies changed with the source: startup=%v edited=%v want=%v", startup, edited, want)
		}
	})
}

func TestManager_TypedValuesSurviveRegistration(t *testing.T) {
	m := NewManager(zerolog.Nop())
	value := map[string]interface{}{
		"pairs": []map[string]interface{}{{"qty": 1}},
		"raw":   []map[interface{}]interface{}{{"k": 1}},
	}

	mustRegister(t, m, "k", value, false)
	value["raw"].([]map[interface{}]interface{})[0]["k"] = 2

	startup, err := m.GetStartup("k", false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := map[string]interface{}{
		"pairs": []map[string]interface{}{{"qty": 1}},
		"raw":   []map[interface{}]interface{}{{"k": 1}},
	}
	if !reflect.DeepEqual(startup, want) {
		t.Errorf("Expected %#v, got %#v", want, startup)
	}
}

func TestManager_RegisterRejectsUncopyableValues(t *testing.T) {
	m := NewManager(zerolog.Nop())
	mustRegister(t, m, "k", map[string]interface{}{"v": 1}, false)

	err := m.Register("k", map[string]interface{}{"hook": func() {}}, false)
	if !errors.Is(err, document.ErrNotCloneable) {
		t.Fatalf("Expected ErrNotCloneable, got %v", err)
	}

	got, _ := m.GetStartup("k", false)
	if !reflect.DeepEqual(got, map[string]interface{}{"v": 1}) {
		t.Errorf("Expected the previous element to stay registered, got %v", got)
	}
}

type fatalHelper interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

func mustRegister(t fatalHelper, m *Manager, key string, value interface{}, hasDict bool) {
	t.Helper()
	if err := m.Register(key, value, hasDict); err != nil {
		t.Fatalf("register %s: %v", key, err)
	}
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
