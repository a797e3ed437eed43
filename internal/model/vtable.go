package model

import (
	"fmt"
	"strings"
)

// Slot is one virtual-dispatch entry of a class.
type Slot struct {
	Index      int
	Key        string // local name plus parameter types; "~" for the destructor
	Name       string // local method name; "~" for the destructor
	Ordinal    int    // position among slots sharing Name
	Introducer string // class that introduced the slot
	Owner      string // class providing the final overrider
	Pure       bool
	Final      bool
}

// LayoutKey identifies a slot across versions independent of its signature,
// so a slot whose method changed parameters is still the same slot.
func (s Slot) LayoutKey() string {
	return fmt.Sprintf("%s#%d", s.Name, s.Ordinal)
}

// VTable returns the ordered slot list of a class, or nil.
func (s *Snapshot) VTable(class string) []Slot {
	return s.vtables[class]
}

// buildVTables computes slot lists for every class: the primary base's
// slots followed by the class's own new virtual methods in declaration
// order. Overriders keep the inherited index.
func (s *Snapshot) buildVTables() {
	done := make(map[string]bool)
	visiting := make(map[string]bool)

	var build func(class string) []Slot
	build = func(class string) []Slot {
		if done[class] {
			return s.vtables[class]
		}
		c := s.Type(class)
		if c == nil || c.Kind != KindClass || visiting[class] {
			return nil
		}
		visiting[class] = true
		defer delete(visiting, class)

		var slots []Slot
		if len(c.Bases) > 0 {
			slots = append(slots, build(c.Bases[0].Name)...)
		}

		for _, m := range s.members[class] {
			if m.Kind != KindMethod && m.Kind != KindTemplate {
				continue
			}
			name, key := slotKey(m)
			idx := -1
			for i := range slots {
				if slots[i].Key == key {
					idx = i
					break
				}
			}
			switch {
			case idx >= 0:
				slots[idx].Owner = class
				slots[idx].Pure = m.Has(Pure)
				slots[idx].Final = m.Has(Final)
				m.dispatch = true
			case m.Has(Virtual) || m.Has(Override) || m.Has(Final) || m.Has(Pure):
				ordinal := 0
				for _, sl := range slots {
					if sl.Name == name {
						ordinal++
					}
				}
				slots = append(slots, Slot{
					Index:      len(slots),
					Key:        key,
					Name:       name,
					Ordinal:    ordinal,
					Introducer: class,
					Owner:      class,
					Pure:       m.Has(Pure),
					Final:      m.Has(Final),
				})
				m.dispatch = true
			}
		}

		s.vtables[class] = slots
		done[class] = true
		return slots
	}

	for _, d := range s.decls {
		if d.Kind == KindClass {
			build(d.Name)
		}
	}
}

func slotKey(m *Declaration) (name, key string) {
	name = m.LocalName()
	if strings.HasPrefix(name, "~") {
		return "~", "~"
	}
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	key = name + "(" + strings.Join(types, ", ") + ")"
	if m.Has(Const) {
		key += " const"
	}
	return name, key
}
