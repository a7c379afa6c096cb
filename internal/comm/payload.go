package comm

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/state"
)

// ModelPayload is the wire form of a single model node.
type ModelPayload struct {
	Ref      string                     `json:"ref"`
	Type     string                     `json:"type"`
	Props    map[string]json.RawMessage `json:"props,omitempty"`
	Children map[string]string          `json:"children,omitempty"`
	Lists    map[string][]string        `json:"lists,omitempty"`
	Changes  map[string][]JSPayload     `json:"changes,omitempty"`
	Events   map[string][]JSPayload     `json:"events,omitempty"`
}

// JSPayload is the wire form of one attached browser-side callback.
type JSPayload struct {
	Code string                     `json:"code"`
	Args map[string]json.RawMessage `json:"args,omitempty"`
	Tags []string                   `json:"tags,omitempty"`
}

// DocumentPayload is a full snapshot of one session's rendered document.
type DocumentPayload struct {
	Session string         `json:"session"`
	Root    string         `json:"root"`
	Models  []ModelPayload `json:"models"`
}

// Patch is a client-initiated property update for one model.
type Patch struct {
	Session string          `json:"session"`
	Ref     string          `json:"ref"`
	Prop    string          `json:"prop"`
	Value   json.RawMessage `json:"value"`
}

// EncodeDocument flattens a session's model tree into a wire snapshot.
// Models appear in stable document order.
func EncodeDocument(sess *state.Session) (*DocumentPayload, error) {
	out := &DocumentPayload{Session: sess.ID, Root: sess.Doc.Ref()}
	for _, m := range sess.Doc.Select(nil) {
		mp, err := encodeModel(m)
		if err != nil {
			return nil, err
		}
		out.Models = append(out.Models, mp)
	}
	return out, nil
}

func encodeModel(m *model.Model) (ModelPayload, error) {
	mp := ModelPayload{Ref: m.Ref(), Type: m.TypeName()}

	props := m.Props()
	if len(props) > 0 {
		mp.Props = make(map[string]json.RawMessage, len(props))
		for name, v := range props {
			raw, err := encodeValue(v)
			if err != nil {
				return ModelPayload{}, fmt.Errorf("model %s: encode %q: %w", m.TypeName(), name, err)
			}
			mp.Props[name] = raw
		}
	}

	if children := m.Children(); len(children) > 0 {
		mp.Children = make(map[string]string, len(children))
		for name, child := range children {
			mp.Children[name] = child.Ref()
		}
	}
	if lists := m.ChildLists(); len(lists) > 0 {
		mp.Lists = make(map[string][]string, len(lists))
		for name, list := range lists {
			refs := make([]string, len(list))
			for i, child := range list {
				refs[i] = child.Ref()
			}
			mp.Lists[name] = refs
		}
	}

	var err error
	if mp.Changes, err = encodeCallbacks(m.ChangeCallbacks()); err != nil {
		return ModelPayload{}, err
	}
	if mp.Events, err = encodeCallbacks(m.EventCallbacks()); err != nil {
		return ModelPayload{}, err
	}
	return mp, nil
}

func encodeCallbacks(table map[string][]*model.CustomJS) (map[string][]JSPayload, error) {
	if len(table) == 0 {
		return nil, nil
	}
	out := make(map[string][]JSPayload, len(table))
	for trigger, cbs := range table {
		for _, cb := range cbs {
			jp := JSPayload{Code: cb.Code, Tags: cb.Tags}
			if len(cb.Args) > 0 {
				jp.Args = make(map[string]json.RawMessage, len(cb.Args))
				names := make([]string, 0, len(cb.Args))
				for name := range cb.Args {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					raw, err := encodeArg(cb.Args[name])
					if err != nil {
						return nil, fmt.Errorf("callback arg %q: %w", name, err)
					}
					jp.Args[name] = raw
				}
			}
			out[trigger] = append(out[trigger], jp)
		}
	}
	return out, nil
}

// encodeArg serializes a callback argument. Models travel as a ref
// envelope so the client can rebind them to live instances; everything
// else travels as a plain JSON value.
func encodeArg(v any) (json.RawMessage, error) {
	switch arg := v.(type) {
	case *model.Model:
		return json.Marshal(map[string]string{"ref": arg.Ref()})
	case cty.Value:
		return encodeValue(arg)
	default:
		return json.Marshal(arg)
	}
}

func encodeValue(v cty.Value) (json.RawMessage, error) {
	if v.IsNull() {
		return json.RawMessage("null"), nil
	}
	return ctyjson.Marshal(v, v.Type())
}

// ApplyPatch decodes a patch value against the target model's declared
// type and assigns it. Validation failures surface as errors so the
// server can reject bad patches without tearing the session down.
func ApplyPatch(sess *state.Session, p Patch) error {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	matches := sess.Doc.Select(func(m *model.Model) bool { return m.Ref() == p.Ref })
	if len(matches) == 0 {
		return fmt.Errorf("patch for unknown model ref %q", p.Ref)
	}
	target := matches[0]

	ty, ok := target.DeclaredType(p.Prop)
	if !ok {
		var err error
		if ty, err = ctyjson.ImpliedType([]byte(p.Value)); err != nil {
			return fmt.Errorf("patch %s.%s: %w", p.Ref, p.Prop, err)
		}
	}
	value, err := ctyjson.Unmarshal([]byte(p.Value), ty)
	if err != nil {
		return fmt.Errorf("patch %s.%s: %w", p.Ref, p.Prop, err)
	}
	return target.Set(p.Prop, value)
}
