package message

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct maps m onto a protobuf Struct using the same field names as the
// JSON form. Empty fields are left out.
func toStruct(m *Message) (*structpb.Struct, error) {
	fields := map[string]any{"kind": string(m.Kind)}
	putString(fields, "player_name", m.PlayerName)
	putString(fields, "chat", m.Chat)
	putString(fields, "key", m.Key)
	putString(fields, "event", m.Event)
	if len(m.Params) > 0 {
		params := make([]any, len(m.Params))
		for i, p := range m.Params {
			params[i] = p
		}
		fields["params"] = params
	}
	if m.Auth != nil {
		auth := map[string]any{"player_name": m.Auth.PlayerName}
		putString(auth, "license_key", m.Auth.LicenseKey)
		putString(auth, "password", m.Auth.Password)
		fields["auth"] = auth
	}
	if len(m.Attrs) > 0 {
		attrs := make(map[string]any, len(m.Attrs))
		for k, v := range m.Attrs {
			attrs[k] = v
		}
		fields["attrs"] = attrs
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "message to struct")
	}
	return s, nil
}

func fromStruct(s *structpb.Struct) *Message {
	f := s.GetFields()
	m := &Message{
		Kind:       Kind(f["kind"].GetStringValue()),
		PlayerName: f["player_name"].GetStringValue(),
		Chat:       f["chat"].GetStringValue(),
		Key:        f["key"].GetStringValue(),
		Event:      f["event"].GetStringValue(),
	}
	for _, v := range f["params"].GetListValue().GetValues() {
		m.Params = append(m.Params, v.GetStringValue())
	}
	if auth := f["auth"].GetStructValue(); auth != nil {
		af := auth.GetFields()
		m.Auth = &Auth{
			PlayerName: af["player_name"].GetStringValue(),
			LicenseKey: af["license_key"].GetStringValue(),
			Password:   af["password"].GetStringValue(),
		}
	}
	if attrs := f["attrs"].GetStructValue(); attrs != nil {
		m.Attrs = make(map[string]string, len(attrs.GetFields()))
		for k, v := range attrs.GetFields() {
			m.Attrs[k] = v.GetStringValue()
		}
	}
	return m
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}
