// Package wire implements the generic envelope format spoken by the
// legacy transport binding. Non-primitive values travel as mappings
// keyed by __class__; primitives, strings and time values use the
// carrier format's native representation. The codec is a closed
// tagged-variant serializer over the chat value types; it never walks
// fields reflectively, so an unknown type is a coding error, not a
// silent empty object.
package wire

import (
	"fmt"
	"time"

	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"

	"github.com/samber/lo"
)

const classKey = "__class__"

const (
	classNull  = "null"
	classEnum  = "enum"
	classArray = "array"

	classWhatsUp       = "chat.WhatsUp"
	classChannelInfo   = "chat.ChannelInfo"
	classChannelMember = "chat.ChannelMember"
	classChannelDetail = "chat.ChannelDetail"

	enumWhat   = "chat.What"
	enumReason = "chat.Reason"
)

// Encode turns a domain value into its envelope representation, an
// any-tree of maps, slices and primitives ready for JSON.
func Encode(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return map[string]any{classKey: classNull}, nil
	case bool, string, int, int32, int64, float32, float64:
		return x, nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil

	case event.What:
		return enumEnvelope(enumWhat, string(x)), nil
	case errors.Reason:
		return enumEnvelope(enumReason, string(x)), nil

	case event.WhatsUp:
		return encodeWhatsUp(x), nil
	case domain.ChannelInfo:
		return encodeChannelInfo(x), nil
	case domain.ChannelMember:
		return encodeChannelMember(x), nil
	case domain.ChannelDetail:
		return encodeChannelDetail(x)

	case []event.WhatsUp:
		return arrayEnvelope(classWhatsUp, lo.Map(x, func(e event.WhatsUp, _ int) any {
			return encodeWhatsUp(e)
		})), nil
	case []domain.ChannelInfo:
		return arrayEnvelope(classChannelInfo, lo.Map(x, func(c domain.ChannelInfo, _ int) any {
			return encodeChannelInfo(c)
		})), nil
	case []domain.ChannelMember:
		return arrayEnvelope(classChannelMember, lo.Map(x, func(m domain.ChannelMember, _ int) any {
			return encodeChannelMember(m)
		})), nil

	case []any:
		values := make([]any, 0, len(x))
		for _, item := range x {
			enc, err := Encode(item)
			if err != nil {
				return nil, err
			}
			values = append(values, enc)
		}
		return arrayEnvelope("any", values), nil
	}

	return nil, fmt.Errorf("wire: unsupported type %T", v)
}

// Decode reverses Encode by __class__ lookup. An unknown class name or
// enum constant is a hard failure.
func Decode(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		// Primitives bypass the envelope
		return v, nil
	}

	class, ok := m[classKey].(string)
	if !ok {
		// Plain mappings without the marker pass through untouched
		return m, nil
	}

	switch class {
	case classNull:
		return nil, nil
	case classEnum:
		return decodeEnum(m)
	case classArray:
		return decodeArray(m)
	case classWhatsUp:
		return decodeWhatsUp(m)
	case classChannelInfo:
		return domain.ChannelInfo{
			Name:        str(m, "name"),
			HasPassword: flag(m, "hasPassword"),
		}, nil
	case classChannelMember:
		return decodeChannelMember(m), nil
	case classChannelDetail:
		return decodeChannelDetail(m)
	}

	return nil, fmt.Errorf("wire: unknown class %q", class)
}

// ---------------------------------------------------------------------

func enumEnvelope(typeName, constant string) map[string]any {
	return map[string]any{classKey: classEnum, "type": typeName, "name": constant}
}

func arrayEnvelope(elemType string, values []any) map[string]any {
	return map[string]any{classKey: classArray, "type": elemType, "values": values}
}

// nullable encodes "" as the null envelope; event fields that have no
// value in user-to-user traffic stay observably null on the wire.
func nullable(s string) any {
	if s == "" {
		return map[string]any{classKey: classNull}
	}
	return s
}

func encodeWhatsUp(e event.WhatsUp) map[string]any {
	return map[string]any{
		classKey:  classWhatsUp,
		"what":    enumEnvelope(enumWhat, string(e.What)),
		"channel": nullable(e.Channel),
		"who":     e.Who,
		"by":      nullable(e.By),
		"text":    e.Text,
		"at":      e.At.UTC().Format(time.RFC3339Nano),
	}
}

func encodeChannelInfo(c domain.ChannelInfo) map[string]any {
	return map[string]any{
		classKey:      classChannelInfo,
		"name":        c.Name,
		"hasPassword": c.HasPassword,
	}
}

func encodeChannelMember(m domain.ChannelMember) map[string]any {
	return map[string]any{
		classKey:    classChannelMember,
		"channel":   m.Channel,
		"username":  m.Username,
		"isAccount": m.IsAccount,
		"isIgnored": m.IsIgnored,
		"isAdmin":   m.IsAdmin,
		"isBanned":  m.IsBanned,
	}
}

func encodeChannelDetail(d domain.ChannelDetail) (map[string]any, error) {
	members, err := Encode(d.Members)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		classKey:      classChannelDetail,
		"name":        d.Name,
		"hasPassword": d.HasPassword,
		"topic":       d.Topic,
		"members":     members,
	}, nil
}

func decodeEnum(m map[string]any) (any, error) {
	name := str(m, "name")
	switch str(m, "type") {
	case enumWhat:
		return event.ParseWhat(name)
	case enumReason:
		return errors.ParseReason(name)
	}
	return nil, fmt.Errorf("wire: unknown enum type %q", str(m, "type"))
}

func decodeArray(m map[string]any) (any, error) {
	raw, ok := m["values"].([]any)
	if !ok {
		return nil, fmt.Errorf("wire: array envelope without values")
	}

	switch str(m, "type") {
	case classWhatsUp:
		out := make([]event.WhatsUp, 0, len(raw))
		for _, item := range raw {
			dec, err := Decode(item)
			if err != nil {
				return nil, err
			}
			evt, ok := dec.(event.WhatsUp)
			if !ok {
				return nil, fmt.Errorf("wire: array element is %T, want WhatsUp", dec)
			}
			out = append(out, evt)
		}
		return out, nil
	case classChannelInfo:
		out := make([]domain.ChannelInfo, 0, len(raw))
		for _, item := range raw {
			dec, err := Decode(item)
			if err != nil {
				return nil, err
			}
			info, ok := dec.(domain.ChannelInfo)
			if !ok {
				return nil, fmt.Errorf("wire: array element is %T, want ChannelInfo", dec)
			}
			out = append(out, info)
		}
		return out, nil
	case classChannelMember:
		out := make([]domain.ChannelMember, 0, len(raw))
		for _, item := range raw {
			dec, err := Decode(item)
			if err != nil {
				return nil, err
			}
			member, ok := dec.(domain.ChannelMember)
			if !ok {
				return nil, fmt.Errorf("wire: array element is %T, want ChannelMember", dec)
			}
			out = append(out, member)
		}
		return out, nil
	default:
		out := make([]any, 0, len(raw))
		for _, item := range raw {
			dec, err := Decode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, dec)
		}
		return out, nil
	}
}

func decodeWhatsUp(m map[string]any) (any, error) {
	what, err := Decode(m["what"])
	if err != nil {
		return nil, err
	}
	w, ok := what.(event.What)
	if !ok {
		return nil, fmt.Errorf("wire: whatsUp.what is %T, want enum", what)
	}

	at, err := time.Parse(time.RFC3339Nano, str(m, "at"))
	if err != nil {
		return nil, fmt.Errorf("wire: whatsUp.at: %w", err)
	}

	channel, err := decodeNullable(m["channel"])
	if err != nil {
		return nil, err
	}
	by, err := decodeNullable(m["by"])
	if err != nil {
		return nil, err
	}

	return event.WhatsUp{
		What:    w,
		Channel: channel,
		Who:     str(m, "who"),
		By:      by,
		Text:    str(m, "text"),
		At:      at,
	}, nil
}

func decodeChannelMember(m map[string]any) domain.ChannelMember {
	return domain.ChannelMember{
		Channel:   str(m, "channel"),
		Username:  str(m, "username"),
		IsAccount: flag(m, "isAccount"),
		IsIgnored: flag(m, "isIgnored"),
		IsAdmin:   flag(m, "isAdmin"),
		IsBanned:  flag(m, "isBanned"),
	}
}

func decodeChannelDetail(m map[string]any) (any, error) {
	raw, err := Decode(m["members"])
	if err != nil {
		return nil, err
	}
	members, ok := raw.([]domain.ChannelMember)
	if !ok {
		return nil, fmt.Errorf("wire: detail.members is %T, want member array", raw)
	}
	return domain.ChannelDetail{
		Name:        str(m, "name"),
		HasPassword: flag(m, "hasPassword"),
		Topic:       str(m, "topic"),
		Members:     members,
	}, nil
}

func decodeNullable(v any) (string, error) {
	dec, err := Decode(v)
	if err != nil {
		return "", err
	}
	if dec == nil {
		return "", nil
	}
	s, ok := dec.(string)
	if !ok {
		return "", fmt.Errorf("wire: expected string or null, got %T", dec)
	}
	return s, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func flag(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}
