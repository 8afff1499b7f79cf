package messaging

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// InstanceInfo identifies the WhatsApp account linked to an instance.
type InstanceInfo struct {
	Owner       string
	ProfileName string
}

// responseShape tags the instance-metadata layouts seen across provider
// versions.
type responseShape int

const (
	shapeUnknown     responseShape = iota
	shapeList                      // [{...}] or [{"instance": {...}}]
	shapeEnvelope                  // {"response": <shape>}
	shapeMessageList               // {"message": [{...}]}
	shapeFlat                      // {"owner"|"wid"|"number"|"pushName": non-null}
)

func classify(body any) responseShape {
	switch v := body.(type) {
	case []any:
		if _, ok := dig(v, 0).(map[string]any); ok {
			return shapeList
		}
	case map[string]any:
		switch v["response"].(type) {
		case map[string]any, []any:
			return shapeEnvelope
		}
		if _, ok := dig(v, "message", 0).(map[string]any); ok {
			return shapeMessageList
		}
		// A key holding null does not count as present.
		for _, k := range []string{"owner", "wid", "number", "pushName"} {
			if v[k] != nil {
				return shapeFlat
			}
		}
	}
	return shapeUnknown
}

// instanceObject finds the instance record inside list, envelope and
// message-list shapes. Flat bodies are not instance records.
func instanceObject(body any) (map[string]any, bool) {
	switch classify(body) {
	case shapeList:
		return unwrapInstance(dig(body, 0).(map[string]any)), true
	case shapeEnvelope:
		return instanceObject(dig(body, "response"))
	case shapeMessageList:
		return unwrapInstance(dig(body, "message", 0).(map[string]any)), true
	}
	return nil, false
}

func unwrapInstance(m map[string]any) map[string]any {
	if inner, ok := m["instance"].(map[string]any); ok {
		return inner
	}
	return m
}

func infoFromRecord(m map[string]any) InstanceInfo {
	return InstanceInfo{
		Owner:       NormalizeOwner(firstString(m, []any{"ownerJid"}, []any{"ownerId"}, []any{"wid"}, []any{"number"}, []any{"owner"})),
		ProfileName: firstString(m, []any{"profileName"}, []any{"pushName"}),
	}
}

func extractInstanceRecord(body any) (InstanceInfo, bool) {
	m, ok := instanceObject(body)
	if !ok {
		return InstanceInfo{}, false
	}
	return infoFromRecord(m), true
}

// extractInformation also accepts the flat body some versions return from
// getInformation.
func extractInformation(body any) (InstanceInfo, bool) {
	if info, ok := extractInstanceRecord(body); ok {
		return info, true
	}
	if classify(body) != shapeFlat {
		return InstanceInfo{}, false
	}
	return InstanceInfo{
		Owner:       NormalizeOwner(firstString(body, []any{"owner"}, []any{"wid"}, []any{"number"})),
		ProfileName: firstString(body, []any{"pushName"}, []any{"profileName"}),
	}, true
}

// NormalizeOwner turns a JID like "5511999999999@s.whatsapp.net" into the
// bare number. Empty input gives "", meaning absent.
func NormalizeOwner(owner string) string {
	if i := strings.IndexByte(owner, '@'); i >= 0 {
		owner = owner[:i]
	}
	return strings.TrimSpace(owner)
}

type infoStrategy struct {
	endpoint string
	path     func(instanceName string) string
	extract  func(body any) (InstanceInfo, bool)
}

// infoStrategies is tried in order; the first structurally valid
// extraction wins.
var infoStrategies = []infoStrategy{
	{
		endpoint: "fetch_instances",
		path: func(name string) string {
			return "/instance/fetchInstances?instanceName=" + url.QueryEscape(name)
		},
		extract: extractInstanceRecord,
	},
	{
		endpoint: "instance_info",
		path: func(name string) string {
			return "/instance/info/" + url.PathEscape(name)
		},
		extract: extractInstanceRecord,
	},
	{
		endpoint: "get_information",
		path: func(name string) string {
			return "/instance/getInformation/" + url.PathEscape(name)
		},
		extract: extractInformation,
	},
}

// instanceInfo walks infoStrategies. Transport errors, non-2xx statuses and
// unrecognized bodies all mean "try the next one".
func (m *ChannelManager) instanceInfo(ctx context.Context, name, apiKey string) (InstanceInfo, bool) {
	for _, s := range infoStrategies {
		resp, err := m.client.call(ctx, s.endpoint, http.MethodGet, s.path(name), apiKey, nil, stateTimeout)
		if err != nil {
			m.log.Debug().Err(err).Str("endpoint", s.endpoint).Msg("instance info lookup failed")
			continue
		}
		if !resp.OK() {
			continue
		}
		if info, ok := s.extract(resp.Body); ok {
			return info, true
		}
	}
	return InstanceInfo{}, false
}
