package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// Session route overrides: audit as session_started / session_ended on resource "session".
const (
	sessionStartPath = "/v1/sessions/start"
	sessionEndPath   = "/v1/sessions/end"
)

// ParseRoute returns action and resource for an HTTP method and path
// (e.g. GET /v1/sessions/active). Action is a verb: get, list, create,
// update, delete, or derived from the trailing path segment. Resource is
// the singular form of the first path segment after the version prefix.
// The session start/end routes map to session_started and session_ended.
func ParseRoute(method, path string) ActionResource {
	switch path {
	case sessionStartPath:
		return ActionResource{Action: "session_started", Resource: "session"}
	case sessionEndPath:
		return ActionResource{Action: "session_ended", Resource: "session"}
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	resource := singular(segments[0])
	return ActionResource{Action: methodToAction(method, segments), Resource: resource}
}

// splitPath drops the /v1 prefix and empty segments.
func splitPath(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s == "" || (len(out) == 0 && len(s) == 2 && s[0] == 'v') {
			continue
		}
		out = append(out, s)
	}
	return out
}

func singular(s string) string {
	if strings.HasSuffix(s, "ies") {
		return strings.TrimSuffix(s, "ies") + "y"
	}
	return strings.TrimSuffix(s, "s")
}

func methodToAction(method string, segments []string) string {
	switch method {
	case "GET":
		if len(segments) == 1 {
			return "list"
		}
		return "get"
	case "POST":
		if len(segments) > 1 {
			return strings.ToLower(segments[len(segments)-1])
		}
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
