package obs

import "strings"

// CanonicalPath collapses per-record path segments into a placeholder so
// metric label cardinality stays bounded. Only the known resource
// collections are rewritten; unknown paths pass through untouched.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	// /api/<collection>/<numeric id>
	if len(parts) == 3 && parts[0] == "api" && isCollection(parts[1]) && isNumeric(parts[2]) {
		return "/api/" + parts[1] + "/:id"
	}
	return path
}

func isNumeric(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isCollection(segment string) bool {
	switch segment {
	case "productos", "ventas", "compras", "clientes", "proveedores", "usuarios":
		return true
	}
	return false
}
