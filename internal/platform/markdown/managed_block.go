package markdown

import "strings"

func markers(name string) (string, string) {
	return "<!-- pomo:" + name + ":start -->", "<!-- pomo:" + name + ":end -->"
}

// ReplaceManagedBlock rewrites the named generated block in body, appending it when absent.
// Text outside the block is preserved.
func ReplaceManagedBlock(body, name, generated string) string {
	startMarker, endMarker := markers(name)
	start := strings.Index(body, startMarker)
	end := strings.Index(body, endMarker)
	block := startMarker + "\n" + generated + "\n" + endMarker

	if start >= 0 && end > start {
		end += len(endMarker)
		return body[:start] + block + body[end:]
	}

	if strings.TrimSpace(body) == "" {
		return block + "\n"
	}
	if strings.HasSuffix(body, "\n") {
		return body + "\n" + block + "\n"
	}
	return body + "\n\n" + block + "\n"
}

// ManagedBlock returns the contents of the named block.
func ManagedBlock(body, name string) (string, bool) {
	startMarker, endMarker := markers(name)
	start := strings.Index(body, startMarker)
	end := strings.Index(body, endMarker)
	if start < 0 || end <= start {
		return "", false
	}
	return strings.Trim(body[start+len(startMarker):end], "\n"), true
}
