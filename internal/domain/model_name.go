package domain

import "strings"

// NormalizeModelName turns a reasoning-service model id into a short label for logs
// and metrics. "gpt://<folder>/yandexgpt/rc" becomes "yandexgpt" and a trailing
// ":free" style tier suffix is dropped.
func NormalizeModelName(model string) string {
	name := strings.TrimSpace(model)
	if idx := strings.Index(name, "gpt://"); idx >= 0 {
		rest := name[idx+len("gpt://"):]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			name = rest[slash+1:]
			if next := strings.Index(name, "/"); next >= 0 {
				name = name[:next]
			}
		}
	}
	if colon := strings.LastIndex(name, ":"); colon > 0 {
		name = name[:colon]
	}
	return name
}
