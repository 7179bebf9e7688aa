package utils

import (
	"net/url"
	"strings"
	"time"
)

// StripFragment drops everything after the first '#'.
func StripFragment(rawURL string) string {
	before, _, _ := strings.Cut(rawURL, "#")
	return before
}

// HTTPSVariant rewrites a plain http URL to https. ok is false for anything else.
func HTTPSVariant(rawURL string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(rawURL), "http://") {
		return "", false
	}
	return "https://" + rawURL[len("http://"):], true
}

// URLPathExtension returns the lower-cased extension of the URL path without the dot.
func URLPathExtension(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}

	slash := strings.LastIndexByte(path, '/')
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || dot < slash || dot == len(path)-1 {
		return ""
	}

	return strings.ToLower(path[dot+1:])
}

func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func CorrectURLScheme(URL string) string {
	startURL := URL
	if u, err := url.Parse(startURL); err != nil || u.Scheme == "" || u.Host == "" {
		if parsed, err2 := url.Parse("https://" + URL); err2 == nil {
			startURL = parsed.String()
		}
	}
	return startURL
}

func DrainTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
