package visitor

import (
	"errors"
	"strings"

	guzzle "github.com/zubr/guzzle"
)

func unknownLocation(location string) error {
	return guzzle.NewIssue(guzzle.CodeUnknownLocation, "", map[string]string{"location": location}, nil)
}

// atPath stamps path onto issues that do not carry one yet. Other errors are
// returned unchanged.
func atPath(err error, path string) error {
	if err == nil || path == "" {
		return err
	}
	var iss guzzle.Issues
	if !errors.As(err, &iss) {
		return err
	}
	out := make(guzzle.Issues, len(iss))
	copy(out, iss)
	for i := range out {
		if out[i].Path == "" {
			out[i].Path = path
		}
	}
	return out
}

func joinPath(base, key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return base + "/" + key
}
